package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "carhive/pkg/errors"
	"carhive/pkg/logger"
	"carhive/pkg/model"
)

// sweepBatchSize bounds how many stale bookings one sweep cancels.
const sweepBatchSize = 100

// CancelExpired cancels pending bookings that never opened a checkout session
// within the configured TTL, freeing the held dates. Each booking is cancelled
// in its own transaction so one bad document cannot wedge the whole sweep.
func (s *bookingService) CancelExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.PendingBookingTTL)

	stale, err := s.repo.FindStalePending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, apperrors.Internal("Failed to find expired bookings", err)
	}

	cancelled := 0
	for _, booking := range stale {
		b := booking
		// A session id means an open checkout page; reconciliation owns that
		// booking's fate, not the sweeper.
		if b.SessionID != "" {
			continue
		}
		err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if err := s.repo.SetStatus(sessCtx, b.ID, model.StatusCancelled); err != nil {
				return err
			}
			return s.mirror.SetReservationStatus(sessCtx, b.Vehicle.ID, b.ID, model.StatusCancelled)
		})
		if err != nil {
			s.cfg.Log.Warn("Failed to cancel expired booking",
				"id", b.ID,
				"error", err,
			)
			continue
		}

		cancelled++
		b.Status = model.StatusCancelled
		s.events.Publish(ctx, EventBookingExpired, b)
	}

	if cancelled > 0 {
		s.cfg.Log.Info("Expired bookings cancelled",
			"count", cancelled,
			"cutoff", cutoff,
		)
	}

	return cancelled, nil
}

// ExpirySweeper periodically cancels pending bookings that outlived the
// payment window.
type ExpirySweeper struct {
	service  BookingService
	interval time.Duration
	log      *logger.Logger
}

func NewExpirySweeper(service BookingService, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		service:  service,
		interval: interval,
		log:      log,
	}
}

// Run blocks until the context is cancelled, sweeping once per interval.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Expiry sweeper started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.service.CancelExpired(ctx); err != nil {
				w.log.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}
