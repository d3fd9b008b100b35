package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "carhive/internal/bookings/errors"
	"carhive/internal/bookings/repository"
	bookingsvc "carhive/internal/bookings/service"
	"carhive/pkg/config"
	apperrors "carhive/pkg/errors"
	"carhive/pkg/model"
	"carhive/pkg/stripe"
)

// CheckoutGateway is the slice of the payment provider the reconciler needs.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

// CheckoutInput opens a paid reservation: the booking to hold plus checkout
// page details.
type CheckoutInput struct {
	Booking       *bookingsvc.CreateInput
	CustomerEmail string
}

// CheckoutResult points the client at the hosted payment page.
type CheckoutResult struct {
	BookingID string `json:"booking_id"`
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// ConfirmResult reports the provider-side payment state. Paid is false when
// the session exists but the charge has not landed; that is not an error.
type ConfirmResult struct {
	Paid         bool           `json:"paid"`
	PaymentState string         `json:"payment_state"`
	Booking      *model.Booking `json:"booking,omitempty"`
}

type PaymentService interface {
	OpenCheckout(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error)
	Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error)
}

type paymentService struct {
	bookings bookingsvc.BookingService
	repo     repository.BookingRepository
	mirror   repository.VehicleMirrorRepository
	gateway  CheckoutGateway
	events   bookingsvc.EventPublisher
	cfg      *config.Config
}

func NewPaymentService(
	bookings bookingsvc.BookingService,
	repo repository.BookingRepository,
	mirror repository.VehicleMirrorRepository,
	gateway CheckoutGateway,
	events bookingsvc.EventPublisher,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		bookings: bookings,
		repo:     repo,
		mirror:   mirror,
		gateway:  gateway,
		events:   events,
		cfg:      cfg,
	}
}

// OpenCheckout holds the dates first, then opens the provider session. If the
// session cannot be created the booking is rolled back, so a provider outage
// never leaves dates blocked by a booking nobody can pay for.
func (s *paymentService) OpenCheckout(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	if in.Booking == nil {
		return nil, apperrors.InvalidInput("Booking details are required")
	}

	booking, err := s.bookings.Create(ctx, in.Booking)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, s.buildCheckoutParams(booking, in.CustomerEmail))
	if err != nil {
		s.rollbackBooking(ctx, booking.ID)
		s.cfg.Log.Error("Checkout session creation failed, booking rolled back",
			"booking_id", booking.ID,
			"error", err,
		)
		return nil, apperrors.ProviderUnavailable("Payment provider", err)
	}

	// The stored session id is a fallback for confirmations whose metadata
	// got lost; losing this write is tolerable, losing the session is not.
	if err := s.repo.SetSession(ctx, booking.ID, session.ID); err != nil {
		s.cfg.Log.Warn("Failed to store session id on booking",
			"booking_id", booking.ID,
			"session_id", session.ID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Checkout session opened",
		"booking_id", booking.ID,
		"session_id", session.ID,
		"amount", booking.Amount,
	)

	return &CheckoutResult{
		BookingID: booking.ID,
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func (s *paymentService) buildCheckoutParams(booking *model.Booking, email string) stripe.CheckoutParams {
	return stripe.CheckoutParams{
		AmountMinor: int64(math.Round(booking.Amount * 100)),
		Currency:    booking.Currency,
		ProductName: booking.Vehicle.DisplayName(),
		Description: fmt.Sprintf("Rental %s - %s",
			booking.PickupDate.Format("2006-01-02"),
			booking.ReturnDate.Format("2006-01-02"),
		),
		ImageURL:      externalImageURL(booking),
		CustomerEmail: email,
		SuccessURL:    s.cfg.ClientBaseURL + "/success?session_id={CHECKOUT_SESSION_ID}&payment_status=success",
		CancelURL:     s.cfg.ClientBaseURL + "/cancel?payment_status=cancelled",
		Metadata: map[string]string{
			"bookingId":  booking.ID,
			"userId":     booking.UserID,
			"vehicleId":  booking.Vehicle.ID,
			"pickupDate": booking.PickupDate.Format("2006-01-02"),
			"returnDate": booking.ReturnDate.Format("2006-01-02"),
		},
	}
}

// externalImageURL returns the vehicle image only when the provider can fetch
// it; locally stored uploads are not reachable from the provider's side.
func externalImageURL(booking *model.Booking) string {
	image := booking.Vehicle.Image
	if image == "" || image[0] == '/' {
		return ""
	}
	return image
}

func (s *paymentService) rollbackBooking(ctx context.Context, bookingID string) {
	if err := s.bookings.Delete(context.WithoutCancel(ctx), bookingID); err != nil {
		// The expiry sweeper will reclaim the dates eventually.
		s.cfg.Log.Error("Failed to roll back booking after provider failure",
			"booking_id", bookingID,
			"error", err,
		)
	}
}

// Confirm pulls the session state from the provider and reconciles the
// booking. It is idempotent: replays of an already-confirmed session return
// the settled booking without touching it again.
func (s *paymentService) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session_id is required")
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, stripe.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Checkout session", sessionID)
		}
		return nil, apperrors.ProviderUnavailable("Payment provider", err)
	}

	if session.PaymentStatus != stripe.PaymentStatusPaid {
		s.cfg.Log.Info("Checkout session not settled",
			"session_id", sessionID,
			"payment_state", session.PaymentStatus,
		)
		return &ConfirmResult{Paid: false, PaymentState: session.PaymentStatus}, nil
	}

	booking, err := s.resolveBooking(ctx, session, sessionID)
	if err != nil {
		return nil, err
	}

	if booking.PaymentStatus == model.PaymentPaid {
		return &ConfirmResult{Paid: true, PaymentState: session.PaymentStatus, Booking: booking}, nil
	}

	details := &model.PaymentDetails{
		AmountTotal: session.AmountTotal,
		Currency:    session.Currency,
	}

	var updated *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		updated, err = s.repo.MarkPaid(sessCtx, booking.ID, session.PaymentIntent, details)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", booking.ID)
			}
			return apperrors.Internal("Failed to mark booking paid", err)
		}
		if err := s.mirror.SetReservationStatus(sessCtx, booking.Vehicle.ID, booking.ID, model.StatusActive); err != nil {
			if !errors.Is(err, bookingserrors.ErrVehicleNotFound) {
				return apperrors.Internal("Failed to sync reservation status", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to reconcile payment",
			"booking_id", booking.ID,
			"session_id", sessionID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Payment reconciled",
		"booking_id", updated.ID,
		"session_id", sessionID,
		"payment_intent", session.PaymentIntent,
	)
	s.events.Publish(ctx, bookingsvc.EventPaymentReconciled, updated)

	return &ConfirmResult{Paid: true, PaymentState: session.PaymentStatus, Booking: updated}, nil
}

// resolveBooking prefers the booking id carried in session metadata and falls
// back to the stored session id for sessions created before the metadata write
// landed.
func (s *paymentService) resolveBooking(ctx context.Context, session *stripe.CheckoutSession, sessionID string) (*model.Booking, error) {
	if bookingID := session.Metadata["bookingId"]; bookingID != "" {
		booking, err := s.repo.FindByID(ctx, bookingID)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, bookingserrors.ErrNotFound) && !errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.Internal("Failed to resolve booking", err)
		}
		s.cfg.Log.Warn("Session metadata points at unknown booking, falling back to session lookup",
			"session_id", sessionID,
			"booking_id", bookingID,
		)
	}

	booking, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking for session", sessionID)
		}
		return nil, apperrors.Internal("Failed to resolve booking by session", err)
	}
	return booking, nil
}
