package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "carhive/internal/bookings/errors"
	"carhive/internal/bookings/repository"
	"carhive/internal/bookings/validator"
	"carhive/pkg/config"
	apperrors "carhive/pkg/errors"
	"carhive/pkg/model"
)

// lockExpiry bounds how long a crashed process can hold a vehicle lock.
const lockExpiry = 10 * time.Second

// CreateInput is what a client supplies to reserve a vehicle. Amount may be
// zero, in which case it is derived from the vehicle's daily price.
type CreateInput struct {
	UserID       string
	Vehicle      model.VehicleRef
	PickupDate   time.Time
	ReturnDate   time.Time
	Amount       float64
	Details      model.LooseMap
	Address      model.LooseMap
	VehicleImage string
}

// ImageStore releases uploaded images a booking no longer references.
type ImageStore interface {
	Release(ref string)
	IsLocal(ref string) bool
}

type BookingService interface {
	Create(ctx context.Context, in *CreateInput) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, filter repository.SearchFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	CancelExpired(ctx context.Context) (int, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	mirror    repository.VehicleMirrorRepository
	lockRepo  repository.BookingLockRepository
	validator *validator.BookingValidator
	events    EventPublisher
	images    ImageStore
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	mirror repository.VehicleMirrorRepository,
	lockRepo repository.BookingLockRepository,
	validator *validator.BookingValidator,
	events EventPublisher,
	images ImageStore,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		mirror:    mirror,
		lockRepo:  lockRepo,
		validator: validator,
		events:    events,
		images:    images,
		cfg:       cfg,
	}
}

// Create reserves a vehicle for a date range. The overlap check and both
// writes (ledger insert, mirror push) happen inside one transaction, under a
// per-vehicle advisory lock, so two racing requests for the same vehicle
// cannot both pass the check.
func (s *bookingService) Create(ctx context.Context, in *CreateInput) (*model.Booking, error) {
	if in.Vehicle.IsZero() {
		return nil, apperrors.InvalidInput("Vehicle is required")
	}
	if in.Vehicle.ID == "" {
		return nil, apperrors.InvalidInput("Vehicle ID is required")
	}
	if in.PickupDate.IsZero() || in.ReturnDate.IsZero() {
		return nil, apperrors.InvalidInput("Pickup and return dates are required")
	}
	if in.ReturnDate.Before(in.PickupDate) {
		return nil, apperrors.InvalidInput("Return date must not be before pickup date")
	}

	lockID, err := s.acquireVehicleLock(ctx, in.Vehicle.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseVehicleLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release vehicle lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	var booking *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		vehicle, err := s.resolveVehicle(sessCtx, in.Vehicle.ID)
		if err != nil {
			return err
		}

		if err := s.verifyAvailability(sessCtx, vehicle.ID, in.PickupDate, in.ReturnDate, ""); err != nil {
			return err
		}

		booking = s.buildBooking(in, vehicle)
		if err := s.validate(booking); err != nil {
			return err
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		if err := s.mirror.PushReservation(sessCtx, vehicle.ID, booking.ToSummary()); err != nil {
			return apperrors.Internal("Failed to record reservation on vehicle", err)
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "vehicle_id", in.Vehicle.ID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"vehicle_id", booking.Vehicle.ID,
		"pickup_date", booking.PickupDate,
		"return_date", booking.ReturnDate,
	)
	s.events.Publish(ctx, EventBookingCreated, booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	return booking, nil
}

func (s *bookingService) List(ctx context.Context, filter repository.SearchFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountSearch(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Search(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Update merges the changes onto the stored booking and re-runs the full
// availability check whenever dates or the vehicle changed. The mirror entry
// follows the booking inside the same transaction.
func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeBookingUpdates(existing, updates)

	vehicleChanged := merged.Vehicle.ID != existing.Vehicle.ID
	datesChanged := !merged.PickupDate.Equal(existing.PickupDate) || !merged.ReturnDate.Equal(existing.ReturnDate)

	lockID, err := s.acquireVehicleLock(ctx, merged.Vehicle.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseVehicleLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release vehicle lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if vehicleChanged {
			vehicle, err := s.resolveVehicle(sessCtx, merged.Vehicle.ID)
			if err != nil {
				return err
			}
			merged.Vehicle = vehicle.Snapshot()
		}

		if (vehicleChanged || datesChanged) && model.IsBlocking(merged.Status) {
			if err := s.verifyAvailability(sessCtx, merged.Vehicle.ID, merged.PickupDate, merged.ReturnDate, id); err != nil {
				return err
			}
		}

		if err := s.validate(merged); err != nil {
			return err
		}

		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			return apperrors.Internal("Failed to update booking", err)
		}

		if vehicleChanged {
			if err := s.mirror.PullReservation(sessCtx, existing.Vehicle.ID, id); err != nil {
				return apperrors.Internal("Failed to detach reservation from previous vehicle", err)
			}
			if err := s.mirror.PushReservation(sessCtx, merged.Vehicle.ID, merged.ToSummary()); err != nil {
				return apperrors.Internal("Failed to record reservation on vehicle", err)
			}
		} else {
			if err := s.mirror.UpdateReservation(sessCtx, merged.Vehicle.ID, merged.ToSummary()); err != nil {
				return apperrors.Internal("Failed to sync reservation on vehicle", err)
			}
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	// Replaced uploads are released only after the commit sticks.
	if s.images != nil && updates.VehicleImage != "" &&
		existing.VehicleImage != merged.VehicleImage && s.images.IsLocal(existing.VehicleImage) {
		s.images.Release(existing.VehicleImage)
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id)
	s.events.Publish(ctx, EventBookingUpdated, merged)
	return merged, nil
}

// UpdateStatus transitions the booking lifecycle and keeps the mirror entry's
// status in step. Entries of completed or cancelled bookings stay in the
// mirror; availability checks skip non-blocking statuses.
func (s *bookingService) UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if !isKnownStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown booking status: %s", status))
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	if booking.Status == status {
		return booking, nil
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.SetStatus(sessCtx, id, status); err != nil {
			return apperrors.Internal("Failed to set booking status", err)
		}
		if err := s.mirror.SetReservationStatus(sessCtx, booking.Vehicle.ID, id, status); err != nil {
			return apperrors.Internal("Failed to sync reservation status", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking status", "id", id, "status", status, "error", err)
		return nil, err
	}

	booking.Status = status
	s.cfg.Log.Info("Booking status updated", "id", id, "status", status)

	if status == model.StatusCancelled {
		s.events.Publish(ctx, EventBookingCancelled, booking)
	} else {
		s.events.Publish(ctx, EventBookingUpdated, booking)
	}
	return booking, nil
}

// Delete removes the booking and its mirror entry atomically. Used both by the
// client-facing cancel-and-remove flow and by the payment coordinator rolling
// back a booking whose checkout session could not be created.
func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	var removed *model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return mapLookupError(err, id)
		}
		removed = booking

		if err := s.repo.Delete(sessCtx, id); err != nil {
			return apperrors.Internal("Failed to delete booking", err)
		}
		if err := s.mirror.PullReservation(sessCtx, booking.Vehicle.ID, id); err != nil {
			// Vehicle may have been removed from the catalog since booking.
			if !errors.Is(err, bookingserrors.ErrVehicleNotFound) {
				return apperrors.Internal("Failed to detach reservation from vehicle", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.images != nil && removed.VehicleImage != "" && s.images.IsLocal(removed.VehicleImage) {
		s.images.Release(removed.VehicleImage)
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id)
	s.events.Publish(ctx, EventBookingCancelled, removed)
	return nil
}

// --- Helpers ---

func (s *bookingService) buildBooking(in *CreateInput, vehicle *model.Vehicle) *model.Booking {
	amount := in.Amount
	if amount <= 0 {
		amount = float64(rentalDays(in.PickupDate, in.ReturnDate)) * vehicle.PricePerDay
	}

	return &model.Booking{
		UserID:        in.UserID,
		Vehicle:       vehicle.Snapshot(),
		VehicleImage:  in.VehicleImage,
		PickupDate:    in.PickupDate,
		ReturnDate:    in.ReturnDate,
		Amount:        amount,
		Currency:      s.cfg.CheckoutCurrency,
		Details:       in.Details,
		Address:       in.Address,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentPending,
	}
}

// rentalDays counts calendar days in a closed range; a same-day rental is one day.
func rentalDays(pickup, returnDate time.Time) int {
	return int(returnDate.Sub(pickup).Hours()/24) + 1
}

func (s *bookingService) resolveVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	vehicle, err := s.mirror.FindVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrVehicleNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
		}
		if errors.Is(err, bookingserrors.ErrInvalidVehicleID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return nil, apperrors.Internal("Failed to resolve vehicle", err)
	}
	return vehicle, nil
}

func (s *bookingService) verifyAvailability(ctx context.Context, vehicleID string, pickup, returnDate time.Time, excludeID string) error {
	count, err := s.repo.CountOverlapping(ctx, vehicleID, pickup, returnDate, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check vehicle availability", err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf(
			"Vehicle is already booked between %s and %s",
			pickup.Format("2006-01-02"),
			returnDate.Format("2006-01-02"),
		))
	}
	return nil
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.Vehicle != nil && updates.Vehicle.ID != "" {
		merged.Vehicle = model.VehicleSnapshot{ID: updates.Vehicle.ID}
		if updates.Vehicle.Snapshot != nil {
			merged.Vehicle = *updates.Vehicle.Snapshot
		}
	}
	if updates.PickupDate != nil {
		merged.PickupDate = *updates.PickupDate
	}
	if updates.ReturnDate != nil {
		merged.ReturnDate = *updates.ReturnDate
	}
	if updates.Amount != nil {
		merged.Amount = *updates.Amount
	}
	if updates.Details != nil {
		merged.Details = *updates.Details
	}
	if updates.Address != nil {
		merged.Address = *updates.Address
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}
	if updates.VehicleImage != "" {
		merged.VehicleImage = updates.VehicleImage
	}

	return &merged
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func isKnownStatus(status string) bool {
	switch status {
	case model.StatusPending, model.StatusUpcoming, model.StatusActive,
		model.StatusCompleted, model.StatusCancelled:
		return true
	}
	return false
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Failed to retrieve booking", err)
}

// acquireVehicleLock creates an advisory lock to serialize booking writes per
// vehicle. Returns the lock ID if successful, or conflict error if another
// request holds it.
func (s *bookingService) acquireVehicleLock(ctx context.Context, vehicleID string) (string, error) {
	lockID := fmt.Sprintf("vehicle_lock_%s", vehicleID)

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(lockExpiry),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This vehicle is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire vehicle lock", err)
	}

	return lockID, nil
}

// releaseVehicleLock removes the advisory lock
func (s *bookingService) releaseVehicleLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
