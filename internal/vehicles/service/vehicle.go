package service

import (
	"context"
	"errors"
	"io"
	"time"

	vehicleerrors "carhive/internal/vehicles/errors"
	"carhive/internal/vehicles/repository"
	"carhive/internal/vehicles/validator"
	"carhive/pkg/config"
	apperrors "carhive/pkg/errors"
	"carhive/pkg/model"
	"carhive/pkg/sanitizer"
)

// ImageStore persists vehicle images. Save returns a serving reference;
// Release reclaims a locally stored one.
type ImageStore interface {
	Save(r io.Reader, originalName string) (string, error)
	Release(ref string)
	IsLocal(ref string) bool
}

// CreateInput carries a new catalog entry. Image is an external URL;
// ImageUpload, when set, is an uploaded file that takes precedence.
type CreateInput struct {
	Make        string
	Model       string
	Year        int
	PricePerDay float64
	Description string
	Features    []string
	Image       string
	ImageUpload io.Reader
	ImageName   string
}

// UpdateInput wraps the mutable fields plus an optional image upload.
type UpdateInput struct {
	Update      *model.VehicleUpdate
	ImageUpload io.Reader
	ImageName   string
}

// AvailabilityResult reports whether a date range is free and which mirror
// entries block it when it is not.
type AvailabilityResult struct {
	Available bool                       `json:"available"`
	Conflicts []model.ReservationSummary `json:"conflicts,omitempty"`
}

type VehicleService interface {
	Create(ctx context.Context, in *CreateInput) (*model.Vehicle, error)
	GetByID(ctx context.Context, id string) (*model.Vehicle, error)
	List(ctx context.Context, filter repository.SearchFilter, limit int, offset int64) ([]*model.Vehicle, int64, error)
	Update(ctx context.Context, id string, in *UpdateInput) (*model.Vehicle, error)
	Delete(ctx context.Context, id string) error
	CheckAvailability(ctx context.Context, id string, pickup, returnDate time.Time) (*AvailabilityResult, error)
}

type vehicleService struct {
	repo      repository.VehicleRepository
	validator *validator.VehicleValidator
	images    ImageStore
	cfg       *config.Config
}

func NewVehicleService(
	repo repository.VehicleRepository,
	validator *validator.VehicleValidator,
	images ImageStore,
	cfg *config.Config,
) VehicleService {
	return &vehicleService{
		repo:      repo,
		validator: validator,
		images:    images,
		cfg:       cfg,
	}
}

func (s *vehicleService) Create(ctx context.Context, in *CreateInput) (*model.Vehicle, error) {
	vehicle := &model.Vehicle{
		Make:        sanitizer.NormalizeName(in.Make),
		Model:       sanitizer.NormalizeName(in.Model),
		Year:        in.Year,
		PricePerDay: in.PricePerDay,
		Image:       in.Image,
		Description: sanitizer.TrimAndNormalize(in.Description),
		Features:    normalizeFeatures(in.Features),
	}

	if in.ImageUpload != nil {
		ref, err := s.images.Save(in.ImageUpload, in.ImageName)
		if err != nil {
			return nil, err
		}
		vehicle.Image = ref
	}

	if err := s.validator.Validate(vehicle); err != nil {
		s.releaseUpload(vehicle.Image, in)
		s.cfg.Log.Warn("Vehicle validation failed", "error", err)
		return nil, apperrors.Validation("Vehicle validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, vehicle); err != nil {
		s.releaseUpload(vehicle.Image, in)
		return nil, apperrors.Internal("Failed to create vehicle", err)
	}

	s.cfg.Log.Info("Vehicle created",
		"id", vehicle.ID,
		"make", vehicle.Make,
		"model", vehicle.Model,
	)

	return vehicle, nil
}

// releaseUpload reclaims a freshly stored upload when the create does not land.
func (s *vehicleService) releaseUpload(ref string, in *CreateInput) {
	if in.ImageUpload != nil && s.images.IsLocal(ref) {
		s.images.Release(ref)
	}
}

func normalizeFeatures(features []string) []string {
	if len(features) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(features))
	for _, f := range features {
		if clean := sanitizer.NormalizeLabel(f); clean != "" {
			normalized = append(normalized, clean)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

func (s *vehicleService) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return vehicle, nil
}

func (s *vehicleService) List(ctx context.Context, filter repository.SearchFilter, limit int, offset int64) ([]*model.Vehicle, int64, error) {
	vehicles, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list vehicles", err)
	}

	total, err := s.repo.CountSearch(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count vehicles", err)
	}

	return vehicles, total, nil
}

func (s *vehicleService) Update(ctx context.Context, id string, in *UpdateInput) (*model.Vehicle, error) {
	update := in.Update
	if update == nil {
		update = &model.VehicleUpdate{}
	}

	update.Make = sanitizer.NormalizeName(update.Make)
	update.Model = sanitizer.NormalizeName(update.Model)
	if update.Features != nil {
		features := normalizeFeatures(*update.Features)
		if features == nil {
			features = []string{}
		}
		update.Features = &features
	}

	if in.ImageUpload != nil {
		ref, err := s.images.Save(in.ImageUpload, in.ImageName)
		if err != nil {
			return nil, err
		}
		update.Image = ref
	}

	if err := s.validator.ValidateUpdate(update); err != nil {
		if in.ImageUpload != nil && s.images.IsLocal(update.Image) {
			s.images.Release(update.Image)
		}
		s.cfg.Log.Warn("Vehicle update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	var previousImage string
	if update.Image != "" {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if in.ImageUpload != nil && s.images.IsLocal(update.Image) {
				s.images.Release(update.Image)
			}
			return nil, mapLookupError(err, id)
		}
		previousImage = current.Image
	}

	vehicle, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if in.ImageUpload != nil && s.images.IsLocal(update.Image) {
			s.images.Release(update.Image)
		}
		return nil, mapLookupError(err, id)
	}

	if previousImage != "" && previousImage != vehicle.Image && s.images.IsLocal(previousImage) {
		s.images.Release(previousImage)
	}

	s.cfg.Log.Info("Vehicle updated", "id", id)

	return vehicle, nil
}

// Delete removes a catalog entry. Vehicles with reservations that still hold
// dates cannot be removed; cancel or complete those bookings first.
func (s *vehicleService) Delete(ctx context.Context, id string) error {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err, id)
	}

	today := time.Now().Truncate(24 * time.Hour)
	for _, res := range vehicle.Reservations {
		if model.IsBlocking(res.Status) && !res.ReturnDate.Before(today) {
			return apperrors.Conflict("Vehicle has active or upcoming reservations")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err, id)
	}

	if s.images.IsLocal(vehicle.Image) {
		s.images.Release(vehicle.Image)
	}

	s.cfg.Log.Info("Vehicle deleted", "id", id)

	return nil
}

// CheckAvailability scans the reservation mirror for blocking entries that
// share days with the requested range.
func (s *vehicleService) CheckAvailability(ctx context.Context, id string, pickup, returnDate time.Time) (*AvailabilityResult, error) {
	if returnDate.Before(pickup) {
		return nil, apperrors.InvalidInput("return date must not be before pickup date")
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	var conflicts []model.ReservationSummary
	for _, res := range vehicle.Reservations {
		if model.IsBlocking(res.Status) && model.OverlapsRange(pickup, returnDate, res.PickupDate, res.ReturnDate) {
			conflicts = append(conflicts, res)
		}
	}

	return &AvailabilityResult{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}

func mapLookupError(err error, id string) error {
	switch {
	case errors.Is(err, vehicleerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Vehicle", id)
	case errors.Is(err, vehicleerrors.ErrInvalidID):
		return apperrors.InvalidInput("invalid vehicle id")
	default:
		return apperrors.Internal("Vehicle lookup failed", err)
	}
}
