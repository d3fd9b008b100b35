package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "carhive/internal/bookings/errors"
	"carhive/pkg/config"
	"carhive/pkg/model"
)

const VehicleCollectionName = "Vehicles"

// VehicleMirrorRepository maintains the reservation summaries embedded in
// vehicle documents. Every mutation here runs inside the same transaction as
// the corresponding ledger write; the mirror is never updated on its own.
type VehicleMirrorRepository interface {
	FindVehicle(ctx context.Context, id string) (*model.Vehicle, error)
	PushReservation(ctx context.Context, vehicleID string, entry model.ReservationSummary) error
	PullReservation(ctx context.Context, vehicleID string, bookingID string) error
	UpdateReservation(ctx context.Context, vehicleID string, entry model.ReservationSummary) error
	SetReservationStatus(ctx context.Context, vehicleID string, bookingID string, status string) error
}

type mongoVehicleMirrorRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewVehicleMirrorRepository(cfg *config.Config) VehicleMirrorRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVehicleMirrorRepository{
		cfg:        cfg,
		collection: db.Collection(VehicleCollectionName),
	}
}

func (r *mongoVehicleMirrorRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoVehicleMirrorRepository) FindVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidVehicleID, id)
	}

	var vehicle model.Vehicle
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}

	return &vehicle, nil
}

func (r *mongoVehicleMirrorRepository) PushReservation(ctx context.Context, vehicleID string, entry model.ReservationSummary) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidVehicleID, vehicleID)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$push": bson.M{"reservations": entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to push reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrVehicleNotFound
	}
	return nil
}

func (r *mongoVehicleMirrorRepository) PullReservation(ctx context.Context, vehicleID string, bookingID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidVehicleID, vehicleID)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$pull": bson.M{"reservations": bson.M{"booking_id": bookingID}}},
	)
	if err != nil {
		return fmt.Errorf("failed to pull reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrVehicleNotFound
	}
	return nil
}

func (r *mongoVehicleMirrorRepository) UpdateReservation(ctx context.Context, vehicleID string, entry model.ReservationSummary) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidVehicleID, vehicleID)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "reservations.booking_id": entry.BookingID},
		bson.M{"$set": bson.M{"reservations.$": entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrVehicleNotFound
	}
	return nil
}

func (r *mongoVehicleMirrorRepository) SetReservationStatus(ctx context.Context, vehicleID string, bookingID string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidVehicleID, vehicleID)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "reservations.booking_id": bookingID},
		bson.M{"$set": bson.M{"reservations.$.status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to set reservation status: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrVehicleNotFound
	}
	return nil
}
