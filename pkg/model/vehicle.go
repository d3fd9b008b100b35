package model

import (
	"time"
)

// Vehicle is a catalog entry. Reservations is a denormalized mirror of the
// blocking bookings held against this vehicle; the booking ledger stays the
// source of truth and the coordinator keeps both in step inside one
// transaction.
type Vehicle struct {
	ID           string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Make         string               `json:"make" bson:"make" validate:"required,min=1,max=60"`
	Model        string               `json:"model" bson:"model" validate:"required,min=1,max=60"`
	Year         int                  `json:"year,omitempty" bson:"year,omitempty" validate:"omitempty,min=1950,max=2100"`
	PricePerDay  float64              `json:"price_per_day" bson:"price_per_day" validate:"required,gt=0"`
	Image        string               `json:"image,omitempty" bson:"image,omitempty"`
	Description  string               `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	Features     []string             `json:"features,omitempty" bson:"features,omitempty" validate:"omitempty,dive,min=1,max=60"`
	Reservations []ReservationSummary `json:"reservations" bson:"reservations"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// ReservationSummary is the per-vehicle mirror entry for one booking.
type ReservationSummary struct {
	BookingID  string    `json:"booking_id" bson:"booking_id"`
	PickupDate time.Time `json:"pickup_date" bson:"pickup_date"`
	ReturnDate time.Time `json:"return_date" bson:"return_date"`
	Status     string    `json:"status" bson:"status"`
}

// VehicleSnapshot is the subset of vehicle fields frozen onto a booking at
// creation time, so the booking stays displayable if the catalog entry changes.
type VehicleSnapshot struct {
	ID          string  `json:"id" bson:"id" validate:"required"`
	Make        string  `json:"make,omitempty" bson:"make,omitempty"`
	Model       string  `json:"model,omitempty" bson:"model,omitempty"`
	Year        int     `json:"year,omitempty" bson:"year,omitempty"`
	PricePerDay float64 `json:"price_per_day,omitempty" bson:"price_per_day,omitempty"`
	Image       string  `json:"image,omitempty" bson:"image,omitempty"`
}

// VehicleUpdate carries the mutable catalog fields. Nil pointers and empty
// strings mean "leave unchanged".
type VehicleUpdate struct {
	Make        string    `json:"make,omitempty" validate:"omitempty,min=1,max=60"`
	Model       string    `json:"model,omitempty" validate:"omitempty,min=1,max=60"`
	Year        *int      `json:"year,omitempty" validate:"omitempty,min=1950,max=2100"`
	PricePerDay *float64  `json:"price_per_day,omitempty" validate:"omitempty,gt=0"`
	Image       string    `json:"image,omitempty"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Features    *[]string `json:"features,omitempty" validate:"omitempty,dive,min=1,max=60"`
}

// Snapshot freezes the display fields of the vehicle for embedding in a booking.
func (v *Vehicle) Snapshot() VehicleSnapshot {
	return VehicleSnapshot{
		ID:          v.ID,
		Make:        v.Make,
		Model:       v.Model,
		Year:        v.Year,
		PricePerDay: v.PricePerDay,
		Image:       v.Image,
	}
}

// DisplayName is the human-readable label used on checkout pages and events.
func (s VehicleSnapshot) DisplayName() string {
	switch {
	case s.Make != "" && s.Model != "":
		return s.Make + " " + s.Model
	case s.Make != "":
		return s.Make
	case s.Model != "":
		return s.Model
	default:
		return "Vehicle"
	}
}
