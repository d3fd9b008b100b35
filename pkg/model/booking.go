package model

import (
	"time"
)

// Booking is the ledger record for a rental. It is the source of truth;
// vehicles carry a denormalized reservation summary for fast availability
// checks.
type Booking struct {
	ID              string          `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID          string          `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Vehicle         VehicleSnapshot `json:"vehicle" bson:"vehicle" validate:"required"`
	VehicleImage    string          `json:"vehicle_image,omitempty" bson:"vehicle_image,omitempty"`
	PickupDate      time.Time       `json:"pickup_date" bson:"pickup_date" validate:"required"`
	ReturnDate      time.Time       `json:"return_date" bson:"return_date" validate:"required,gtefield=PickupDate"`
	Amount          float64         `json:"amount" bson:"amount" validate:"required,gt=0"`
	Currency        string          `json:"currency,omitempty" bson:"currency,omitempty"`
	Details         LooseMap        `json:"details,omitempty" bson:"details,omitempty" validate:"omitempty,loose_map"`
	Address         LooseMap        `json:"address,omitempty" bson:"address,omitempty" validate:"omitempty,loose_map"`
	Status          string          `json:"status" bson:"status" validate:"required,oneof=pending upcoming active completed cancelled"`
	PaymentStatus   string          `json:"payment_status" bson:"payment_status" validate:"required,oneof=pending paid"`
	SessionID       string          `json:"session_id,omitempty" bson:"session_id,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	Payment         *PaymentDetails `json:"payment_details,omitempty" bson:"payment_details,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// PaymentDetails records what the provider actually charged, in the
// currency's minor unit.
type PaymentDetails struct {
	AmountTotal int64  `json:"amount_total" bson:"amount_total"`
	Currency    string `json:"currency" bson:"currency"`
}

// BookingUpdate carries the mutable booking fields. Nil pointers and empty
// strings mean "leave unchanged".
type BookingUpdate struct {
	Vehicle      *VehicleRef `json:"vehicle,omitempty" validate:"omitempty"`
	PickupDate   *time.Time  `json:"pickup_date,omitempty" validate:"omitempty"`
	ReturnDate   *time.Time  `json:"return_date,omitempty" validate:"omitempty"`
	Amount       *float64    `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Details      *LooseMap   `json:"details,omitempty" validate:"omitempty"`
	Address      *LooseMap   `json:"address,omitempty" validate:"omitempty"`
	Status       string      `json:"status,omitempty" validate:"omitempty,oneof=pending upcoming active completed cancelled"`
	VehicleImage string      `json:"vehicle_image,omitempty" validate:"omitempty"`
}

// ToSummary projects the booking onto the reservation entry embedded in its
// vehicle document.
func (b *Booking) ToSummary() ReservationSummary {
	return ReservationSummary{
		BookingID:  b.ID,
		PickupDate: b.PickupDate,
		ReturnDate: b.ReturnDate,
		Status:     b.Status,
	}
}
