package validator

import (
	"os"
	"testing"
	"time"

	"carhive/pkg/logger"
	"carhive/pkg/model"
)

func testValidator() *BookingValidator {
	log := logger.New(logger.Config{Level: "error", Format: "text", Output: os.Stderr})
	return NewBookingValidator(log)
}

func validBooking() *model.Booking {
	return &model.Booking{
		Vehicle: model.VehicleSnapshot{
			ID:    "66a1b2c3d4e5f6a7b8c9d0e1",
			Make:  "Hyundai",
			Model: "Creta",
		},
		PickupDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		Amount:        18000,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentPending,
	}
}

func TestValidate(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		mutate  func(b *model.Booking)
		wantErr bool
	}{
		{
			name:    "valid booking",
			mutate:  func(b *model.Booking) {},
			wantErr: false,
		},
		{
			name: "same day rental allowed",
			mutate: func(b *model.Booking) {
				b.ReturnDate = b.PickupDate
			},
			wantErr: false,
		},
		{
			name: "return before pickup",
			mutate: func(b *model.Booking) {
				b.ReturnDate = b.PickupDate.AddDate(0, 0, -1)
			},
			wantErr: true,
		},
		{
			name: "missing vehicle",
			mutate: func(b *model.Booking) {
				b.Vehicle = model.VehicleSnapshot{}
			},
			wantErr: true,
		},
		{
			name: "zero amount",
			mutate: func(b *model.Booking) {
				b.Amount = 0
			},
			wantErr: true,
		},
		{
			name: "negative amount",
			mutate: func(b *model.Booking) {
				b.Amount = -100
			},
			wantErr: true,
		},
		{
			name: "unknown status",
			mutate: func(b *model.Booking) {
				b.Status = "parked"
			},
			wantErr: true,
		},
		{
			name: "unknown payment status",
			mutate: func(b *model.Booking) {
				b.PaymentStatus = "maybe"
			},
			wantErr: true,
		},
		{
			name: "details with blank key",
			mutate: func(b *model.Booking) {
				b.Details = model.LooseMap{" ": "x"}
			},
			wantErr: true,
		},
		{
			name: "details with content",
			mutate: func(b *model.Booking) {
				b.Details = model.LooseMap{"license": "DL-1234"}
			},
			wantErr: false,
		},
		{
			name: "malformed id",
			mutate: func(b *model.Booking) {
				b.ID = "not-an-object-id"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(b)

			err := v.Validate(b)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := testValidator()

	pickup := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	ret := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	amount := -5.0

	tests := []struct {
		name    string
		update  *model.BookingUpdate
		wantErr bool
	}{
		{
			name:    "empty update",
			update:  &model.BookingUpdate{},
			wantErr: false,
		},
		{
			name:    "status change",
			update:  &model.BookingUpdate{Status: model.StatusCancelled},
			wantErr: false,
		},
		{
			name:    "invalid status",
			update:  &model.BookingUpdate{Status: "parked"},
			wantErr: true,
		},
		{
			name:    "return before pickup",
			update:  &model.BookingUpdate{PickupDate: &pickup, ReturnDate: &ret},
			wantErr: true,
		},
		{
			name:    "negative amount",
			update:  &model.BookingUpdate{Amount: &amount},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpdate(tt.update)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
