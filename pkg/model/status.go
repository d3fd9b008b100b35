package model

import "time"

// Booking lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusUpcoming  = "upcoming"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment statuses tracked on the booking.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// BlockingStatuses are the statuses that hold a vehicle's dates. Completed and
// cancelled bookings never conflict with new reservations.
var BlockingStatuses = []string{StatusPending, StatusActive, StatusUpcoming}

// IsBlocking reports whether a booking in the given status occupies its dates.
func IsBlocking(status string) bool {
	for _, s := range BlockingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OverlapsRange reports whether two date ranges share at least one day.
// Ranges are closed on both ends: a booking returning on the day another
// picks up is a conflict, since handover happens within the day.
func OverlapsRange(pickupA, returnA, pickupB, returnB time.Time) bool {
	return !pickupA.After(returnB) && !returnA.Before(pickupB)
}
