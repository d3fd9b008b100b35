package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrVehicleNotFound = errors.New("vehicle not found")

	ErrInvalidVehicleID = errors.New("invalid vehicle ID format")

	ErrDateConflict = errors.New("vehicle is already booked for the requested dates")

	ErrInvalidDateRange = errors.New("return date must not be before pickup date")
)
