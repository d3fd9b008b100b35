// Package sanitizer provides input normalization functions for rental data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings rather than errors.
//
// Normalization includes:
//   - Free-text fields (vehicle make, model, addresses): collapse whitespace,
//     trim leading/trailing spaces
//   - Labels (statuses, search terms): lowercase on top of whitespace collapse
package sanitizer
