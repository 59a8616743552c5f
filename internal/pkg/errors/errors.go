package errors

import "errors"

// Common application errors shared across services and handlers.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned for authentication failures (bad token, bad credentials).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks permission for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken is returned when a token (e.g. refresh) has expired.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict is returned for state conflicts, such as registering an email
	// that already belongs to a verified account.
	ErrConflict = errors.New("resource state conflict")

	// ErrDeliveryFailure is returned when an outbound email could not be sent.
	// The OTP record is kept; the caller is responsible for retrying.
	ErrDeliveryFailure = errors.New("delivery failure")
)

// FieldErrors maps a field name to its validation messages. It backs the
// details section of the error envelope: {code, message, details: {field: [msgs]}}.
type FieldErrors map[string][]string

// Add appends a message for the given field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Error makes FieldErrors usable as an error value.
func (f FieldErrors) Error() string {
	return "validation failed"
}

// Is reports FieldErrors as a kind of ErrValidation so callers can match it
// with errors.Is without knowing the concrete type.
func (f FieldErrors) Is(target error) bool {
	return target == ErrValidation
}
