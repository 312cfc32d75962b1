package event

import "errors"

// Event domain errors
var (
	// Ingestion errors
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrUnknownDevice         = errors.New("device is not registered")
	ErrInvalidDeviceKey      = errors.New("device api key is invalid")

	// Quarantine errors
	ErrNotQuarantined  = errors.New("event is not quarantined")
	ErrAlreadyResolved = errors.New("event has already been resolved")

	// General errors
	ErrEventNotFound = errors.New("attendance event not found")
)
