package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/device"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Event domain errors
	case errors.Is(err, event.ErrMissingIdempotencyKey):
		BadRequest(w, "Idempotency-Key header is required", nil)
	case errors.Is(err, event.ErrUnknownDevice):
		Unauthorized(w, "Unknown device")
	case errors.Is(err, event.ErrInvalidDeviceKey):
		Unauthorized(w, "Invalid device API key")
	case errors.Is(err, event.ErrEventNotFound):
		NotFound(w, "Event not found")
	case errors.Is(err, event.ErrNotQuarantined):
		Conflict(w, "Event is not quarantined")
	case errors.Is(err, event.ErrAlreadyResolved):
		Conflict(w, "Event already resolved")

	// Record domain errors
	case errors.Is(err, record.ErrRecordNotFound):
		NotFound(w, "Record not found")
	case errors.Is(err, record.ErrRecordLocked):
		Conflict(w, "Record is locked by an approval")
	case errors.Is(err, record.ErrNotLocked):
		Conflict(w, "Record is not locked")
	case errors.Is(err, record.ErrReasonTooShort):
		BadRequest(w, "Adjustment reason is too short", nil)
	case errors.Is(err, record.ErrInvalidAdjustment):
		BadRequest(w, "Invalid adjustment", nil)

	// Device domain errors
	case errors.Is(err, device.ErrDeviceNotFound):
		NotFound(w, "Device not found")
	case errors.Is(err, device.ErrMappingNotFound):
		NotFound(w, "Device user mapping not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
