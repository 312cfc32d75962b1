package event

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// ========================================
// EVENT DTOs
// ========================================

// IngestRequest is the webhook payload sent by a terminal, plus the
// headers the gateway needs. RawPayload holds the exact bytes the
// signature was computed over.
type IngestRequest struct {
	TerminalUserID string `json:"terminal_user_id"`
	DeviceID       string `json:"device_id"`
	EventType      string `json:"event_type"`
	Timestamp      string `json:"timestamp"`

	IdempotencyKey string  `json:"-"`
	Signature      *string `json:"-"`
	APIKey         string  `json:"-"`
	RawPayload     []byte  `json:"-"`
}

func (r *IngestRequest) Validate() error {
	if validator.IsEmpty(r.IdempotencyKey) {
		return ErrMissingIdempotencyKey
	}

	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TerminalUserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "terminal_user_id",
			Message: "terminal_user_id is required",
		})
	}

	if validator.IsEmpty(r.DeviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id is required",
		})
	}

	if r.EventType != string(TypeClockIn) && r.EventType != string(TypeClockOut) {
		errs = append(errs, validator.ValidationError{
			Field:   "event_type",
			Message: "event_type must be CLOCK_IN or CLOCK_OUT",
		})
	}

	if _, ok := validator.IsValidDateTime(r.Timestamp); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be a valid RFC3339 datetime",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// OccurredAt parses the payload timestamp. Validate must have passed.
func (r *IngestRequest) OccurredAt() time.Time {
	t, _ := validator.IsValidDateTime(r.Timestamp)
	return t.UTC()
}

type ResolveQuarantineRequest struct {
	EventID      string `json:"-"`
	TargetUserID string `json:"target_user_id"`
	ActorID      string `json:"-"`
}

func (r *ResolveQuarantineRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TargetUserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "target_user_id",
			Message: "target_user_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EventFilter struct {
	UserID    *string
	DeviceID  *string
	Status    *string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

type EventResponse struct {
	ID              string  `json:"id"`
	UserID          *string `json:"user_id"`
	TerminalUserID  string  `json:"terminal_user_id"`
	DeviceID        string  `json:"device_id"`
	EventType       string  `json:"event_type"`
	OccurredAt      string  `json:"occurred_at"`
	OccurredAtLocal string  `json:"occurred_at_local"`
	IdempotencyKey  string  `json:"idempotency_key"`
	SignatureValid  *bool   `json:"signature_valid"`
	Status          string  `json:"status"`
	RetryCount      int     `json:"retry_count"`
	FailureReason   *string `json:"failure_reason,omitempty"`
	ResolvedBy      *string `json:"resolved_by,omitempty"`
	ResolvedAt      *string `json:"resolved_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type ListEventsResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Events     []EventResponse `json:"events"`
}
