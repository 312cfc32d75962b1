package event

import (
	"time"
)

// Type is the clock action reported by a terminal.
type Type string

const (
	TypeClockIn  Type = "CLOCK_IN"
	TypeClockOut Type = "CLOCK_OUT"
)

// Status is the processing state of an ingested event.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusProcessed   Status = "PROCESSED"
	StatusFailed      Status = "FAILED"
	StatusQuarantined Status = "QUARANTINED"
)

// AttendanceEvent is an immutable clock fact reported by a biometric
// terminal. Rows are only ever mutated by status transitions (process,
// fail, quarantine-resolve); the clock data itself never changes.
type AttendanceEvent struct {
	ID              string
	UserID          *string
	TerminalUserID  string
	DeviceID        string
	EventType       Type
	OccurredAt      time.Time
	OccurredAtLocal time.Time
	IdempotencyKey  string
	SignatureValid  *bool
	Status          Status
	RetryCount      int
	FailureReason   *string
	ResolvedBy      *string
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsQuarantined reports whether the event still awaits user resolution.
func (e AttendanceEvent) IsQuarantined() bool {
	return e.Status == StatusQuarantined && e.UserID == nil
}
