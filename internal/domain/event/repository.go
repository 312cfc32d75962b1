package event

import (
	"context"
	"time"
)

// EventRepository defines data access methods for attendance events.
// The idempotency key carries a unique constraint; Create must surface a
// replay as the already-stored row, never as a duplicate.
type EventRepository interface {
	// Create inserts a new event. When the idempotency key already exists
	// the stored event is returned with created=false.
	Create(ctx context.Context, event AttendanceEvent) (stored AttendanceEvent, created bool, err error)

	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (AttendanceEvent, error)

	// GetByIdempotencyKey retrieves an event by its idempotency key
	GetByIdempotencyKey(ctx context.Context, key string) (AttendanceEvent, error)

	// ListForUserDay returns a user's events whose local timestamp falls on
	// the given local calendar day, ordered ascending by local timestamp.
	ListForUserDay(ctx context.Context, userID string, dayStart, dayEnd time.Time) ([]AttendanceEvent, error)

	// List retrieves events with filters and pagination
	List(ctx context.Context, filter EventFilter) ([]AttendanceEvent, int64, error)

	// ListQuarantined returns every event still awaiting user resolution.
	ListQuarantined(ctx context.Context) ([]AttendanceEvent, error)

	// ListUserIDsForDay returns the distinct resolved users that produced
	// events on the given local day.
	ListUserIDsForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]string, error)

	// Resolve assigns a user to a quarantined event and records who did it.
	Resolve(ctx context.Context, eventID string, userID string, resolvedBy string, resolvedAt time.Time) (AttendanceEvent, error)

	// MarkProcessed transitions the given events to PROCESSED.
	MarkProcessed(ctx context.Context, eventIDs []string) error

	// MarkFailed transitions the given events to FAILED, bumping their
	// retry counters and recording the failure message.
	MarkFailed(ctx context.Context, eventIDs []string, reason string) error
}
