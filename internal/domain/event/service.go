package event

import (
	"context"
)

// IngestionService defines business logic for the event ingestion gateway.
type IngestionService interface {
	// Ingest validates, deduplicates and stores a clock event, then
	// enqueues processing of the owning user-day. Replaying an
	// idempotency key returns the stored event unchanged.
	Ingest(ctx context.Context, req IngestRequest) (EventResponse, bool, error)

	// ResolveQuarantine assigns a user to a quarantined event and triggers
	// reprocessing of that user's day.
	ResolveQuarantine(ctx context.Context, req ResolveQuarantineRequest) (EventResponse, error)

	// RetryQuarantined re-attempts the device mapping lookup for all
	// quarantined events and auto-resolves the ones that now match.
	RetryQuarantined(ctx context.Context) (int, error)

	// ListEvents retrieves events with filters (admin)
	ListEvents(ctx context.Context, filter EventFilter) (ListEventsResponse, error)

	// ListQuarantined retrieves all events awaiting manual triage.
	ListQuarantined(ctx context.Context) ([]EventResponse, error)

	// GetEvent retrieves a single event by ID
	GetEvent(ctx context.Context, id string) (EventResponse, error)
}
