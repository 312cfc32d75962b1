package record

import (
	"context"
	"time"
)

// ProcessingService is the record lifecycle manager: it owns the per
// user-day reconciliation pass and the manual operations on a record.
type ProcessingService interface {
	// ProcessUserDay recomputes the record for one user-day inside its own
	// transaction. A locked record is a logged no-op and is returned
	// unchanged.
	ProcessUserDay(ctx context.Context, userID string, date time.Time, actor string) (AttendanceRecord, error)

	// Approve appends a locking approval; subsequent automated
	// reprocessing skips the record until it is unlocked.
	Approve(ctx context.Context, req ApproveRequest) (RecordResponse, error)

	// Unlock clears the lock so automated reprocessing may resume.
	Unlock(ctx context.Context, recordID string, actorID string) (RecordResponse, error)

	// Adjust appends a manual correction with before/after snapshots.
	// Clock-time edits trigger recomputation; status overrides do not.
	Adjust(ctx context.Context, req AdjustRequest) (RecordResponse, error)

	// GetRecord retrieves a single record by ID
	GetRecord(ctx context.Context, id string) (RecordResponse, error)

	// ListRecords retrieves records with filters (admin)
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordsResponse, error)
}

// BatchService drives the processing pipeline across user sets and date
// ranges, one independent transactional unit per user-day.
type BatchService interface {
	// ProcessDay processes every given user (or every user with events
	// that day) for one date and reports aggregate counts.
	ProcessDay(ctx context.Context, date time.Time, userIDs []string) (BatchResult, error)

	// ReprocessRange reprocesses each day of the inclusive range for one
	// user. Running it twice over unchanged events converges to the same
	// records.
	ReprocessRange(ctx context.Context, userID string, start, end time.Time) ([]RecordResponse, error)
}
