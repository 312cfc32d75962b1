package record

import (
	"context"
	"time"
)

// RecordRepository defines data access methods for attendance records.
// The (user_id, date) pair carries a unique constraint; Upsert must never
// create a second row for the same pair.
type RecordRepository interface {
	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (AttendanceRecord, error)

	// GetByUserAndDate retrieves the record for a user-day, or
	// ErrRecordNotFound when the day has never been processed.
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (AttendanceRecord, error)

	// GetByUserAndDateForUpdate is GetByUserAndDate with a row lock, used
	// inside a processing transaction to serialize concurrent jobs for the
	// same user-day.
	GetByUserAndDateForUpdate(ctx context.Context, userID string, date time.Time) (AttendanceRecord, error)

	// Upsert inserts or fully replaces the computed fields of the record
	// identified by (user_id, date) and returns the stored row.
	Upsert(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error)

	// Update rewrites a record's mutable fields by ID (adjustments,
	// approvals, lock state, status).
	Update(ctx context.Context, record AttendanceRecord) error

	// List retrieves records with filters and pagination
	List(ctx context.Context, filter RecordFilter) ([]AttendanceRecord, int64, error)

	// ListUserIDsForDate returns the distinct users that already hold a
	// record for the given date.
	ListUserIDsForDate(ctx context.Context, date time.Time) ([]string, error)
}
