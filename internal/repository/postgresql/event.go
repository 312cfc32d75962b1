package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type eventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) event.EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, user_id, terminal_user_id, device_id, event_type,
	   occurred_at, occurred_at_local, idempotency_key, signature_valid,
	   status, retry_count, failure_reason, resolved_by, resolved_at,
	   created_at, updated_at`

func scanEvent(row pgx.Row) (event.AttendanceEvent, error) {
	var e event.AttendanceEvent
	err := row.Scan(
		&e.ID, &e.UserID, &e.TerminalUserID, &e.DeviceID, &e.EventType,
		&e.OccurredAt, &e.OccurredAtLocal, &e.IdempotencyKey, &e.SignatureValid,
		&e.Status, &e.RetryCount, &e.FailureReason, &e.ResolvedBy, &e.ResolvedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// Create implements event.EventRepository. The insert races against
// concurrent replays of the same idempotency key; ON CONFLICT DO NOTHING
// plus a follow-up read makes the replay return the stored row.
func (r *eventRepository) Create(ctx context.Context, e event.AttendanceEvent) (event.AttendanceEvent, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_events (
			id, user_id, terminal_user_id, device_id, event_type,
			occurred_at, occurred_at_local, idempotency_key, signature_valid, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING ` + eventColumns

	stored, err := scanEvent(q.QueryRow(ctx, query,
		e.ID, e.UserID, e.TerminalUserID, e.DeviceID, e.EventType,
		e.OccurredAt, e.OccurredAtLocal, e.IdempotencyKey, e.SignatureValid, e.Status,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return event.AttendanceEvent{}, false, fmt.Errorf("failed to create event: %w", err)
	}

	// Conflict: the key already exists, return the original row.
	existing, err := r.GetByIdempotencyKey(ctx, e.IdempotencyKey)
	if err != nil {
		return event.AttendanceEvent{}, false, err
	}
	return existing, false, nil
}

// GetByID implements event.EventRepository.
func (r *eventRepository) GetByID(ctx context.Context, id string) (event.AttendanceEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE id = $1`

	e, err := scanEvent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.AttendanceEvent{}, event.ErrEventNotFound
		}
		return event.AttendanceEvent{}, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetByIdempotencyKey implements event.EventRepository.
func (r *eventRepository) GetByIdempotencyKey(ctx context.Context, key string) (event.AttendanceEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE idempotency_key = $1`

	e, err := scanEvent(q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.AttendanceEvent{}, event.ErrEventNotFound
		}
		return event.AttendanceEvent{}, fmt.Errorf("failed to get event by idempotency key: %w", err)
	}
	return e, nil
}

// ListForUserDay implements event.EventRepository. Local-timestamp order
// is the pairing engine's input contract.
func (r *eventRepository) ListForUserDay(ctx context.Context, userID string, dayStart, dayEnd time.Time) ([]event.AttendanceEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE user_id = $1
		  AND occurred_at_local >= $2
		  AND occurred_at_local < $3
		  AND status != 'QUARANTINED'
		ORDER BY occurred_at_local ASC
	`

	rows, err := q.Query(ctx, query, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for user day: %w", err)
	}
	defer rows.Close()

	var events []event.AttendanceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// List implements event.EventRepository.
func (r *eventRepository) List(ctx context.Context, filter event.EventFilter) ([]event.AttendanceEvent, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := []string{"1=1"}
	args := []interface{}{}
	argPos := 1

	addArg := func(clause string, value interface{}) {
		where = append(where, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.UserID != nil {
		addArg("user_id = $%d", *filter.UserID)
	}
	if filter.DeviceID != nil {
		addArg("device_id = $%d", *filter.DeviceID)
	}
	if filter.Status != nil {
		addArg("status = $%d", *filter.Status)
	}
	if filter.StartDate != nil {
		addArg("occurred_at_local >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		addArg("occurred_at_local < $%d", *filter.EndDate)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM attendance_events WHERE ` + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE `+whereClause+`
		ORDER BY occurred_at DESC
		LIMIT $%d OFFSET $%d
	`, argPos, argPos+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.AttendanceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// ListQuarantined implements event.EventRepository.
func (r *eventRepository) ListQuarantined(ctx context.Context) ([]event.AttendanceEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE status = 'QUARANTINED' AND user_id IS NULL
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantined events: %w", err)
	}
	defer rows.Close()

	var events []event.AttendanceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListUserIDsForDay implements event.EventRepository.
func (r *eventRepository) ListUserIDsForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT user_id
		FROM attendance_events
		WHERE user_id IS NOT NULL
		  AND occurred_at_local >= $1
		  AND occurred_at_local < $2
	`

	rows, err := q.Query(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids for day: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

// Resolve implements event.EventRepository. The user_id IS NULL guard
// keeps two racing resolvers from both claiming the event.
func (r *eventRepository) Resolve(ctx context.Context, eventID string, userID string, resolvedBy string, resolvedAt time.Time) (event.AttendanceEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_events
		SET user_id = $2, status = 'PENDING',
			resolved_by = $3, resolved_at = $4, updated_at = NOW()
		WHERE id = $1 AND user_id IS NULL AND status = 'QUARANTINED'
		RETURNING ` + eventColumns

	e, err := scanEvent(q.QueryRow(ctx, query, eventID, userID, resolvedBy, resolvedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.AttendanceEvent{}, event.ErrNotQuarantined
		}
		return event.AttendanceEvent{}, fmt.Errorf("failed to resolve event: %w", err)
	}
	return e, nil
}

// MarkProcessed implements event.EventRepository.
func (r *eventRepository) MarkProcessed(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_events
		SET status = 'PROCESSED', failure_reason = NULL, updated_at = NOW()
		WHERE id = ANY($1)
	`
	if _, err := q.Exec(ctx, query, eventIDs); err != nil {
		return fmt.Errorf("failed to mark events processed: %w", err)
	}
	return nil
}

// MarkFailed implements event.EventRepository.
func (r *eventRepository) MarkFailed(ctx context.Context, eventIDs []string, reason string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_events
		SET status = 'FAILED', failure_reason = $2,
			retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = ANY($1)
	`
	if _, err := q.Exec(ctx, query, eventIDs, reason); err != nil {
		return fmt.Errorf("failed to mark events failed: %w", err)
	}
	return nil
}
