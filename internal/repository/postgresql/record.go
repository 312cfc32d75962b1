package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type recordRepository struct {
	db *database.DB
}

func NewRecordRepository(db *database.DB) record.RecordRepository {
	return &recordRepository{db: db}
}

const recordColumns = `id, user_id, date, scheduled_start, scheduled_end, scheduled_minutes,
	   worked_minutes, late_minutes, early_leave_minutes, overtime_minutes,
	   night_minutes, holiday_minutes, status, event_ids, sessions,
	   adjustments, approvals, is_locked, requires_approval,
	   processed_at, processed_by, created_at, updated_at`

func scanRecord(row pgx.Row) (record.AttendanceRecord, error) {
	var rec record.AttendanceRecord
	var sessions, adjustments, approvals []byte

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Date, &rec.ScheduledStart, &rec.ScheduledEnd, &rec.ScheduledMinutes,
		&rec.WorkedMinutes, &rec.LateMinutes, &rec.EarlyLeaveMinutes, &rec.OvertimeMinutes,
		&rec.NightMinutes, &rec.HolidayMinutes, &rec.Status, &rec.EventIDs, &sessions,
		&adjustments, &approvals, &rec.IsLocked, &rec.RequiresApproval,
		&rec.ProcessedAt, &rec.ProcessedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return record.AttendanceRecord{}, err
	}

	if err := json.Unmarshal(sessions, &rec.Sessions); err != nil {
		return record.AttendanceRecord{}, fmt.Errorf("unmarshal sessions: %w", err)
	}
	if err := json.Unmarshal(adjustments, &rec.Adjustments); err != nil {
		return record.AttendanceRecord{}, fmt.Errorf("unmarshal adjustments: %w", err)
	}
	if err := json.Unmarshal(approvals, &rec.Approvals); err != nil {
		return record.AttendanceRecord{}, fmt.Errorf("unmarshal approvals: %w", err)
	}
	return rec, nil
}

func marshalEmbedded(rec record.AttendanceRecord) (sessions, adjustments, approvals []byte, err error) {
	if rec.Sessions == nil {
		rec.Sessions = []record.WorkSession{}
	}
	if rec.Adjustments == nil {
		rec.Adjustments = []record.ManualAdjustment{}
	}
	if rec.Approvals == nil {
		rec.Approvals = []record.Approval{}
	}
	if sessions, err = json.Marshal(rec.Sessions); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal sessions: %w", err)
	}
	if adjustments, err = json.Marshal(rec.Adjustments); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal adjustments: %w", err)
	}
	if approvals, err = json.Marshal(rec.Approvals); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal approvals: %w", err)
	}
	return sessions, adjustments, approvals, nil
}

// GetByID implements record.RecordRepository.
func (r *recordRepository) GetByID(ctx context.Context, id string) (record.AttendanceRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE id = $1`

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.AttendanceRecord{}, record.ErrRecordNotFound
		}
		return record.AttendanceRecord{}, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// GetByUserAndDate implements record.RecordRepository.
func (r *recordRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (record.AttendanceRecord, error) {
	return r.getByUserAndDate(ctx, userID, date, false)
}

// GetByUserAndDateForUpdate implements record.RecordRepository. The row
// lock serializes concurrent processing jobs for the same user-day.
func (r *recordRepository) GetByUserAndDateForUpdate(ctx context.Context, userID string, date time.Time) (record.AttendanceRecord, error) {
	return r.getByUserAndDate(ctx, userID, date, true)
}

func (r *recordRepository) getByUserAndDate(ctx context.Context, userID string, date time.Time, forUpdate bool) (record.AttendanceRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE user_id = $1 AND date = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rec, err := scanRecord(q.QueryRow(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.AttendanceRecord{}, record.ErrRecordNotFound
		}
		return record.AttendanceRecord{}, fmt.Errorf("failed to get record by user and date: %w", err)
	}
	return rec, nil
}

// Upsert implements record.RecordRepository. The (user_id, date) unique
// index makes the lazy-create race safe: the loser of the race updates.
func (r *recordRepository) Upsert(ctx context.Context, rec record.AttendanceRecord) (record.AttendanceRecord, error) {
	q := GetQuerier(ctx, r.db)

	sessions, adjustments, approvals, err := marshalEmbedded(rec)
	if err != nil {
		return record.AttendanceRecord{}, err
	}
	if rec.EventIDs == nil {
		rec.EventIDs = []string{}
	}

	query := `
		INSERT INTO attendance_records (
			id, user_id, date, scheduled_start, scheduled_end, scheduled_minutes,
			worked_minutes, late_minutes, early_leave_minutes, overtime_minutes,
			night_minutes, holiday_minutes, status, event_ids, sessions,
			adjustments, approvals, is_locked, requires_approval,
			processed_at, processed_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (user_id, date) DO UPDATE SET
			scheduled_start = EXCLUDED.scheduled_start,
			scheduled_end = EXCLUDED.scheduled_end,
			scheduled_minutes = EXCLUDED.scheduled_minutes,
			worked_minutes = EXCLUDED.worked_minutes,
			late_minutes = EXCLUDED.late_minutes,
			early_leave_minutes = EXCLUDED.early_leave_minutes,
			overtime_minutes = EXCLUDED.overtime_minutes,
			night_minutes = EXCLUDED.night_minutes,
			holiday_minutes = EXCLUDED.holiday_minutes,
			status = EXCLUDED.status,
			event_ids = EXCLUDED.event_ids,
			sessions = EXCLUDED.sessions,
			requires_approval = EXCLUDED.requires_approval,
			processed_at = EXCLUDED.processed_at,
			processed_by = EXCLUDED.processed_by,
			updated_at = NOW()
		RETURNING ` + recordColumns

	stored, err := scanRecord(q.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.Date, rec.ScheduledStart, rec.ScheduledEnd, rec.ScheduledMinutes,
		rec.WorkedMinutes, rec.LateMinutes, rec.EarlyLeaveMinutes, rec.OvertimeMinutes,
		rec.NightMinutes, rec.HolidayMinutes, rec.Status, rec.EventIDs, sessions,
		adjustments, approvals, rec.IsLocked, rec.RequiresApproval,
		rec.ProcessedAt, rec.ProcessedBy,
	))
	if err != nil {
		return record.AttendanceRecord{}, fmt.Errorf("failed to upsert record: %w", err)
	}
	return stored, nil
}

// Update implements record.RecordRepository.
func (r *recordRepository) Update(ctx context.Context, rec record.AttendanceRecord) error {
	q := GetQuerier(ctx, r.db)

	sessions, adjustments, approvals, err := marshalEmbedded(rec)
	if err != nil {
		return err
	}
	if rec.EventIDs == nil {
		rec.EventIDs = []string{}
	}

	query := `
		UPDATE attendance_records SET
			scheduled_start = $2, scheduled_end = $3, scheduled_minutes = $4,
			worked_minutes = $5, late_minutes = $6, early_leave_minutes = $7,
			overtime_minutes = $8, night_minutes = $9, holiday_minutes = $10,
			status = $11, event_ids = $12, sessions = $13,
			adjustments = $14, approvals = $15, is_locked = $16,
			requires_approval = $17, processed_at = $18, processed_by = $19,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		rec.ID, rec.ScheduledStart, rec.ScheduledEnd, rec.ScheduledMinutes,
		rec.WorkedMinutes, rec.LateMinutes, rec.EarlyLeaveMinutes,
		rec.OvertimeMinutes, rec.NightMinutes, rec.HolidayMinutes,
		rec.Status, rec.EventIDs, sessions,
		adjustments, approvals, rec.IsLocked,
		rec.RequiresApproval, rec.ProcessedAt, rec.ProcessedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return record.ErrRecordNotFound
	}
	return nil
}

// ListUserIDsForDate implements record.RecordRepository.
func (r *recordRepository) ListUserIDsForDate(ctx context.Context, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT user_id FROM attendance_records WHERE date = $1`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids for date: %w", err)
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

// List implements record.RecordRepository.
func (r *recordRepository) List(ctx context.Context, filter record.RecordFilter) ([]record.AttendanceRecord, int64, error) {
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
	if filter.Status != nil {
		addArg("status = $%d", *filter.Status)
	}
	if filter.StartDate != nil {
		addArg("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		addArg("date <= $%d", *filter.EndDate)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM attendance_records WHERE ` + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE `+whereClause+`
		ORDER BY date DESC, user_id ASC
		LIMIT $%d OFFSET $%d
	`, argPos, argPos+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []record.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}
