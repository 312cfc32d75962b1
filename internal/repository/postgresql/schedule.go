package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type scheduleResolver struct {
	db *database.DB
}

func NewScheduleResolver(db *database.DB) schedule.Resolver {
	return &scheduleResolver{db: db}
}

// EffectiveShift implements schedule.Resolver. Resolution priority:
// a dated assignment override first, then the user's default shift,
// both constrained to the weekday of the requested date.
func (r *scheduleResolver) EffectiveShift(ctx context.Context, userID string, date time.Time) (*schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH target_shift AS (
			SELECT COALESCE(
				(
					SELECT shift_id
					FROM user_shift_assignments
					WHERE user_id = $1
					  AND $2::date BETWEEN start_date AND end_date
					LIMIT 1
				),
				(
					SELECT default_shift_id
					FROM users
					WHERE id = $1
				)
			) AS id
		)
		SELECT to_char(ws.start_time, 'HH24:MI'), to_char(ws.end_time, 'HH24:MI')
		FROM target_shift ts
		JOIN work_shifts ws ON ws.id = ts.id
			AND ws.day_of_week = EXTRACT(ISODOW FROM $2::date)::int
		WHERE ws.deleted_at IS NULL
	`

	var shift schedule.Shift
	err := q.QueryRow(ctx, query, userID, date).Scan(&shift.StartTime, &shift.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No schedule that day.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve effective shift: %w", err)
	}
	return &shift, nil
}
