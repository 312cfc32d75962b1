package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/holiday"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
)

type holidayResolver struct {
	db *database.DB
}

func NewHolidayResolver(db *database.DB) holiday.Resolver {
	return &holidayResolver{db: db}
}

// IsHoliday implements holiday.Resolver. A holiday row with an empty
// scope applies everywhere; otherwise the scope must match.
func (r *holidayResolver) IsHoliday(ctx context.Context, date time.Time, scope string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM holidays
			WHERE date = $1::date
			  AND (location_scope = '' OR location_scope = $2)
		)
	`

	var isHoliday bool
	if err := q.QueryRow(ctx, query, date, scope).Scan(&isHoliday); err != nil {
		return false, fmt.Errorf("failed to check holiday: %w", err)
	}
	return isHoliday, nil
}
