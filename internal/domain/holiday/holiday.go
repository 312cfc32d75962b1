package holiday

import (
	"context"
	"time"
)

// Resolver reports whether a date is a paid holiday for a location scope.
// Scope "" means company-wide.
type Resolver interface {
	IsHoliday(ctx context.Context, date time.Time, scope string) (bool, error)
}
