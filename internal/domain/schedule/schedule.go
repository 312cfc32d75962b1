package schedule

import (
	"context"
	"fmt"
	"time"
)

// Shift is the effective shift template for one user-day, times as
// "HH:MM" in the user's local zone.
type Shift struct {
	StartTime string
	EndTime   string
}

// Boundaries anchors the shift to a local calendar day. An overnight
// shift (end before start) is normalized by pushing the end +24h.
func (s Shift) Boundaries(date time.Time, loc *time.Location) (start, end time.Time, err error) {
	start, err = atClock(date, s.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid shift start %q: %w", s.StartTime, err)
	}
	end, err = atClock(date, s.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid shift end %q: %w", s.EndTime, err)
	}
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end, nil
}

func atClock(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// Resolver yields the applicable shift for a user-day, or nil when no
// schedule applies (unscheduled day). Assignment overrides win over the
// user's default shift.
type Resolver interface {
	EffectiveShift(ctx context.Context, userID string, date time.Time) (*Shift, error)
}
