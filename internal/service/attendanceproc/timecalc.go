package attendanceproc

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
)

// WorkTime is the per-day minute breakdown produced by the time
// computation engine. Every field is floored at zero.
type WorkTime struct {
	WorkedMinutes     int
	LateMinutes       int
	EarlyLeaveMinutes int
	OvertimeMinutes   int
	NightMinutes      int
}

// RoundToInterval snaps minutes to the nearest multiple of interval,
// round half up. Idempotent: rounding an already-rounded value is a
// no-op.
func RoundToInterval(minutes, interval int) int {
	if interval <= 1 {
		return minutes
	}
	return (minutes + interval/2) / interval * interval
}

// ComputeWorkTime turns paired sessions plus the resolved schedule into
// minute figures. A nil schedule (holiday, weekend, unscheduled day)
// yields zero late/early/overtime; worked and night minutes still come
// from the actual sessions.
//
// Boundary semantics: grace windows suppress lateness/early-leave
// entirely while inside them, but once exceeded the delta is measured
// from the nominal schedule boundary, not the grace edge. The overtime
// threshold likewise only triggers; the minutes count from the
// scheduled end.
func ComputeWorkTime(sessions []record.WorkSession, scheduledStart, scheduledEnd *time.Time, rules config.AttendanceRules) WorkTime {
	var wt WorkTime

	rawWorked := 0
	var firstClockIn *time.Time
	var lastClockOut *time.Time

	for i := range sessions {
		s := sessions[i]
		if firstClockIn == nil || s.ClockIn.Before(*firstClockIn) {
			in := s.ClockIn
			firstClockIn = &in
		}
		if !s.IsComplete() {
			continue
		}
		rawWorked += minutesBetween(s.ClockIn, *s.ClockOut)
		wt.NightMinutes += nightOverlapMinutes(s.ClockIn, *s.ClockOut, rules.NightShiftStartHour, rules.NightShiftEndHour)
		if lastClockOut == nil || s.ClockOut.After(*lastClockOut) {
			out := *s.ClockOut
			lastClockOut = &out
		}
	}

	wt.WorkedMinutes = RoundToInterval(rawWorked, rules.RoundingMinutes)

	if scheduledStart == nil || scheduledEnd == nil {
		return wt.clamped()
	}

	start := *scheduledStart
	end := *scheduledEnd
	// Overnight shift: end-of-day earlier than start-of-day.
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}

	if firstClockIn != nil {
		graceLimit := start.Add(time.Duration(rules.GraceInMinutes) * time.Minute)
		if firstClockIn.After(graceLimit) {
			wt.LateMinutes = minutesBetween(start, *firstClockIn)
		}
	}

	if lastClockOut != nil {
		earlyLimit := end.Add(-time.Duration(rules.GraceOutMinutes) * time.Minute)
		if lastClockOut.Before(earlyLimit) {
			wt.EarlyLeaveMinutes = minutesBetween(*lastClockOut, end)
		}

		overtimeTrigger := end.Add(time.Duration(rules.OvertimeThresholdMinutes) * time.Minute)
		if lastClockOut.After(overtimeTrigger) {
			wt.OvertimeMinutes = minutesBetween(end, *lastClockOut)
		}
	}

	return wt.clamped()
}

func (wt WorkTime) clamped() WorkTime {
	wt.WorkedMinutes = max(wt.WorkedMinutes, 0)
	wt.LateMinutes = max(wt.LateMinutes, 0)
	wt.EarlyLeaveMinutes = max(wt.EarlyLeaveMinutes, 0)
	wt.OvertimeMinutes = max(wt.OvertimeMinutes, 0)
	wt.NightMinutes = max(wt.NightMinutes, 0)
	return wt
}

func minutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}

// nightOverlapMinutes accumulates the exact minutes of [start, end) that
// fall inside the configured night window. A window with startHour >=
// endHour wraps midnight (e.g. 22:00-06:00).
func nightOverlapMinutes(start, end time.Time, startHour, endHour int) int {
	if !end.After(start) {
		return 0
	}

	total := 0
	day := start.Truncate(24 * time.Hour).AddDate(0, 0, -1)
	for !day.After(end) {
		windowStart := day.Add(time.Duration(startHour) * time.Hour)
		var windowEnd time.Time
		if startHour >= endHour {
			windowEnd = day.AddDate(0, 0, 1).Add(time.Duration(endHour) * time.Hour)
		} else {
			windowEnd = day.Add(time.Duration(endHour) * time.Hour)
		}
		total += overlapMinutes(start, end, windowStart, windowEnd)
		day = day.AddDate(0, 0, 1)
	}
	return total
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	s := aStart
	if bStart.After(s) {
		s = bStart
	}
	e := aEnd
	if bEnd.Before(e) {
		e = bEnd
	}
	if !e.After(s) {
		return 0
	}
	return minutesBetween(s, e)
}
