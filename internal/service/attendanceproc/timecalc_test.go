package attendanceproc

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/stretchr/testify/assert"
)

var testRules = config.AttendanceRules{
	Timezone:                 "UTC",
	GraceInMinutes:           5,
	GraceOutMinutes:          5,
	RoundingMinutes:          15,
	OvertimeThresholdMinutes: 15,
	NightShiftStartHour:      22,
	NightShiftEndHour:        6,
}

func session(in, out time.Time) record.WorkSession {
	return record.WorkSession{ClockIn: in, ClockOut: &out}
}

func TestRoundToInterval(t *testing.T) {
	cases := []struct {
		minutes  int
		interval int
		want     int
	}{
		{532, 15, 525},
		{533, 15, 540},
		{525, 15, 525}, // idempotent on already-rounded input
		{7, 15, 0},
		{8, 15, 15},
		{100, 1, 100},
		{100, 0, 100},
	}
	for _, c := range cases {
		got := RoundToInterval(c.minutes, c.interval)
		if got != c.want {
			t.Errorf("RoundToInterval(%d, %d) = %d, want %d", c.minutes, c.interval, got, c.want)
		}
	}
}

func TestComputeWorkTime_GraceSuppressesLateness(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)

	// Inside the 5-minute grace window: not late at all.
	wt := ComputeWorkTime(
		[]record.WorkSession{session(day.Add(9*time.Hour+5*time.Minute), end)},
		&start, &end, testRules,
	)
	assert.Equal(t, 0, wt.LateMinutes)

	// One minute past grace: the full delta from the scheduled start.
	wt = ComputeWorkTime(
		[]record.WorkSession{session(day.Add(9*time.Hour+6*time.Minute), end)},
		&start, &end, testRules,
	)
	assert.Equal(t, 6, wt.LateMinutes)
}

func TestComputeWorkTime_EarlyLeaveGrace(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)

	wt := ComputeWorkTime(
		[]record.WorkSession{session(start, day.Add(17*time.Hour+55*time.Minute))},
		&start, &end, testRules,
	)
	assert.Equal(t, 0, wt.EarlyLeaveMinutes)

	wt = ComputeWorkTime(
		[]record.WorkSession{session(start, day.Add(17*time.Hour+54*time.Minute))},
		&start, &end, testRules,
	)
	assert.Equal(t, 6, wt.EarlyLeaveMinutes)
}

func TestComputeWorkTime_OvertimeThreshold(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)

	// Below threshold: no overtime at all.
	wt := ComputeWorkTime(
		[]record.WorkSession{session(start, day.Add(18*time.Hour+10*time.Minute))},
		&start, &end, testRules,
	)
	assert.Equal(t, 0, wt.OvertimeMinutes)

	// Past threshold: counted from the scheduled end.
	wt = ComputeWorkTime(
		[]record.WorkSession{session(start, day.Add(18*time.Hour+20*time.Minute))},
		&start, &end, testRules,
	)
	assert.Equal(t, 20, wt.OvertimeMinutes)
}

func TestComputeWorkTime_WorkedMinutesRounded(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)

	// 09:00 to 17:52 is 532 raw minutes, rounds down to 525.
	wt := ComputeWorkTime(
		[]record.WorkSession{session(start, day.Add(17*time.Hour+52*time.Minute))},
		&start, &end, testRules,
	)
	assert.Equal(t, 525, wt.WorkedMinutes)
}

func TestComputeWorkTime_MultipleSessions(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)

	wt := ComputeWorkTime([]record.WorkSession{
		session(day.Add(9*time.Hour), day.Add(12*time.Hour)),
		session(day.Add(13*time.Hour), day.Add(18*time.Hour)),
	}, &start, &end, testRules)

	assert.Equal(t, 480, wt.WorkedMinutes)
	assert.Equal(t, 0, wt.LateMinutes)
	assert.Equal(t, 0, wt.EarlyLeaveMinutes)
}

func TestComputeWorkTime_IncompleteSessionContributesNothing(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)

	// The open session still sets the first clock-in, so lateness is
	// measured, but no minutes are worked.
	wt := ComputeWorkTime([]record.WorkSession{
		{ClockIn: day.Add(9*time.Hour + 30*time.Minute)},
	}, &start, &end, testRules)

	assert.Equal(t, 0, wt.WorkedMinutes)
	assert.Equal(t, 30, wt.LateMinutes)
}

func TestComputeWorkTime_OvernightShift(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(22 * time.Hour)
	end := day.Add(6 * time.Hour) // earlier than start, spans midnight

	wt := ComputeWorkTime([]record.WorkSession{
		session(day.Add(22*time.Hour+10*time.Minute), day.AddDate(0, 0, 1).Add(6*time.Hour)),
	}, &start, &end, testRules)

	assert.Equal(t, 10, wt.LateMinutes)
	assert.Equal(t, 0, wt.EarlyLeaveMinutes)
	assert.Equal(t, 0, wt.OvertimeMinutes)
	assert.Equal(t, 470, wt.NightMinutes)
}

func TestComputeWorkTime_NoScheduleNoDeltas(t *testing.T) {
	day := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	wt := ComputeWorkTime([]record.WorkSession{
		session(day.Add(10*time.Hour), day.Add(14*time.Hour)),
	}, nil, nil, testRules)

	assert.Equal(t, 240, wt.WorkedMinutes)
	assert.Equal(t, 0, wt.LateMinutes)
	assert.Equal(t, 0, wt.EarlyLeaveMinutes)
	assert.Equal(t, 0, wt.OvertimeMinutes)
}

func TestNightOverlapMinutes(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"fully outside", day.Add(9 * time.Hour), day.Add(18 * time.Hour), 0},
		{"evening overlap", day.Add(21 * time.Hour), day.Add(23*time.Hour + 30*time.Minute), 90},
		{"crosses midnight", day.Add(22 * time.Hour), day.AddDate(0, 0, 1).Add(6*time.Hour + 30*time.Minute), 480},
		{"morning tail", day.Add(5 * time.Hour), day.Add(8 * time.Hour), 60},
	}
	for _, c := range cases {
		got := nightOverlapMinutes(c.start, c.end, 22, 6)
		if got != c.want {
			t.Errorf("%s: nightOverlapMinutes = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestNightOverlapMinutes_NonWrappingWindow(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Window 0-6 does not wrap.
	got := nightOverlapMinutes(day.Add(4*time.Hour), day.Add(7*time.Hour), 0, 6)
	assert.Equal(t, 120, got)
}
