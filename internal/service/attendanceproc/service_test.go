package attendanceproc

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordRepo keeps a single record in memory, enough to exercise the
// lock and adjustment flows without a database.
type fakeRecordRepo struct {
	record.RecordRepository
	stored record.AttendanceRecord
	getErr error
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, id string) (record.AttendanceRecord, error) {
	if f.getErr != nil {
		return record.AttendanceRecord{}, f.getErr
	}
	return f.stored, nil
}

func (f *fakeRecordRepo) Update(ctx context.Context, rec record.AttendanceRecord) error {
	f.stored = rec
	return nil
}

func newLifecycleService(repo *fakeRecordRepo) *ProcessingServiceImpl {
	return &ProcessingServiceImpl{
		RecordRepository: repo,
		rules:            testRules,
	}
}

func baseRecord() record.AttendanceRecord {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(18 * time.Hour)
	out := end
	return record.AttendanceRecord{
		ID:               "rec-1",
		UserID:           "user-1",
		Date:             day,
		ScheduledStart:   &start,
		ScheduledEnd:     &end,
		ScheduledMinutes: 540,
		WorkedMinutes:    540,
		Status:           record.StatusOK,
		Sessions: []record.WorkSession{
			{ClockIn: start, ClockOut: &out, ClockInEventID: "e1"},
		},
	}
}

func TestApprove_LocksRecord(t *testing.T) {
	repo := &fakeRecordRepo{stored: baseRecord()}
	svc := newLifecycleService(repo)

	resp, err := svc.Approve(context.Background(), record.ApproveRequest{
		RecordID: "rec-1", ActorID: "manager-1", Level: 1,
	})
	require.NoError(t, err)

	assert.True(t, resp.IsLocked)
	require.Len(t, resp.Approvals, 1)
	assert.True(t, resp.Approvals[0].Locked)
	assert.Equal(t, "manager-1", resp.Approvals[0].ActorID)
	assert.True(t, repo.stored.Locked())
}

func TestApprove_AlreadyLocked(t *testing.T) {
	rec := baseRecord()
	rec.IsLocked = true
	repo := &fakeRecordRepo{stored: rec}
	svc := newLifecycleService(repo)

	_, err := svc.Approve(context.Background(), record.ApproveRequest{
		RecordID: "rec-1", ActorID: "manager-1", Level: 1,
	})
	assert.ErrorIs(t, err, record.ErrRecordLocked)
}

func TestUnlock_AppendsAuditEntry(t *testing.T) {
	rec := baseRecord()
	rec.IsLocked = true
	rec.Approvals = []record.Approval{{Level: 1, ActorID: "manager-1", Locked: true}}
	repo := &fakeRecordRepo{stored: rec}
	svc := newLifecycleService(repo)

	resp, err := svc.Unlock(context.Background(), "rec-1", "admin-1")
	require.NoError(t, err)

	assert.False(t, resp.IsLocked)
	// The original approval stays; the unlock is appended after it.
	require.Len(t, resp.Approvals, 2)
	assert.True(t, resp.Approvals[0].Locked)
	assert.False(t, resp.Approvals[1].Locked)
	assert.Equal(t, "admin-1", resp.Approvals[1].ActorID)
}

func TestUnlock_NotLocked(t *testing.T) {
	repo := &fakeRecordRepo{stored: baseRecord()}
	svc := newLifecycleService(repo)

	_, err := svc.Unlock(context.Background(), "rec-1", "admin-1")
	assert.ErrorIs(t, err, record.ErrNotLocked)
}

func TestAdjust_RejectedWhenLocked(t *testing.T) {
	rec := baseRecord()
	rec.IsLocked = true
	repo := &fakeRecordRepo{stored: rec}
	svc := newLifecycleService(repo)

	minutes := 30
	_, err := svc.Adjust(context.Background(), record.AdjustRequest{
		RecordID: "rec-1", ActorID: "admin-1",
		Type: "ADD_MINUTES", Reason: "forgot to clock out yesterday",
		Minutes: &minutes,
	})
	assert.ErrorIs(t, err, record.ErrRecordLocked)
}

func TestAdjust_ReasonTooShort(t *testing.T) {
	repo := &fakeRecordRepo{stored: baseRecord()}
	svc := newLifecycleService(repo)

	minutes := 30
	_, err := svc.Adjust(context.Background(), record.AdjustRequest{
		RecordID: "rec-1", ActorID: "admin-1",
		Type: "ADD_MINUTES", Reason: "short",
		Minutes: &minutes,
	})
	assert.ErrorIs(t, err, record.ErrReasonTooShort)
}

func TestAdjust_AddAndRemoveMinutes(t *testing.T) {
	repo := &fakeRecordRepo{stored: baseRecord()}
	svc := newLifecycleService(repo)

	minutes := 30
	resp, err := svc.Adjust(context.Background(), record.AdjustRequest{
		RecordID: "rec-1", ActorID: "admin-1",
		Type: "ADD_MINUTES", Reason: "missed badge at the gate",
		Minutes: &minutes,
	})
	require.NoError(t, err)
	assert.Equal(t, 570, resp.WorkedMinutes)
	require.Len(t, resp.Adjustments, 1)
	assert.Equal(t, record.AdjustmentAddMinutes, resp.Adjustments[0].Type)

	// Removing more than the total floors at zero.
	huge := 10000
	resp, err = svc.Adjust(context.Background(), record.AdjustRequest{
		RecordID: "rec-1", ActorID: "admin-1",
		Type: "REMOVE_MINUTES", Reason: "duplicate badge readings",
		Minutes: &huge,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.WorkedMinutes)
	assert.Len(t, resp.Adjustments, 2)
}

func TestAdjust_MarkAbsentPaid(t *testing.T) {
	repo := &fakeRecordRepo{stored: baseRecord()}
	svc := newLifecycleService(repo)

	resp, err := svc.Adjust(context.Background(), record.AdjustRequest{
		RecordID: "rec-1", ActorID: "admin-1",
		Type: "MARK_ABSENT_PAID", Reason: "approved sick leave",
	})
	require.NoError(t, err)
	assert.Equal(t, string(record.StatusLeave), resp.Status)
	require.Len(t, resp.Adjustments, 1)
	assert.Equal(t, "OK", resp.Adjustments[0].Before["status"])
}

func TestAdjust_ClockTimeEditRecomputes(t *testing.T) {
	repo := &fakeRecordRepo{stored: baseRecord()}
	svc := newLifecycleService(repo)

	idx := 0
	newOut := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC).Format(time.RFC3339)
	resp, err := svc.Adjust(context.Background(), record.AdjustRequest{
		RecordID: "rec-1", ActorID: "admin-1",
		Type: "CLOCK_TIME_EDIT", Reason: "left early, approved offline",
		SessionIndex: &idx, NewClockOut: &newOut,
	})
	require.NoError(t, err)

	// 09:00 to 17:00 is 480 minutes, and leaving an hour before the
	// scheduled end exceeds the grace window.
	assert.Equal(t, 480, resp.WorkedMinutes)
	assert.Equal(t, 60, resp.EarlyLeaveMinutes)
}

func TestBuildRecord_StatusPriority(t *testing.T) {
	svc := &ProcessingServiceImpl{rules: testRules}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	shift := &schedule.Shift{StartTime: "09:00", EndTime: "18:00"}

	completePair := []event.AttendanceEvent{
		evt("e1", "CLOCK_IN", day.Add(9*time.Hour)),
		evt("e2", "CLOCK_OUT", day.Add(18*time.Hour)),
	}

	t.Run("holiday wins over schedule", func(t *testing.T) {
		rec := svc.buildRecord("u1", day, completePair, shift, true)
		assert.Equal(t, record.StatusHoliday, rec.Status)
		assert.Equal(t, 540, rec.HolidayMinutes)
		assert.Nil(t, rec.ScheduledStart)
	})

	t.Run("weekend without schedule", func(t *testing.T) {
		rec := svc.buildRecord("u1", saturday, nil, nil, false)
		assert.Equal(t, record.StatusWeekend, rec.Status)
	})

	t.Run("unscheduled weekday without events is absent", func(t *testing.T) {
		rec := svc.buildRecord("u1", day, nil, nil, false)
		assert.Equal(t, record.StatusAbsent, rec.Status)
	})

	t.Run("scheduled day without events is missing", func(t *testing.T) {
		rec := svc.buildRecord("u1", day, nil, shift, false)
		assert.Equal(t, record.StatusMissing, rec.Status)
		assert.Equal(t, 540, rec.ScheduledMinutes)
	})

	t.Run("open session is incomplete and flagged", func(t *testing.T) {
		rec := svc.buildRecord("u1", day, []event.AttendanceEvent{
			evt("e1", "CLOCK_IN", day.Add(9*time.Hour)),
		}, shift, false)
		assert.Equal(t, record.StatusIncomplete, rec.Status)
		assert.True(t, rec.RequiresApproval)
	})

	t.Run("complete pair is ok", func(t *testing.T) {
		rec := svc.buildRecord("u1", day, completePair, shift, false)
		assert.Equal(t, record.StatusOK, rec.Status)
		assert.False(t, rec.RequiresApproval)
		assert.Equal(t, 540, rec.WorkedMinutes)
	})

	t.Run("excessive lateness forces review", func(t *testing.T) {
		rec := svc.buildRecord("u1", day, []event.AttendanceEvent{
			evt("e1", "CLOCK_IN", day.Add(10*time.Hour+30*time.Minute)),
			evt("e2", "CLOCK_OUT", day.Add(18*time.Hour)),
		}, shift, false)
		assert.Equal(t, record.StatusOK, rec.Status)
		assert.Equal(t, 90, rec.LateMinutes)
		assert.True(t, rec.RequiresApproval)
	})
}
