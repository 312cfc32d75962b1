package attendanceproc

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/processing"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDayStore keeps records keyed by (user, date), standing in for the
// record table during full processing runs.
type fakeDayStore struct {
	record.RecordRepository
	records map[string]record.AttendanceRecord
	upserts int
}

func dayKey(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

func (f *fakeDayStore) GetByUserAndDateForUpdate(ctx context.Context, userID string, date time.Time) (record.AttendanceRecord, error) {
	rec, ok := f.records[dayKey(userID, date)]
	if !ok {
		return record.AttendanceRecord{}, record.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeDayStore) Upsert(ctx context.Context, rec record.AttendanceRecord) (record.AttendanceRecord, error) {
	f.upserts++
	f.records[dayKey(rec.UserID, rec.Date)] = rec
	return rec, nil
}

type fakeDayEvents struct {
	event.EventRepository
	events    []event.AttendanceEvent
	processed [][]string
	failed    int
}

func (f *fakeDayEvents) ListForUserDay(ctx context.Context, userID string, dayStart, dayEnd time.Time) ([]event.AttendanceEvent, error) {
	var out []event.AttendanceEvent
	for _, e := range f.events {
		if !e.OccurredAtLocal.Before(dayStart) && e.OccurredAtLocal.Before(dayEnd) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeDayEvents) MarkProcessed(ctx context.Context, eventIDs []string) error {
	f.processed = append(f.processed, eventIDs)
	return nil
}

func (f *fakeDayEvents) MarkFailed(ctx context.Context, eventIDs []string, reason string) error {
	f.failed++
	return nil
}

type stubShifts struct{ shift *schedule.Shift }

func (s stubShifts) EffectiveShift(ctx context.Context, userID string, date time.Time) (*schedule.Shift, error) {
	return s.shift, nil
}

type stubHolidays struct{ holiday bool }

func (s stubHolidays) IsHoliday(ctx context.Context, date time.Time, scope string) (bool, error) {
	return s.holiday, nil
}

type fakeLogRepo struct{ logs []processing.Log }

func (f *fakeLogRepo) Create(ctx context.Context, log processing.Log) error {
	f.logs = append(f.logs, log)
	return nil
}

func newProcessingService(store *fakeDayStore, events *fakeDayEvents, rules config.AttendanceRules) *ProcessingServiceImpl {
	return &ProcessingServiceImpl{
		RecordRepository: store,
		EventRepository:  events,
		scheduleResolver: stubShifts{shift: &schedule.Shift{StartTime: "09:00", EndTime: "18:00"}},
		holidayResolver:  stubHolidays{},
		logRepo:          &fakeLogRepo{},
		rules:            rules,
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
}

func dayEvents(day time.Time) []event.AttendanceEvent {
	return []event.AttendanceEvent{
		{ID: "e1", EventType: event.TypeClockIn, OccurredAtLocal: day.Add(9 * time.Hour)},
		{ID: "e2", EventType: event.TypeClockOut, OccurredAtLocal: day.Add(18 * time.Hour)},
	}
}

func TestProcessUserDay_KeepsWallClockDate(t *testing.T) {
	// Dates arrive already anchored to the user's wall clock, so the
	// stored day must match the requested one even when the configured
	// zone sits west of UTC.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rules := testRules
	rules.Timezone = "America/New_York"

	store := &fakeDayStore{records: map[string]record.AttendanceRecord{}}
	events := &fakeDayEvents{events: dayEvents(day)}
	svc := newProcessingService(store, events, rules)

	rec, err := svc.ProcessUserDay(context.Background(), "user-1", day, "system:queue")
	require.NoError(t, err)

	assert.Equal(t, day, rec.Date)
	assert.Contains(t, store.records, dayKey("user-1", day))
	assert.Equal(t, []string{"e1", "e2"}, rec.EventIDs)
	assert.Equal(t, record.StatusOK, rec.Status)
}

func TestProcessUserDay_LockedRecordUntouched(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	locked := baseRecord()
	locked.Date = day
	locked.IsLocked = true
	locked.Approvals = []record.Approval{{Level: 1, ActorID: "manager-1", Locked: true}}

	store := &fakeDayStore{records: map[string]record.AttendanceRecord{
		dayKey(locked.UserID, day): locked,
	}}
	events := &fakeDayEvents{events: dayEvents(day)}
	svc := newProcessingService(store, events, testRules)

	rec, err := svc.ProcessUserDay(context.Background(), locked.UserID, day, "system:batch")
	require.NoError(t, err)

	assert.Equal(t, locked, rec)
	assert.Equal(t, locked, store.records[dayKey(locked.UserID, day)])
	assert.Zero(t, store.upserts)
	assert.Empty(t, events.processed)
}

func TestProcessUserDay_ReprocessingConverges(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeDayStore{records: map[string]record.AttendanceRecord{}}
	events := &fakeDayEvents{events: dayEvents(day)}
	svc := newProcessingService(store, events, testRules)

	first, err := svc.ProcessUserDay(context.Background(), "user-1", day, "system:queue")
	require.NoError(t, err)
	second, err := svc.ProcessUserDay(context.Background(), "user-1", day, "system:reprocess")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	first.ProcessedAt, second.ProcessedAt = nil, nil
	first.ProcessedBy, second.ProcessedBy = nil, nil
	assert.Equal(t, first, second)
	assert.Equal(t, 2, store.upserts)
}
