package attendanceproc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor counts invocations and fails for a configured user set.
type fakeProcessor struct {
	record.ProcessingService
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (f *fakeProcessor) ProcessUserDay(ctx context.Context, userID string, date time.Time, actor string) (record.AttendanceRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, userID)
	f.mu.Unlock()
	if f.failFor[userID] {
		return record.AttendanceRecord{}, errors.New("boom")
	}
	return record.AttendanceRecord{UserID: userID, Date: date, Status: record.StatusOK}, nil
}

type fakeEventUserSource struct {
	event.EventRepository
	users []string
}

func (f *fakeEventUserSource) ListUserIDsForDay(ctx context.Context, from, to time.Time) ([]string, error) {
	return f.users, nil
}

type fakeRecordUserSource struct {
	record.RecordRepository
	users []string
}

func (f *fakeRecordUserSource) ListUserIDsForDate(ctx context.Context, date time.Time) ([]string, error) {
	return f.users, nil
}

func TestProcessDay_PartialFailure(t *testing.T) {
	processor := &fakeProcessor{failFor: map[string]bool{"u2": true}}
	svc := NewBatchService(processor, &fakeEventUserSource{}, &fakeRecordUserSource{})

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	result, err := svc.ProcessDay(context.Background(), day, []string{"u1", "u2", "u3"})
	require.NoError(t, err)

	assert.Equal(t, record.BatchResult{Total: 3, Success: 2, Failed: 1}, result)
	assert.Len(t, processor.calls, 3)
}

func TestProcessDay_DiscoversUsers(t *testing.T) {
	processor := &fakeProcessor{}
	svc := NewBatchService(
		processor,
		&fakeEventUserSource{users: []string{"u1", "u2"}},
		&fakeRecordUserSource{users: []string{"u2", "u3"}},
	)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	result, err := svc.ProcessDay(context.Background(), day, nil)
	require.NoError(t, err)

	// Union of both sources, deduplicated.
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Success)
}

func TestProcessDay_Cancellation(t *testing.T) {
	processor := &fakeProcessor{}
	svc := NewBatchService(processor, &fakeEventUserSource{}, &fakeRecordUserSource{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.ProcessDay(ctx, day, []string{"u1", "u2"})
	assert.Error(t, err)
}

func TestReprocessRange_WalksDaysInOrder(t *testing.T) {
	processor := &fakeProcessor{}
	svc := NewBatchService(processor, &fakeEventUserSource{}, &fakeRecordUserSource{})

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	records, err := svc.ReprocessRange(context.Background(), "u1", start, end)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "2026-03-02", records[0].Date)
	assert.Equal(t, "2026-03-04", records[2].Date)
}

func TestReprocessRange_SwappedBounds(t *testing.T) {
	processor := &fakeProcessor{}
	svc := NewBatchService(processor, &fakeEventUserSource{}, &fakeRecordUserSource{})

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	records, err := svc.ReprocessRange(context.Background(), "u1", start.AddDate(0, 0, 1), start)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReprocessRange_FailedDayContinues(t *testing.T) {
	// Fail every call for this user; the range still walks to the end.
	processor := &fakeProcessor{failFor: map[string]bool{"u1": true}}
	svc := NewBatchService(processor, &fakeEventUserSource{}, &fakeRecordUserSource{})

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	records, err := svc.ReprocessRange(context.Background(), "u1", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, processor.calls, 2)
}
