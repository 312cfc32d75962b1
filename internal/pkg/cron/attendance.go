package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/queue"
)

// AttendanceJobs are the periodic maintenance tasks of the processing
// engine: re-resolving quarantined events, rescuing stalled queue jobs,
// and closing out the previous local day.
type AttendanceJobs struct {
	ingestionSvc event.IngestionService
	batchSvc     record.BatchService
	pool         *queue.Pool
	rules        config.AttendanceRules
}

func NewAttendanceJobs(
	ingestionSvc event.IngestionService,
	batchSvc record.BatchService,
	pool *queue.Pool,
	rules config.AttendanceRules,
) *AttendanceJobs {
	return &AttendanceJobs{
		ingestionSvc: ingestionSvc,
		batchSvc:     batchSvc,
		pool:         pool,
		rules:        rules,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("retry_quarantined_events", 15*time.Minute, j.RetryQuarantinedEvents)
	scheduler.AddJob("requeue_stalled_jobs", 1*time.Minute, j.RequeueStalledJobs)
	scheduler.AddJob("close_previous_day", 1*time.Hour, j.ClosePreviousDay)
}

// RetryQuarantinedEvents re-attempts the device mapping lookup for every
// quarantined event, catching mappings created after the event arrived.
func (j *AttendanceJobs) RetryQuarantinedEvents(ctx context.Context) error {
	resolved, err := j.ingestionSvc.RetryQuarantined(ctx)
	if err != nil {
		return fmt.Errorf("retry quarantined events: %w", err)
	}
	if resolved > 0 {
		slog.Info("Cron: Auto-resolved quarantined events", "count", resolved)
	}
	return nil
}

// RequeueStalledJobs rescues processing jobs whose worker stopped
// heartbeating.
func (j *AttendanceJobs) RequeueStalledJobs(ctx context.Context) error {
	return j.pool.RequeueStalled(ctx)
}

// ClosePreviousDay reprocesses yesterday (engine timezone) for every user
// that produced events, finalizing MISSING/ABSENT statuses. Only runs in
// the first hour after local midnight.
func (j *AttendanceJobs) ClosePreviousDay(ctx context.Context) error {
	loc := j.rules.Location()
	if time.Now().In(loc).Hour() != 0 {
		return nil
	}

	yesterday := time.Now().In(loc).AddDate(0, 0, -1)
	day := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, loc)

	result, err := j.batchSvc.ProcessDay(ctx, day, nil)
	if err != nil {
		return fmt.Errorf("close previous day: %w", err)
	}

	slog.Info("Cron: Closed previous day",
		"date", day.Format("2006-01-02"),
		"total", result.Total, "success", result.Success, "failed", result.Failed)
	return nil
}
