package attendanceproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds parallel user-day units within one batch run.
const batchConcurrency = 8

type BatchServiceImpl struct {
	processor  record.ProcessingService
	eventRepo  event.EventRepository
	recordRepo record.RecordRepository
}

func NewBatchService(
	processor record.ProcessingService,
	eventRepo event.EventRepository,
	recordRepo record.RecordRepository,
) record.BatchService {
	return &BatchServiceImpl{
		processor:  processor,
		eventRepo:  eventRepo,
		recordRepo: recordRepo,
	}
}

// ProcessDay implements record.BatchService. Each user-day is its own
// transactional unit; one user failing never aborts the others, only
// context cancellation stops the run early.
func (s *BatchServiceImpl) ProcessDay(ctx context.Context, date time.Time, userIDs []string) (record.BatchResult, error) {
	users := userIDs
	if len(users) == 0 {
		var err error
		users, err = s.candidateUsers(ctx, date)
		if err != nil {
			return record.BatchResult{}, err
		}
	}

	var success, failed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if _, err := s.processor.ProcessUserDay(gCtx, userID, date, "system:batch"); err != nil {
				failed.Add(1)
				slog.Error("Batch unit failed",
					"user_id", userID, "date", date.Format("2006-01-02"), "error", err)
				return nil
			}
			success.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return record.BatchResult{}, fmt.Errorf("batch run cancelled: %w", err)
	}

	result := record.BatchResult{
		Total:   len(users),
		Success: int(success.Load()),
		Failed:  int(failed.Load()),
	}
	slog.Info("Batch day processed",
		"date", date.Format("2006-01-02"),
		"total", result.Total, "success", result.Success, "failed", result.Failed)
	return result, nil
}

// candidateUsers is the union of users with events on the day and users
// already holding a record for it, so stale records from deleted events
// still get reconciled.
func (s *BatchServiceImpl) candidateUsers(ctx context.Context, date time.Time) ([]string, error) {
	fromEvents, err := s.eventRepo.ListUserIDsForDay(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list users with events: %w", err)
	}
	fromRecords, err := s.recordRepo.ListUserIDsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with records: %w", err)
	}

	seen := make(map[string]struct{}, len(fromEvents)+len(fromRecords))
	users := make([]string, 0, len(fromEvents)+len(fromRecords))
	for _, id := range append(fromEvents, fromRecords...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	return users, nil
}

// ReprocessRange implements record.BatchService. Days run sequentially
// so the responses come back in calendar order; a failed day is reported
// and the range continues.
func (s *BatchServiceImpl) ReprocessRange(ctx context.Context, userID string, start, end time.Time) ([]record.RecordResponse, error) {
	if end.Before(start) {
		start, end = end, start
	}

	var responses []record.RecordResponse
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return responses, err
		}
		rec, err := s.processor.ProcessUserDay(ctx, userID, day, "system:reprocess")
		if err != nil {
			slog.Error("Reprocess day failed",
				"user_id", userID, "date", day.Format("2006-01-02"), "error", err)
			continue
		}
		responses = append(responses, mapRecordToResponse(rec))
	}
	return responses, nil
}
