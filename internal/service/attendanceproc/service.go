package attendanceproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/holiday"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/processing"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/repository/postgresql"
	"github.com/google/uuid"
)

// Review thresholds: exceeding any of these forces requires_approval
// regardless of status.
const (
	maxUnreviewedLateMinutes       = 60
	maxUnreviewedOvertimeMinutes   = 180
	maxUnreviewedEarlyLeaveMinutes = 60
)

// txRunner executes fn inside one transaction scope.
type txRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type ProcessingServiceImpl struct {
	record.RecordRepository
	event.EventRepository
	scheduleResolver schedule.Resolver
	holidayResolver  holiday.Resolver
	logRepo          processing.LogRepository
	rules            config.AttendanceRules
	runTx            txRunner
}

func NewProcessingService(
	db *database.DB,
	recordRepo record.RecordRepository,
	eventRepo event.EventRepository,
	scheduleResolver schedule.Resolver,
	holidayResolver holiday.Resolver,
	logRepo processing.LogRepository,
	rules config.AttendanceRules,
) record.ProcessingService {
	return &ProcessingServiceImpl{
		RecordRepository: recordRepo,
		EventRepository:  eventRepo,
		scheduleResolver: scheduleResolver,
		holidayResolver:  holidayResolver,
		logRepo:          logRepo,
		rules:            rules,
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return postgresql.WithTransaction(ctx, db, fn)
		},
	}
}

// localDay truncates a timestamp to its calendar day. Dates reaching this
// package already follow the zone-less wall-clock convention (queue jobs
// derive from occurred_at_local, the HTTP surface parses bare dates), so
// the wall components are taken as-is with no zone conversion.
func localDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ProcessUserDay implements record.ProcessingService. One user-day is
// one transaction: the row lock on the record serializes concurrent
// jobs, and any failure rolls the whole unit back before the events are
// marked FAILED outside the transaction.
func (s *ProcessingServiceImpl) ProcessUserDay(ctx context.Context, userID string, date time.Time, actor string) (record.AttendanceRecord, error) {
	day := localDay(date)
	start := time.Now()

	var result record.AttendanceRecord
	var eventIDs []string
	var skippedLocked bool

	err := s.runTx(ctx, func(txCtx context.Context) error {
		existing, err := s.RecordRepository.GetByUserAndDateForUpdate(txCtx, userID, day)
		if err != nil && !errors.Is(err, record.ErrRecordNotFound) {
			return err
		}
		hadExisting := err == nil
		if hadExisting && existing.Locked() {
			result = existing
			skippedLocked = true
			return nil
		}

		events, err := s.EventRepository.ListForUserDay(txCtx, userID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		for _, e := range events {
			eventIDs = append(eventIDs, e.ID)
		}

		shift, err := s.scheduleResolver.EffectiveShift(txCtx, userID, day)
		if err != nil {
			return err
		}

		isHoliday, err := s.holidayResolver.IsHoliday(txCtx, day, "")
		if err != nil {
			return err
		}

		rec := s.buildRecord(userID, day, events, shift, isHoliday)
		rec.EventIDs = eventIDs
		if hadExisting {
			rec.ID = existing.ID
			rec.Adjustments = existing.Adjustments
			rec.Approvals = existing.Approvals
		}
		now := time.Now().UTC()
		rec.ProcessedAt = &now
		rec.ProcessedBy = &actor

		stored, err := s.RecordRepository.Upsert(txCtx, rec)
		if err != nil {
			return err
		}

		if err := s.EventRepository.MarkProcessed(txCtx, eventIDs); err != nil {
			return err
		}

		result = stored
		return nil
	})

	if skippedLocked {
		slog.Info("Skipped locked record",
			"user_id", userID, "date", day.Format("2006-01-02"), "actor", actor)
		return result, nil
	}

	if err != nil {
		if mErr := s.EventRepository.MarkFailed(ctx, eventIDs, err.Error()); mErr != nil {
			slog.Error("Failed to mark events failed", "user_id", userID, "error", mErr)
		}
		s.writeLog(ctx, userID, day, false, err.Error(), len(eventIDs), start, actor)
		return record.AttendanceRecord{}, fmt.Errorf("failed to process user day: %w", err)
	}

	s.writeLog(ctx, userID, day, true, "", len(eventIDs), start, actor)
	return result, nil
}

// buildRecord runs the status state machine. Priority order: holiday,
// weekend without schedule, unscheduled day, then the scheduled-workday
// outcomes.
func (s *ProcessingServiceImpl) buildRecord(userID string, day time.Time, events []event.AttendanceEvent, shift *schedule.Shift, isHoliday bool) record.AttendanceRecord {
	sessions := PairEvents(events)

	rec := record.AttendanceRecord{
		ID:       uuid.NewString(),
		UserID:   userID,
		Date:     day,
		Sessions: sessions,
	}

	var schedStart, schedEnd *time.Time
	if shift != nil {
		// Wall-clock anchored in UTC, matching occurred_at_local.
		if start, end, err := shift.Boundaries(day, time.UTC); err == nil {
			schedStart, schedEnd = &start, &end
		} else {
			slog.Error("Unparseable shift, treating day as unscheduled",
				"user_id", userID, "date", day.Format("2006-01-02"), "error", err)
			shift = nil
		}
	}

	switch {
	case isHoliday:
		// Holiday wins even over an assigned schedule; any work done is
		// counted as holiday time.
		wt := ComputeWorkTime(sessions, nil, nil, s.rules)
		rec.Status = record.StatusHoliday
		applyWorkTime(&rec, wt)
		rec.HolidayMinutes = wt.WorkedMinutes

	case shift == nil && isWeekend(day):
		wt := ComputeWorkTime(sessions, nil, nil, s.rules)
		rec.Status = record.StatusWeekend
		applyWorkTime(&rec, wt)

	case shift == nil:
		wt := ComputeWorkTime(sessions, nil, nil, s.rules)
		if len(events) == 0 {
			rec.Status = record.StatusAbsent
		} else {
			rec.Status = record.StatusIncomplete
		}
		applyWorkTime(&rec, wt)

	default:
		wt := ComputeWorkTime(sessions, schedStart, schedEnd, s.rules)
		rec.ScheduledStart = schedStart
		rec.ScheduledEnd = schedEnd
		rec.ScheduledMinutes = minutesBetween(*schedStart, *schedEnd)
		applyWorkTime(&rec, wt)

		switch {
		case len(events) == 0:
			rec.Status = record.StatusMissing
		case hasIncompleteSession(sessions):
			rec.Status = record.StatusIncomplete
			rec.RequiresApproval = true
		default:
			rec.Status = record.StatusOK
		}
	}

	if rec.LateMinutes > maxUnreviewedLateMinutes ||
		rec.OvertimeMinutes > maxUnreviewedOvertimeMinutes ||
		rec.EarlyLeaveMinutes > maxUnreviewedEarlyLeaveMinutes {
		rec.RequiresApproval = true
	}

	return rec
}

func applyWorkTime(r *record.AttendanceRecord, wt WorkTime) {
	r.WorkedMinutes = wt.WorkedMinutes
	r.LateMinutes = wt.LateMinutes
	r.EarlyLeaveMinutes = wt.EarlyLeaveMinutes
	r.OvertimeMinutes = wt.OvertimeMinutes
	r.NightMinutes = wt.NightMinutes
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func hasIncompleteSession(sessions []record.WorkSession) bool {
	for _, s := range sessions {
		if !s.IsComplete() {
			return true
		}
	}
	return false
}

func (s *ProcessingServiceImpl) writeLog(ctx context.Context, userID string, day time.Time, success bool, message string, eventCount int, start time.Time, actor string) {
	var msg *string
	if message != "" {
		msg = &message
	}
	err := s.logRepo.Create(ctx, processing.Log{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       day,
		Success:    success,
		Message:    msg,
		EventCount: eventCount,
		DurationMS: time.Since(start).Milliseconds(),
		Actor:      actor,
	})
	if err != nil {
		slog.Error("Failed to write processing log", "user_id", userID, "error", err)
	}
}

// Approve implements record.ProcessingService.
func (s *ProcessingServiceImpl) Approve(ctx context.Context, req record.ApproveRequest) (record.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return record.RecordResponse{}, err
	}

	rec, err := s.RecordRepository.GetByID(ctx, req.RecordID)
	if err != nil {
		return record.RecordResponse{}, err
	}
	if rec.Locked() {
		return record.RecordResponse{}, record.ErrRecordLocked
	}

	rec.Approvals = append(rec.Approvals, record.Approval{
		Level:     req.Level,
		ActorID:   req.ActorID,
		Locked:    true,
		Comments:  req.Comments,
		CreatedAt: time.Now().UTC(),
	})
	rec.IsLocked = true
	rec.RequiresApproval = false

	if err := s.RecordRepository.Update(ctx, rec); err != nil {
		return record.RecordResponse{}, fmt.Errorf("failed to approve record: %w", err)
	}

	slog.Info("Record approved and locked",
		"record_id", rec.ID, "user_id", rec.UserID, "actor", req.ActorID)
	return mapRecordToResponse(rec), nil
}

// Unlock implements record.ProcessingService. The unlock itself is
// appended to the approval trail so the audit history stays complete.
func (s *ProcessingServiceImpl) Unlock(ctx context.Context, recordID string, actorID string) (record.RecordResponse, error) {
	rec, err := s.RecordRepository.GetByID(ctx, recordID)
	if err != nil {
		return record.RecordResponse{}, err
	}
	if !rec.Locked() {
		return record.RecordResponse{}, record.ErrNotLocked
	}

	comment := "record unlocked"
	rec.Approvals = append(rec.Approvals, record.Approval{
		ActorID:   actorID,
		Locked:    false,
		Comments:  &comment,
		CreatedAt: time.Now().UTC(),
	})
	rec.IsLocked = false

	if err := s.RecordRepository.Update(ctx, rec); err != nil {
		return record.RecordResponse{}, fmt.Errorf("failed to unlock record: %w", err)
	}

	slog.Info("Record unlocked", "record_id", rec.ID, "actor", actorID)
	return mapRecordToResponse(rec), nil
}

// Adjust implements record.ProcessingService.
func (s *ProcessingServiceImpl) Adjust(ctx context.Context, req record.AdjustRequest) (record.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return record.RecordResponse{}, err
	}

	rec, err := s.RecordRepository.GetByID(ctx, req.RecordID)
	if err != nil {
		return record.RecordResponse{}, err
	}
	if rec.Locked() {
		return record.RecordResponse{}, record.ErrRecordLocked
	}

	adj := record.ManualAdjustment{
		Type:      record.AdjustmentType(req.Type),
		Reason:    req.Reason,
		ActorID:   req.ActorID,
		CreatedAt: time.Now().UTC(),
	}

	switch adj.Type {
	case record.AdjustmentClockTimeEdit:
		if err := s.applyClockTimeEdit(&rec, req, &adj); err != nil {
			return record.RecordResponse{}, err
		}

	case record.AdjustmentMarkAbsentPaid:
		adj.Before = map[string]interface{}{"status": string(rec.Status)}
		rec.Status = record.StatusLeave
		adj.After = map[string]interface{}{"status": string(rec.Status)}

	case record.AdjustmentMarkAbsentUnpaid:
		adj.Before = map[string]interface{}{"status": string(rec.Status)}
		rec.Status = record.StatusAbsent
		adj.After = map[string]interface{}{"status": string(rec.Status)}

	case record.AdjustmentStatusOverride:
		// Status overrides deliberately skip recomputation.
		adj.Before = map[string]interface{}{"status": string(rec.Status)}
		rec.Status = record.Status(*req.NewStatus)
		adj.After = map[string]interface{}{"status": string(rec.Status)}

	case record.AdjustmentAddMinutes:
		adj.Before = map[string]interface{}{"worked_minutes": rec.WorkedMinutes}
		rec.WorkedMinutes += *req.Minutes
		adj.After = map[string]interface{}{"worked_minutes": rec.WorkedMinutes}

	case record.AdjustmentRemoveMinutes:
		adj.Before = map[string]interface{}{"worked_minutes": rec.WorkedMinutes}
		rec.WorkedMinutes = max(rec.WorkedMinutes-*req.Minutes, 0)
		adj.After = map[string]interface{}{"worked_minutes": rec.WorkedMinutes}

	default:
		return record.RecordResponse{}, record.ErrInvalidAdjustment
	}

	rec.Adjustments = append(rec.Adjustments, adj)

	if err := s.RecordRepository.Update(ctx, rec); err != nil {
		return record.RecordResponse{}, fmt.Errorf("failed to adjust record: %w", err)
	}

	slog.Info("Record adjusted",
		"record_id", rec.ID, "type", adj.Type, "actor", req.ActorID)
	return mapRecordToResponse(rec), nil
}

// applyClockTimeEdit rewrites one session's boundaries and re-runs the
// time computation against the stored schedule.
func (s *ProcessingServiceImpl) applyClockTimeEdit(rec *record.AttendanceRecord, req record.AdjustRequest, adj *record.ManualAdjustment) error {
	idx := len(rec.Sessions) - 1
	if req.SessionIndex != nil {
		idx = *req.SessionIndex
	}
	if idx < 0 || idx >= len(rec.Sessions) {
		return record.ErrInvalidAdjustment
	}

	sess := rec.Sessions[idx]
	adj.Before = map[string]interface{}{
		"session_index":  idx,
		"clock_in":       sess.ClockIn.Format(time.RFC3339),
		"clock_out":      timeToStringOrNil(sess.ClockOut),
		"worked_minutes": rec.WorkedMinutes,
	}

	if req.NewClockIn != nil {
		t, err := time.Parse(time.RFC3339, *req.NewClockIn)
		if err != nil {
			return record.ErrInvalidAdjustment
		}
		sess.ClockIn = t.UTC()
	}
	if req.NewClockOut != nil {
		t, err := time.Parse(time.RFC3339, *req.NewClockOut)
		if err != nil {
			return record.ErrInvalidAdjustment
		}
		out := t.UTC()
		sess.ClockOut = &out
	}
	rec.Sessions[idx] = sess

	wt := ComputeWorkTime(rec.Sessions, rec.ScheduledStart, rec.ScheduledEnd, s.rules)
	applyWorkTime(rec, wt)
	if rec.Status == record.StatusIncomplete && !hasIncompleteSession(rec.Sessions) {
		rec.Status = record.StatusOK
	}
	rec.RequiresApproval = rec.LateMinutes > maxUnreviewedLateMinutes ||
		rec.OvertimeMinutes > maxUnreviewedOvertimeMinutes ||
		rec.EarlyLeaveMinutes > maxUnreviewedEarlyLeaveMinutes ||
		hasIncompleteSession(rec.Sessions)

	adj.After = map[string]interface{}{
		"session_index":  idx,
		"clock_in":       sess.ClockIn.Format(time.RFC3339),
		"clock_out":      timeToStringOrNil(sess.ClockOut),
		"worked_minutes": rec.WorkedMinutes,
	}
	return nil
}

func timeToStringOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// GetRecord implements record.ProcessingService.
func (s *ProcessingServiceImpl) GetRecord(ctx context.Context, id string) (record.RecordResponse, error) {
	rec, err := s.RecordRepository.GetByID(ctx, id)
	if err != nil {
		return record.RecordResponse{}, err
	}
	return mapRecordToResponse(rec), nil
}

// ListRecords implements record.ProcessingService.
func (s *ProcessingServiceImpl) ListRecords(ctx context.Context, filter record.RecordFilter) (record.ListRecordsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	records, total, err := s.RecordRepository.List(ctx, filter)
	if err != nil {
		return record.ListRecordsResponse{}, fmt.Errorf("failed to list records: %w", err)
	}

	responses := make([]record.RecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, mapRecordToResponse(rec))
	}

	return record.ListRecordsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Records:    responses,
	}, nil
}

func mapRecordToResponse(rec record.AttendanceRecord) record.RecordResponse {
	sessions := make([]record.SessionResponse, 0, len(rec.Sessions))
	for _, s := range rec.Sessions {
		var out *string
		if s.ClockOut != nil {
			formatted := s.ClockOut.Format("2006-01-02 15:04:05")
			out = &formatted
		}
		sessions = append(sessions, record.SessionResponse{
			ClockIn:    s.ClockIn.Format("2006-01-02 15:04:05"),
			ClockOut:   out,
			IsComplete: s.IsComplete(),
		})
	}

	formatWall := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		formatted := t.Format("2006-01-02 15:04:05")
		return &formatted
	}

	return record.RecordResponse{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Date:              rec.Date.Format("2006-01-02"),
		ScheduledStart:    formatWall(rec.ScheduledStart),
		ScheduledEnd:      formatWall(rec.ScheduledEnd),
		ScheduledMinutes:  rec.ScheduledMinutes,
		WorkedMinutes:     rec.WorkedMinutes,
		LateMinutes:       rec.LateMinutes,
		EarlyLeaveMinutes: rec.EarlyLeaveMinutes,
		OvertimeMinutes:   rec.OvertimeMinutes,
		NightMinutes:      rec.NightMinutes,
		HolidayMinutes:    rec.HolidayMinutes,
		Status:            string(rec.Status),
		Sessions:          sessions,
		Adjustments:       rec.Adjustments,
		Approvals:         rec.Approvals,
		IsLocked:          rec.IsLocked,
		RequiresApproval:  rec.RequiresApproval,
		ProcessedAt:       timePtrToRFC3339(rec.ProcessedAt),
		ProcessedBy:       rec.ProcessedBy,
	}
}

func timePtrToRFC3339(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
