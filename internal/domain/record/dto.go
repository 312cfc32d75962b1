package record

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// ========================================
// RECORD DTOs
// ========================================

type ApproveRequest struct {
	RecordID string  `json:"-"`
	ActorID  string  `json:"-"`
	Level    int     `json:"level"`
	Comments *string `json:"comments"`
}

func (r *ApproveRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Level < 1 {
		errs = append(errs, validator.ValidationError{
			Field:   "level",
			Message: "level must be at least 1",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// minReasonLength is the shortest accepted adjustment justification.
const minReasonLength = 10

type AdjustRequest struct {
	RecordID string `json:"-"`
	ActorID  string `json:"-"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`

	// CLOCK_TIME_EDIT: replaces the nth session's boundaries (RFC3339).
	SessionIndex *int    `json:"session_index,omitempty"`
	NewClockIn   *string `json:"new_clock_in,omitempty"`
	NewClockOut  *string `json:"new_clock_out,omitempty"`

	// STATUS_OVERRIDE
	NewStatus *string `json:"new_status,omitempty"`

	// ADD_MINUTES / REMOVE_MINUTES applied to worked minutes.
	Minutes *int `json:"minutes,omitempty"`
}

var adjustmentTypes = []string{
	string(AdjustmentClockTimeEdit),
	string(AdjustmentMarkAbsentPaid),
	string(AdjustmentMarkAbsentUnpaid),
	string(AdjustmentStatusOverride),
	string(AdjustmentAddMinutes),
	string(AdjustmentRemoveMinutes),
}

var recordStatuses = []string{
	string(StatusOK), string(StatusMissing), string(StatusIncomplete),
	string(StatusAbsent), string(StatusHoliday), string(StatusWeekend),
	string(StatusLeave),
}

func (r *AdjustRequest) Validate() error {
	if len(strings.TrimSpace(r.Reason)) < minReasonLength {
		return ErrReasonTooShort
	}

	var errs validator.ValidationErrors

	if !validator.IsInSlice(r.Type, adjustmentTypes) {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "unknown adjustment type",
		})
	}

	switch AdjustmentType(r.Type) {
	case AdjustmentClockTimeEdit:
		if r.NewClockIn == nil && r.NewClockOut == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "new_clock_in",
				Message: "a clock-time edit requires new_clock_in or new_clock_out",
			})
		}
		if r.NewClockIn != nil {
			if _, ok := validator.IsValidDateTime(*r.NewClockIn); !ok {
				errs = append(errs, validator.ValidationError{
					Field:   "new_clock_in",
					Message: "new_clock_in must be a valid RFC3339 datetime",
				})
			}
		}
		if r.NewClockOut != nil {
			if _, ok := validator.IsValidDateTime(*r.NewClockOut); !ok {
				errs = append(errs, validator.ValidationError{
					Field:   "new_clock_out",
					Message: "new_clock_out must be a valid RFC3339 datetime",
				})
			}
		}
	case AdjustmentStatusOverride:
		if r.NewStatus == nil || !validator.IsInSlice(*r.NewStatus, recordStatuses) {
			errs = append(errs, validator.ValidationError{
				Field:   "new_status",
				Message: "new_status must be a valid record status",
			})
		}
	case AdjustmentAddMinutes, AdjustmentRemoveMinutes:
		if r.Minutes == nil || *r.Minutes <= 0 {
			errs = append(errs, validator.ValidationError{
				Field:   "minutes",
				Message: "minutes must be a positive number",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RecordFilter struct {
	UserID    *string
	Status    *string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

type SessionResponse struct {
	ClockIn    string  `json:"clock_in"`
	ClockOut   *string `json:"clock_out"`
	IsComplete bool    `json:"is_complete"`
}

type RecordResponse struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	Date              string             `json:"date"`
	ScheduledStart    *string            `json:"scheduled_start"`
	ScheduledEnd      *string            `json:"scheduled_end"`
	ScheduledMinutes  int                `json:"scheduled_minutes"`
	WorkedMinutes     int                `json:"worked_minutes"`
	LateMinutes       int                `json:"late_minutes"`
	EarlyLeaveMinutes int                `json:"early_leave_minutes"`
	OvertimeMinutes   int                `json:"overtime_minutes"`
	NightMinutes      int                `json:"night_minutes"`
	HolidayMinutes    int                `json:"holiday_minutes"`
	Status            string             `json:"status"`
	Sessions          []SessionResponse  `json:"sessions"`
	Adjustments       []ManualAdjustment `json:"adjustments"`
	Approvals         []Approval         `json:"approvals"`
	IsLocked          bool               `json:"is_locked"`
	RequiresApproval  bool               `json:"requires_approval"`
	ProcessedAt       *string            `json:"processed_at"`
	ProcessedBy       *string            `json:"processed_by"`
}

type ListRecordsResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Records    []RecordResponse `json:"records"`
}

// BatchResult is the aggregate outcome of a batch run. Partial failure is
// the expected shape, not an error.
type BatchResult struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
