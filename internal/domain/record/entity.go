package record

import (
	"time"
)

// Status is the derived state of a user-day.
type Status string

const (
	StatusOK         Status = "OK"
	StatusMissing    Status = "MISSING"
	StatusIncomplete Status = "INCOMPLETE"
	StatusAbsent     Status = "ABSENT"
	StatusHoliday    Status = "HOLIDAY"
	StatusWeekend    Status = "WEEKEND"
	StatusLeave      Status = "LEAVE"
)

// AdjustmentType classifies a manual correction.
type AdjustmentType string

const (
	AdjustmentClockTimeEdit    AdjustmentType = "CLOCK_TIME_EDIT"
	AdjustmentMarkAbsentPaid   AdjustmentType = "MARK_ABSENT_PAID"
	AdjustmentMarkAbsentUnpaid AdjustmentType = "MARK_ABSENT_UNPAID"
	AdjustmentStatusOverride   AdjustmentType = "STATUS_OVERRIDE"
	AdjustmentAddMinutes       AdjustmentType = "ADD_MINUTES"
	AdjustmentRemoveMinutes    AdjustmentType = "REMOVE_MINUTES"
)

// WorkSession is one clock-in paired with zero or one clock-out. Sessions
// are derived during processing and embedded in the record; they are not
// persisted as first-class rows.
type WorkSession struct {
	ClockIn         time.Time  `json:"clock_in"`
	ClockOut        *time.Time `json:"clock_out"`
	ClockInEventID  string     `json:"clock_in_event_id"`
	ClockOutEventID *string    `json:"clock_out_event_id"`
}

// IsComplete reports whether the session has a matching clock-out.
func (s WorkSession) IsComplete() bool {
	return s.ClockOut != nil
}

// ManualAdjustment is an append-only correction with before/after
// snapshots of the touched fields.
type ManualAdjustment struct {
	Type      AdjustmentType         `json:"type"`
	Reason    string                 `json:"reason"`
	Before    map[string]interface{} `json:"before"`
	After     map[string]interface{} `json:"after"`
	ActorID   string                 `json:"actor_id"`
	CreatedAt time.Time              `json:"created_at"`
}

// Approval is an append-only sign-off. Any approval with Locked=true
// freezes the record against automated reprocessing.
type Approval struct {
	Level     int       `json:"level"`
	ActorID   string    `json:"actor_id"`
	Locked    bool      `json:"locked"`
	Comments  *string   `json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceRecord is the single source of truth for a (user, date) pair.
// Exactly one row exists per pair, enforced by a unique index.
type AttendanceRecord struct {
	ID                string
	UserID            string
	Date              time.Time
	ScheduledStart    *time.Time
	ScheduledEnd      *time.Time
	ScheduledMinutes  int
	WorkedMinutes     int
	LateMinutes       int
	EarlyLeaveMinutes int
	OvertimeMinutes   int
	NightMinutes      int
	HolidayMinutes    int
	Status            Status
	EventIDs          []string
	Sessions          []WorkSession
	Adjustments       []ManualAdjustment
	Approvals         []Approval
	IsLocked          bool
	RequiresApproval  bool
	ProcessedAt       *time.Time
	ProcessedBy       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Locked reports whether the record must be skipped by automated
// reprocessing. Appending an approval with Locked=true sets the flag;
// only an explicit unlock clears it. The approval list stays as the
// audit trail either way.
func (r AttendanceRecord) Locked() bool {
	return r.IsLocked
}
