package attendanceproc

import (
	"log/slog"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
)

// PairEvents groups one user-day's events, pre-sorted ascending by local
// timestamp, into work sessions. Greedy nearest match: a clock-in opens a
// session, a second clock-in abandons the open one as incomplete, a
// clock-out closes the open session, an orphan clock-out is dropped.
// Sessions never span the day boundary; a trailing open session stays
// incomplete.
func PairEvents(events []event.AttendanceEvent) []record.WorkSession {
	var sessions []record.WorkSession
	var open *record.WorkSession

	for _, e := range events {
		switch e.EventType {
		case event.TypeClockIn:
			if open != nil {
				sessions = append(sessions, *open)
			}
			open = &record.WorkSession{
				ClockIn:        e.OccurredAtLocal,
				ClockInEventID: e.ID,
			}
		case event.TypeClockOut:
			if open == nil {
				slog.Debug("Orphan clock-out ignored",
					"event_id", e.ID, "occurred_at", e.OccurredAtLocal)
				continue
			}
			out := e.OccurredAtLocal
			outID := e.ID
			open.ClockOut = &out
			open.ClockOutEventID = &outID
			sessions = append(sessions, *open)
			open = nil
		}
	}

	if open != nil {
		sessions = append(sessions, *open)
	}
	return sessions
}
