package schedule

import (
	"testing"
	"time"
)

func TestBoundaries(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	shift := Shift{StartTime: "09:00", EndTime: "18:00"}
	start, end, err := shift.Boundaries(day, time.UTC)
	if err != nil {
		t.Fatalf("Boundaries returned error: %v", err)
	}
	if !start.Equal(day.Add(9 * time.Hour)) {
		t.Errorf("start = %v, want 09:00", start)
	}
	if !end.Equal(day.Add(18 * time.Hour)) {
		t.Errorf("end = %v, want 18:00", end)
	}
}

func TestBoundaries_Overnight(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	shift := Shift{StartTime: "22:00", EndTime: "06:00"}
	start, end, err := shift.Boundaries(day, time.UTC)
	if err != nil {
		t.Fatalf("Boundaries returned error: %v", err)
	}
	if !start.Equal(day.Add(22 * time.Hour)) {
		t.Errorf("start = %v, want 22:00", start)
	}
	if !end.Equal(day.AddDate(0, 0, 1).Add(6 * time.Hour)) {
		t.Errorf("end = %v, want 06:00 next day", end)
	}
}

func TestBoundaries_Invalid(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for _, shift := range []Shift{
		{StartTime: "9am", EndTime: "18:00"},
		{StartTime: "09:00", EndTime: "25:99"},
	} {
		if _, _, err := shift.Boundaries(day, time.UTC); err == nil {
			t.Errorf("Boundaries(%v) should fail", shift)
		}
	}
}
