package queue

import (
	"testing"
	"time"
)

func TestDedupKey(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	got := DedupKey("user-1", date)
	want := "user-1:2026-03-02"
	if got != want {
		t.Errorf("DedupKey = %q, want %q", got, want)
	}

	// The time-of-day component never leaks into the key.
	noon := date.Add(12 * time.Hour)
	if DedupKey("user-1", noon) != want {
		t.Errorf("DedupKey should ignore the time of day")
	}
}

func TestBackoff(t *testing.T) {
	base := 30 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{0, 30 * time.Second},  // treated as the first attempt
		{-5, 30 * time.Second}, // same
		{30, time.Hour},        // capped
	}
	for _, c := range cases {
		got := Backoff(base, c.attempt)
		if got != c.want {
			t.Errorf("Backoff(%v, %d) = %v, want %v", base, c.attempt, got, c.want)
		}
	}
}

func TestBackoff_LargeBaseCapped(t *testing.T) {
	if got := Backoff(2*time.Hour, 1); got != time.Hour {
		t.Errorf("Backoff with oversized base = %v, want %v", got, time.Hour)
	}
}
