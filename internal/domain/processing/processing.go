package processing

import (
	"context"
	"time"
)

// Log is one row per processing attempt. It feeds observability and
// batch statistics, never correctness.
type Log struct {
	ID         string
	UserID     string
	Date       time.Time
	Success    bool
	Message    *string
	EventCount int
	DurationMS int64
	Actor      string
	CreatedAt  time.Time
}

// LogRepository persists processing attempts.
type LogRepository interface {
	Create(ctx context.Context, log Log) error
}

// JobStatus is the queue state of a processing job.
type JobStatus string

const (
	JobQueued  JobStatus = "QUEUED"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
)

// Job is one durable unit of deferred work: recompute one user-day.
// DedupKey coalesces bursts of events for the same user-day while the
// job is still queued.
type Job struct {
	ID          string
	UserID      string
	Date        time.Time
	DedupKey    string
	Status      JobStatus
	Attempts    int
	RunAfter    time.Time
	HeartbeatAt *time.Time
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobRepository is the durable queue backing the worker pool.
type JobRepository interface {
	// Enqueue inserts a job unless an identical QUEUED job already exists
	// (dedup on DedupKey). Returns true when a new job was created.
	Enqueue(ctx context.Context, job Job) (bool, error)

	// ClaimNext atomically claims the oldest runnable job, marking it
	// RUNNING with a fresh heartbeat. Returns nil when the queue is idle.
	ClaimNext(ctx context.Context) (*Job, error)

	// Heartbeat refreshes the claim on a running job.
	Heartbeat(ctx context.Context, jobID string) error

	// Complete marks a job DONE.
	Complete(ctx context.Context, jobID string) error

	// Fail either requeues the job with backoff or, when attempts are
	// exhausted, marks it permanently FAILED with the error message.
	Fail(ctx context.Context, jobID string, errMsg string, runAfter time.Time, permanent bool) error

	// RequeueStalled requeues RUNNING jobs whose heartbeat is older than
	// the cutoff, bumping their attempt counters. Jobs already at the
	// attempt ceiling are marked FAILED instead. Returns requeued count.
	RequeueStalled(ctx context.Context, cutoff time.Time, maxAttempts int) (int, error)
}
