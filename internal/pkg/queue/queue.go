package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/processing"
	"github.com/google/uuid"
)

// Processor is the unit of work a claimed job is handed to.
type Processor interface {
	Process(ctx context.Context, userID string, date time.Time) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, userID string, date time.Time) error

func (f ProcessorFunc) Process(ctx context.Context, userID string, date time.Time) error {
	return f(ctx, userID, date)
}

// DedupKey coalesces queued jobs for the same user-day.
func DedupKey(userID string, date time.Time) string {
	return fmt.Sprintf("%s:%s", userID, date.Format("2006-01-02"))
}

// Backoff returns the exponential delay before the given retry attempt
// (1-based), capped at one hour.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	if d > time.Hour {
		return time.Hour
	}
	return d
}

// Pool is a worker pool draining the durable processing queue. Workers
// claim jobs one at a time, heartbeat while running, and either complete
// the job or push it back with backoff.
type Pool struct {
	jobs      processing.JobRepository
	processor Processor
	cfg       config.WorkerConfig
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewPool(jobs processing.JobRepository, processor Processor, cfg config.WorkerConfig) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:      jobs,
		processor: processor,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enqueue pushes a user-day onto the queue, deduplicating against an
// identical job that is still queued.
func (p *Pool) Enqueue(ctx context.Context, userID string, date time.Time) error {
	created, err := p.jobs.Enqueue(ctx, processing.Job{
		ID:       uuid.NewString(),
		UserID:   userID,
		Date:     date,
		DedupKey: DedupKey(userID, date),
		Status:   processing.JobQueued,
		RunAfter: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("enqueue processing job: %w", err)
	}
	if !created {
		slog.Debug("Processing job coalesced", "user_id", userID, "date", date.Format("2006-01-02"))
	}
	return nil
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	slog.Info("Processing worker pool started", "workers", p.cfg.Count)
}

// Stop waits for in-flight jobs to finish. Jobs are never interrupted
// mid-transaction; cancellation lands between units.
func (p *Pool) Stop() {
	slog.Info("Stopping processing worker pool...")
	p.cancel()
	p.wg.Wait()
	slog.Info("Processing worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		job, err := p.jobs.ClaimNext(p.ctx)
		if err != nil {
			slog.Error("Failed to claim job", "worker", id, "error", err)
			p.sleep()
			continue
		}
		if job == nil {
			p.sleep()
			continue
		}

		p.run(job)
	}
}

func (p *Pool) run(job *processing.Job) {
	start := time.Now()

	// Keep the claim fresh while the unit runs.
	hbCtx, stopHeartbeat := context.WithCancel(p.ctx)
	go p.heartbeat(hbCtx, job.ID)
	defer stopHeartbeat()

	err := p.processor.Process(p.ctx, job.UserID, job.Date)
	if err == nil {
		if cErr := p.jobs.Complete(p.ctx, job.ID); cErr != nil {
			slog.Error("Failed to complete job", "job_id", job.ID, "error", cErr)
		}
		slog.Debug("Processing job completed",
			"job_id", job.ID, "user_id", job.UserID, "duration", time.Since(start))
		return
	}

	permanent := job.Attempts >= p.cfg.MaxAttempts
	runAfter := time.Now().UTC().Add(Backoff(p.cfg.BaseBackoff, job.Attempts))
	if fErr := p.jobs.Fail(p.ctx, job.ID, err.Error(), runAfter, permanent); fErr != nil {
		slog.Error("Failed to record job failure", "job_id", job.ID, "error", fErr)
	}
	slog.Error("Processing job failed",
		"job_id", job.ID, "user_id", job.UserID, "attempt", job.Attempts,
		"permanent", permanent, "error", err)
}

func (p *Pool) heartbeat(ctx context.Context, jobID string) {
	interval := p.cfg.HeartbeatTimeout / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.jobs.Heartbeat(ctx, jobID); err != nil {
				slog.Warn("Job heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (p *Pool) sleep() {
	select {
	case <-p.ctx.Done():
	case <-time.After(p.cfg.PollInterval):
	}
}

// RequeueStalled pushes back jobs whose worker died mid-run. Meant to be
// driven by the cron scheduler.
func (p *Pool) RequeueStalled(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-p.cfg.HeartbeatTimeout)
	n, err := p.jobs.RequeueStalled(ctx, cutoff, p.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("requeue stalled jobs: %w", err)
	}
	if n > 0 {
		slog.Warn("Requeued stalled processing jobs", "count", n)
	}
	return nil
}
