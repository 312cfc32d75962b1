package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/processing"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type jobRepository struct {
	db *database.DB
}

func NewJobRepository(db *database.DB) processing.JobRepository {
	return &jobRepository{db: db}
}

const jobColumns = `id, user_id, date, dedup_key, status, attempts, run_after,
	   heartbeat_at, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (processing.Job, error) {
	var j processing.Job
	err := row.Scan(
		&j.ID, &j.UserID, &j.Date, &j.DedupKey, &j.Status, &j.Attempts,
		&j.RunAfter, &j.HeartbeatAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// Enqueue implements processing.JobRepository. The partial unique index
// on (dedup_key) WHERE status = 'QUEUED' coalesces bursts for the same
// user-day; once a job is running a fresh enqueue creates a new one.
func (r *jobRepository) Enqueue(ctx context.Context, job processing.Job) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO processing_jobs (id, user_id, date, dedup_key, status, run_after)
		VALUES ($1, $2, $3, $4, 'QUEUED', $5)
		ON CONFLICT (dedup_key) WHERE status = 'QUEUED' DO NOTHING
	`

	tag, err := q.Exec(ctx, query, job.ID, job.UserID, job.Date, job.DedupKey, job.RunAfter)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimNext implements processing.JobRepository. SKIP LOCKED lets
// parallel workers claim without blocking each other; the attempt
// counter increments at claim time so a crashed run still counts.
func (r *jobRepository) ClaimNext(ctx context.Context) (*processing.Job, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE processing_jobs
		SET status = 'RUNNING', attempts = attempts + 1,
			heartbeat_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM processing_jobs
			WHERE status = 'QUEUED' AND run_after <= NOW()
			ORDER BY run_after ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	j, err := scanJob(q.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return &j, nil
}

// Heartbeat implements processing.JobRepository.
func (r *jobRepository) Heartbeat(ctx context.Context, jobID string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		UPDATE processing_jobs SET heartbeat_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'RUNNING'
	`, jobID)
	if err != nil {
		return fmt.Errorf("failed to heartbeat job: %w", err)
	}
	return nil
}

// Complete implements processing.JobRepository.
func (r *jobRepository) Complete(ctx context.Context, jobID string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		UPDATE processing_jobs SET status = 'DONE', last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`, jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// Fail implements processing.JobRepository.
func (r *jobRepository) Fail(ctx context.Context, jobID string, errMsg string, runAfter time.Time, permanent bool) error {
	q := GetQuerier(ctx, r.db)

	var err error
	if permanent {
		_, err = q.Exec(ctx, `
			UPDATE processing_jobs
			SET status = 'FAILED', last_error = $2, updated_at = NOW()
			WHERE id = $1
		`, jobID, errMsg)
	} else {
		_, err = q.Exec(ctx, `
			UPDATE processing_jobs
			SET status = 'QUEUED', last_error = $2, run_after = $3,
				heartbeat_at = NULL, updated_at = NOW()
			WHERE id = $1
		`, jobID, errMsg, runAfter)
	}
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// RequeueStalled implements processing.JobRepository.
func (r *jobRepository) RequeueStalled(ctx context.Context, cutoff time.Time, maxAttempts int) (int, error) {
	q := GetQuerier(ctx, r.db)

	// Exhausted jobs go straight to FAILED.
	_, err := q.Exec(ctx, `
		UPDATE processing_jobs
		SET status = 'FAILED', last_error = 'worker heartbeat lost', updated_at = NOW()
		WHERE status = 'RUNNING' AND heartbeat_at < $1 AND attempts >= $2
	`, cutoff, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to fail exhausted stalled jobs: %w", err)
	}

	tag, err := q.Exec(ctx, `
		UPDATE processing_jobs
		SET status = 'QUEUED', heartbeat_at = NULL,
			last_error = 'worker heartbeat lost', updated_at = NOW()
		WHERE status = 'RUNNING' AND heartbeat_at < $1 AND attempts < $2
	`, cutoff, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stalled jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
