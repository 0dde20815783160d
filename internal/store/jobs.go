package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/model"
)

// ErrNoJobAvailable is returned by ClaimJob when no Pending job is
// eligible right now.
var ErrNoJobAvailable = errors.New("store: no job available")

// EnqueueJob inserts a Pending IndexingJob for fileID unless one already
// exists for it (the unique index on indexing_jobs.file_id enforces "at
// most one non-terminal job per file" at the DB level for the common
// case; callers that re-queue after a terminal job should first check
// with HasActiveJob).
func (s *Store) EnqueueJob(ctx context.Context, execer QueryExecer, folderID, fileID uuid.UUID, priority int) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO indexing_jobs (folder_id, file_id, status, priority, max_attempts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (file_id) DO NOTHING`,
		folderID, fileID, model.JobPending, priority, 5)
	return err
}

// HasActiveJob reports whether fileID currently has a non-terminal job.
func (s *Store) HasActiveJob(ctx context.Context, execer QueryExecer, fileID uuid.UUID) (bool, error) {
	row := execer.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM indexing_jobs
			WHERE file_id = $1 AND status IN ($2, $3))`,
		fileID, model.JobPending, model.JobProcessing)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// ClaimJob atomically selects one eligible Pending job — retry_after
// elapsed, attempts under the cap, ordered by (priority DESC, created_at
// ASC) — locks it with SKIP LOCKED so concurrent workers never collide,
// and transitions it to Processing. Returns ErrNoJobAvailable if nothing
// is eligible.
func (s *Store) ClaimJob(ctx context.Context, now time.Time) (*model.IndexingJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: claim job begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, folder_id, file_id, status, priority, attempts, max_attempts, last_error, retry_after, created_at, started_at, completed_at
		FROM indexing_jobs
		WHERE status = $1
		  AND (retry_after IS NULL OR retry_after <= $2)
		  AND attempts < max_attempts
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, model.JobPending, now)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJobAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("store: claim job select: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE indexing_jobs
		SET status=$2, attempts=attempts+1, started_at=$3, retry_after=NULL
		WHERE id=$1`, job.ID, model.JobProcessing, now); err != nil {
		return nil, fmt.Errorf("store: claim job update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: claim job commit: %w", err)
	}

	job.Status = model.JobProcessing
	job.Attempts++
	job.StartedAt = &now
	job.RetryAfter = nil
	return job, nil
}

// CompleteJob marks a job Completed.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexing_jobs SET status=$2, completed_at=$3 WHERE id=$1`,
		id, model.JobCompleted, now)
	return err
}

// RetryJob returns a job to Pending with retry_after set to now+delay,
// keeping its attempt counter, for a transient failure under the
// attempts cap.
func (s *Store) RetryJob(ctx context.Context, id uuid.UUID, errMsg string, retryAfter time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexing_jobs SET status=$2, last_error=$3, retry_after=$4 WHERE id=$1`,
		id, model.JobPending, errMsg, retryAfter)
	return err
}

// FailJob marks a job Failed: either a permanent error, or a transient
// one whose attempts are exhausted. Callers insert the DLQ row
// separately via UpsertFailedTask.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexing_jobs SET status=$2, last_error=$3, completed_at=$4 WHERE id=$1`,
		id, model.JobFailed, errMsg, now)
	return err
}

// ReapStuckJobs returns every Processing job whose started_at predates
// the hard deadline back to Pending with no delay, recovering from a
// worker that was killed mid-ingest (§A5's reaper).
func (s *Store) ReapStuckJobs(ctx context.Context, hardDeadline time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-hardDeadline)
	res, err := s.db.ExecContext(ctx, `
		UPDATE indexing_jobs
		SET status=$1, retry_after=NULL
		WHERE status=$2 AND started_at IS NOT NULL AND started_at < $3`,
		model.JobPending, model.JobProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: reap stuck jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanJob(row *sql.Row) (*model.IndexingJob, error) {
	var j model.IndexingJob
	err := row.Scan(&j.ID, &j.FolderID, &j.FileID, &j.Status, &j.Priority, &j.Attempts, &j.MaxAttempts, &j.LastError, &j.RetryAfter, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
