package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/model"
)

// UpsertFailedTask records a DLQ entry for upstreamTaskID, or updates the
// existing one in place if this task has failed before (same
// upstream_task_id), bumping its retry count and overwriting the
// exception detail with the most recent failure.
func (s *Store) UpsertFailedTask(ctx context.Context, upstreamTaskID uuid.UUID, taskName string, args json.RawMessage, exceptionType, message, tracebackExcerpt string, retries int, failedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_tasks (upstream_task_id, task_name, args, exception_type, message, traceback_excerpt, retries, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (upstream_task_id) DO UPDATE SET
			task_name = EXCLUDED.task_name,
			args = EXCLUDED.args,
			exception_type = EXCLUDED.exception_type,
			message = EXCLUDED.message,
			traceback_excerpt = EXCLUDED.traceback_excerpt,
			retries = EXCLUDED.retries,
			failed_at = EXCLUDED.failed_at,
			resolved_at = NULL,
			resolution_notes = NULL`,
		upstreamTaskID, taskName, args, exceptionType, message, tracebackExcerpt, retries, failedAt)
	return err
}

// ListFailedTasks returns unresolved DLQ entries first, most recent
// failure first, for the operator-facing DLQ surface.
func (s *Store) ListFailedTasks(ctx context.Context, includeResolved bool) ([]*model.FailedTask, error) {
	query := `
		SELECT id, upstream_task_id, task_name, args, exception_type, message, traceback_excerpt, retries, failed_at, resolved_at, resolution_notes
		FROM failed_tasks`
	if !includeResolved {
		query += ` WHERE resolved_at IS NULL`
	}
	query += ` ORDER BY resolved_at IS NULL DESC, failed_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list failed tasks: %w", err)
	}
	defer rows.Close()

	var out []*model.FailedTask
	for rows.Next() {
		t, err := scanFailedTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetFailedTask loads a single DLQ entry.
func (s *Store) GetFailedTask(ctx context.Context, id uuid.UUID) (*model.FailedTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, upstream_task_id, task_name, args, exception_type, message, traceback_excerpt, retries, failed_at, resolved_at, resolution_notes
		FROM failed_tasks WHERE id = $1`, id)

	t, err := scanFailedTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("failed task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get failed task: %w", err)
	}
	return t, nil
}

// ResolveFailedTask marks a DLQ entry resolved with an operator note,
// e.g. after a manual re-run or a deliberate skip.
func (s *Store) ResolveFailedTask(ctx context.Context, id uuid.UUID, notes string, resolvedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE failed_tasks SET resolved_at=$2, resolution_notes=$3 WHERE id=$1`,
		id, resolvedAt, notes)
	return err
}

// DeleteFailedTask removes a DLQ entry outright, used when an operator
// confirms it was a duplicate of another entry.
func (s *Store) DeleteFailedTask(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM failed_tasks WHERE id=$1`, id)
	return err
}

func scanFailedTask(row *sql.Row) (*model.FailedTask, error) {
	var t model.FailedTask
	err := row.Scan(&t.ID, &t.UpstreamTaskID, &t.TaskName, &t.Args, &t.ExceptionType, &t.Message, &t.TracebackExcerpt, &t.Retries, &t.FailedAt, &t.ResolvedAt, &t.ResolutionNotes)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanFailedTaskRows(rows *sql.Rows) (*model.FailedTask, error) {
	var t model.FailedTask
	err := rows.Scan(&t.ID, &t.UpstreamTaskID, &t.TaskName, &t.Args, &t.ExceptionType, &t.Message, &t.TracebackExcerpt, &t.Retries, &t.FailedAt, &t.ResolvedAt, &t.ResolutionNotes)
	if err != nil {
		return nil, fmt.Errorf("store: scan failed task: %w", err)
	}
	return &t, nil
}
