// Package job implements the ingest worker: a bounded pool that claims
// IndexingJob rows, runs the per-file extraction/chunking/embedding
// pipeline, and classifies failures into retry-with-backoff or DLQ.
// Grounded on tasks/indexing.py's Celery task plus pkg/rag/store.go's
// semaphore-bounded worker-pool idiom, adapted from a document-discovery
// channel to polling a Postgres-backed queue.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/auth"
	"github.com/footnote/backend/internal/drive"
	"github.com/footnote/backend/internal/embed"
	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/model"
	"github.com/footnote/backend/internal/store"
)

// Pipeline is the ingest worker. One Pipeline polls for work and runs
// up to Concurrency ingests at a time.
type Pipeline struct {
	store    *store.Store
	drive    drive.SourceDrive
	ocr      extract.OCR
	embedder embed.Embedder
	model    languageModel
	sessions *auth.SessionResolver

	contextualChunkingOn bool
	concurrency          int64
	pollInterval         time.Duration

	log *slog.Logger
}

// Config bundles Pipeline's collaborators and tunables.
type Config struct {
	Store                *store.Store
	Drive                drive.SourceDrive
	OCR                  extract.OCR
	Embedder             embed.Embedder
	Model                languageModel
	Sessions             *auth.SessionResolver
	ContextualChunkingOn bool
	Concurrency          int
	PollInterval         time.Duration
	Logger               *slog.Logger
}

// New builds a Pipeline from cfg, applying the same defaults as
// DocumentStoreConfig does for its concurrency/poll knobs.
func New(cfg Config) *Pipeline {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 20
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		store:                cfg.Store,
		drive:                cfg.Drive,
		ocr:                  cfg.OCR,
		embedder:             cfg.Embedder,
		model:                cfg.Model,
		sessions:             cfg.Sessions,
		contextualChunkingOn: cfg.ContextualChunkingOn,
		concurrency:          int64(concurrency),
		pollInterval:         pollInterval,
		log:                  log,
	}
}

// Run polls for claimable jobs until ctx is canceled, dispatching each
// claimed job to a bounded worker slot. Mirrors DocumentStore.Index's
// semaphore/waitgroup pool, replacing its document-discovery channel
// with a ClaimJob poll loop since work here arrives via the jobs table,
// not a one-shot directory walk.
func (p *Pipeline) Run(ctx context.Context) error {
	sem := semaphore.NewWeighted(p.concurrency)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Wait for in-flight workers to finish before returning.
			_ = sem.Acquire(context.Background(), p.concurrency)
			return ctx.Err()
		case <-ticker.C:
		}

		for {
			if err := sem.Acquire(ctx, 1); err != nil {
				return ctx.Err()
			}

			j, err := p.store.ClaimJob(ctx, time.Now())
			if errors.Is(err, store.ErrNoJobAvailable) {
				sem.Release(1)
				break
			}
			if err != nil {
				sem.Release(1)
				p.log.Error("job: claim failed", "error", err)
				break
			}

			go func(j *model.IndexingJob) {
				defer sem.Release(1)
				p.process(ctx, j)
			}(j)
		}
	}
}

// process runs one job to completion and records its outcome, deciding
// between CompleteJob, RetryJob (transient, budget remaining), skip
// (Auth/NotFound/Validation/Permanent: the file can't be indexed but the
// folder must still be able to reach Ready), and FailJob (transient or
// internal, retries exhausted).
func (p *Pipeline) process(ctx context.Context, j *model.IndexingJob) {
	result, err := p.runIngest(ctx, j)
	now := time.Now()

	if err == nil {
		if completeErr := p.store.CompleteJob(ctx, j.ID, now); completeErr != nil {
			p.log.Error("job: mark complete failed", "job_id", j.ID, "error", completeErr)
		}
		p.log.Info("job: ingest succeeded", "job_id", j.ID, "file_id", j.FileID, "status", result.status, "chunks", result.chunks)
		return
	}

	if apperr.IsRetryable(err) && j.Attempts < jobMaxAttempts {
		retryAfter := now.Add(jobBackoffDelay(j.Attempts))
		if retryErr := p.store.RetryJob(ctx, j.ID, err.Error(), retryAfter); retryErr != nil {
			p.log.Error("job: schedule retry failed", "job_id", j.ID, "error", retryErr)
		}
		p.log.Warn("job: ingest failed, retrying", "job_id", j.ID, "file_id", j.FileID, "attempt", j.Attempts, "retry_after", retryAfter, "error", err)
		return
	}

	if kind, ok := apperr.KindOf(err); ok && kind != apperr.KindTransient && kind != apperr.KindInternal {
		p.skip(ctx, j, err, now)
		return
	}

	p.deadLetter(ctx, j, err, now)
}

// skip marks the job Completed and the file Skipped for a
// Validation/Auth/NotFound/Permanent cause: the file genuinely can't be
// indexed (bad input, missing permission, missing file, unsupported
// format), but that must not block the rest of the folder from reaching
// Ready. The cause still lands in the DLQ for operator visibility.
func (p *Pipeline) skip(ctx context.Context, j *model.IndexingJob, cause error, now time.Time) {
	if err := p.store.CompleteJob(ctx, j.ID, now); err != nil {
		p.log.Error("job: mark complete (skip) failed", "job_id", j.ID, "error", err)
	}
	if err := p.store.SetFileStatus(ctx, j.FileID, model.FileSkipped); err != nil {
		p.log.Error("job: set file skipped status failed", "job_id", j.ID, "error", err)
	}
	if err := p.refreshProgress(ctx, j.FolderID); err != nil {
		p.log.Error("job: refresh folder progress after skip failed", "job_id", j.ID, "error", err)
	}

	p.recordDeadLetter(ctx, j, cause, now)
	p.log.Warn("job: ingest skipped, permanent error", "job_id", j.ID, "file_id", j.FileID, "error", cause)
}

// deadLetter marks the job and its file failed and records a DLQ entry,
// matching DLQTask's on-failure hook. Reserved for Transient/Internal
// causes whose retry budget is exhausted.
func (p *Pipeline) deadLetter(ctx context.Context, j *model.IndexingJob, cause error, now time.Time) {
	if err := p.store.FailJob(ctx, j.ID, cause.Error(), now); err != nil {
		p.log.Error("job: mark failed failed", "job_id", j.ID, "error", err)
	}
	if err := p.store.SetFileStatus(ctx, j.FileID, model.FileFailed); err != nil {
		p.log.Error("job: set file failed status failed", "job_id", j.ID, "error", err)
	}
	if err := p.refreshProgress(ctx, j.FolderID); err != nil {
		p.log.Error("job: refresh folder progress after failure failed", "job_id", j.ID, "error", err)
	}

	p.recordDeadLetter(ctx, j, cause, now)
	p.log.Error("job: ingest permanently failed", "job_id", j.ID, "file_id", j.FileID, "error", cause)
}

// recordDeadLetter upserts the DLQ row shared by both the skip and the
// fail outcome.
func (p *Pipeline) recordDeadLetter(ctx context.Context, j *model.IndexingJob, cause error, now time.Time) {
	args, _ := json.Marshal(map[string]any{"file_id": j.FileID, "folder_id": j.FolderID})
	kind, _ := apperr.KindOf(cause)
	if err := p.store.UpsertFailedTask(ctx, j.ID, "ingest_file", args, kind.String(), cause.Error(), "", j.Attempts, now); err != nil {
		p.log.Error("job: dlq upsert failed", "job_id", j.ID, "error", err)
	}
}
