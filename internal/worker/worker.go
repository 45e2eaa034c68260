// Package worker runs the media job loop: a single polling goroutine that
// recycles stalled work, claims one pending job at a time, and routes it
// through the media processor.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"crownworks/internal/config"
	"crownworks/internal/library"
	"crownworks/internal/logging"
	"crownworks/internal/media"
	"crownworks/internal/pagecache"
	"crownworks/internal/store"
)

// PagePrefix is the cache key prefix invalidated after successful jobs so
// rendered pages pick up new media.
const PagePrefix = "page:"

// Worker polls the job queue and processes claimed jobs.
type Worker struct {
	cfg       *config.Config
	store     *store.Store
	processor *media.Processor
	library   *library.Library
	cache     *pagecache.Cache
	logger    *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	ticking atomic.Bool
}

// New constructs a worker. Start must be called before jobs are processed.
func New(cfg *config.Config, st *store.Store, processor *media.Processor, lib *library.Library, cache *pagecache.Cache, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		store:     st,
		processor: processor,
		library:   lib,
		cache:     cache,
		logger:    logging.NewComponentLogger(logger, "worker"),
	}
}

// Start launches the polling goroutine. Calling Start on a running worker
// is an error.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("worker already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.started = true

	interval := time.Duration(w.cfg.Worker.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	w.wg.Add(1)
	go w.run(runCtx, interval)
	w.logger.Info("worker started", logging.Duration("poll_interval", interval))
	return nil
}

// Stop cancels the polling goroutine and waits for any in-flight job to
// finish. Stop on a stopped worker is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) run(ctx context.Context, interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Poll immediately so a job enqueued before startup does not wait a
	// full interval.
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one poll cycle: recycle stalled jobs, then claim and process at
// most one pending job. Remaining work waits for the next interval, which
// keeps throughput bounded and predictable. A single cycle runs at a time;
// overlapping ticks are skipped rather than queued.
func (w *Worker) tick(ctx context.Context) {
	if !w.ticking.CompareAndSwap(false, true) {
		return
	}
	defer w.ticking.Store(false)

	w.recycleStalled(ctx)

	job, err := w.store.ClaimPending(ctx)
	if err != nil {
		w.logger.Error("claim pending job", logging.Error(err))
		return
	}
	if job == nil {
		return
	}
	w.process(ctx, job)
}

func (w *Worker) recycleStalled(ctx context.Context) {
	stallTimeout := time.Duration(w.cfg.Worker.StallTimeoutMinutes) * time.Minute
	if stallTimeout <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-stallTimeout)
	recycled, err := w.store.RecycleStalled(ctx, cutoff)
	if err != nil {
		w.logger.Error("recycle stalled jobs", logging.Error(err))
		return
	}
	if recycled > 0 {
		w.logger.Warn("recycled stalled jobs", logging.Int64("count", recycled))
	}
}

// process runs one claimed job to a terminal state. Panics in job handling
// are converted to failures so one bad payload cannot kill the loop.
func (w *Worker) process(ctx context.Context, job *store.Job) {
	requestID := uuid.NewString()
	jobLogger := w.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobType, string(job.Type)),
		logging.String(logging.FieldRequestID, requestID))

	jobLogger.Info("processing job", logging.Int("attempt", job.Attempts))

	var record media.Record
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job handler panic: %v", r)
			}
		}()
		record, err = w.handle(ctx, job, jobLogger)
		return err
	}()

	if err != nil {
		jobLogger.Error("job failed", logging.Error(err))
		if markErr := w.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			jobLogger.Error("mark job failed", logging.Error(markErr))
		}
		return
	}

	if appendErr := w.library.Append(ctx, record); appendErr != nil {
		jobLogger.Error("job failed", logging.Error(appendErr))
		if markErr := w.store.MarkFailed(ctx, job.ID, appendErr.Error()); markErr != nil {
			jobLogger.Error("mark job failed", logging.Error(markErr))
		}
		return
	}

	if markErr := w.store.MarkDone(ctx, job.ID); markErr != nil {
		jobLogger.Error("mark job done", logging.Error(markErr))
		return
	}

	invalidated := w.cache.Invalidate(PagePrefix)
	jobLogger.Info("job done",
		logging.String("title", record.Title),
		logging.Int("pages_invalidated", invalidated))
}

// handle dispatches by job type. Upload temp files are removed whether
// processing succeeds or fails so the staging directory never accumulates.
func (w *Worker) handle(ctx context.Context, job *store.Job, jobLogger *slog.Logger) (media.Record, error) {
	switch job.Type {
	case store.JobTypeImportURL:
		payload, err := job.ImportPayload()
		if err != nil {
			jobLogger.Warn("corrupt import payload", logging.Error(err))
			return media.Record{}, fmt.Errorf("decode import payload: %w", err)
		}
		return w.processor.ImportFromURL(ctx, payload.URL, payload.Title)

	case store.JobTypeUploadFile:
		payload, err := job.UploadPayload()
		if err != nil {
			jobLogger.Warn("corrupt upload payload", logging.Error(err))
			return media.Record{}, fmt.Errorf("decode upload payload: %w", err)
		}
		defer w.removeStaged(payload.Path, jobLogger)
		return w.processor.ProcessUpload(ctx, media.Upload{
			Path:         payload.Path,
			OriginalName: payload.OriginalName,
			MimeType:     payload.MimeType,
		}, payload.Title)

	default:
		return media.Record{}, fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (w *Worker) removeStaged(path string, jobLogger *slog.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		jobLogger.Warn("remove staged upload", logging.Error(err))
	}
}
