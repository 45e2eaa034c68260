// Package daemon coordinates the background services and enforces
// single-instance execution through a lock file in the data directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"crownworks/internal/config"
	"crownworks/internal/library"
	"crownworks/internal/logging"
	"crownworks/internal/pagecache"
	"crownworks/internal/store"
	"crownworks/internal/worker"
)

// Daemon owns the worker loop and the admin API server.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	library *library.Library
	cache   *pagecache.Cache
	worker  *worker.Worker
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information for the admin API and CLI.
type Status struct {
	Running      bool                 `json:"running"`
	PID          int                  `json:"pid"`
	DatabasePath string               `json:"database_path"`
	LockFilePath string               `json:"lock_file_path"`
	LibraryCount int                  `json:"library_count"`
	CachedPages  int                  `json:"cached_pages"`
	Jobs         map[store.Status]int `json:"jobs"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, lib *library.Library, cache *pagecache.Cache, wk *worker.Worker, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || lib == nil || cache == nil || wk == nil {
		return nil, errors.New("daemon requires config, store, library, cache, and worker")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "crownworksd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		library:  lib,
		cache:    cache,
		worker:   wk,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, launches the worker, and begins serving
// the admin API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another crownworks daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.worker.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.worker.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API, stops the worker, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status assembles the runtime summary.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LibraryCount: d.library.Len(),
		CachedPages:  d.cache.Len(),
	}
	counts, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("collect job stats", logging.Error(err))
	} else {
		status.Jobs = counts
	}
	return status
}

// APIAddr returns the bound admin API address, empty until Start succeeds.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}
