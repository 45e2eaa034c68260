package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crownworks/internal/config"
	"crownworks/internal/daemon"
	"crownworks/internal/library"
	"crownworks/internal/media"
	"crownworks/internal/pagecache"
	"crownworks/internal/store"
	"crownworks/internal/worker"
)

// bootstrap wires the store, library, cache, worker, and daemon together.
func bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	lib, err := library.Open(ctx, st, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open media library: %w", err)
	}

	cache := pagecache.New(
		time.Duration(cfg.Cache.FreshTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.StaleTTLSeconds)*time.Second,
		logger,
	)
	processor := media.NewProcessor(cfg, logger)
	wk := worker.New(cfg, st, processor, lib, cache, logger)

	d, err := daemon.New(cfg, st, lib, cache, wk, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return d, nil
}
