package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if c.Paths.OptimizedDir == "" {
		return errors.New("paths.optimized_dir must be set")
	}
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.ImageQuality < 1 || c.Media.ImageQuality > 100 {
		return errors.New("media.image_quality must be between 1 and 100")
	}
	if c.Media.VideoCRF < 0 || c.Media.VideoCRF > 51 {
		return errors.New("media.video_crf must be between 0 and 51")
	}
	if strings.TrimSpace(c.Media.VideoPreset) == "" {
		return errors.New("media.video_preset must be set")
	}
	if c.Media.FetchTimeoutSeconds < 0 {
		return errors.New("media.fetch_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.PollIntervalSeconds <= 0 {
		return errors.New("worker.poll_interval_seconds must be positive")
	}
	if c.Worker.StallTimeoutMinutes <= 0 {
		return errors.New("worker.stall_timeout_minutes must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.FreshTTLSeconds < 1 {
		return errors.New("cache.fresh_ttl_seconds must be at least 1")
	}
	if c.Cache.StaleTTLSeconds < 1 {
		return errors.New("cache.stale_ttl_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
