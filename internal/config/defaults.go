package config

const (
	defaultDataDir      = "~/.local/share/crownworks/data"
	defaultSourceDir    = "~/.local/share/crownworks/media/source"
	defaultOptimizedDir = "~/.local/share/crownworks/media/optimized"
	defaultUploadDir    = "~/.local/share/crownworks/uploads"
	defaultLogDir       = "~/.local/share/crownworks/logs"
	defaultAPIBind      = "127.0.0.1:8488"

	defaultImageTool    = "cwebp"
	defaultVideoTool    = "ffmpeg"
	defaultImageQuality = 82
	defaultVideoCRF     = 28
	defaultVideoPreset  = "veryfast"
	defaultFetchTimeout = 60

	defaultPollInterval = 5
	defaultStallTimeout = 30

	defaultFreshTTL = 60
	defaultStaleTTL = 300

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			SourceDir:    defaultSourceDir,
			OptimizedDir: defaultOptimizedDir,
			UploadDir:    defaultUploadDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Media: Media{
			ImageTool:           defaultImageTool,
			VideoTool:           defaultVideoTool,
			ImageQuality:        defaultImageQuality,
			VideoCRF:            defaultVideoCRF,
			VideoPreset:         defaultVideoPreset,
			FetchTimeoutSeconds: defaultFetchTimeout,
		},
		Worker: Worker{
			PollIntervalSeconds: defaultPollInterval,
			StallTimeoutMinutes: defaultStallTimeout,
		},
		Cache: Cache{
			FreshTTLSeconds: defaultFreshTTL,
			StaleTTLSeconds: defaultStaleTTL,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
