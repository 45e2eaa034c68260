// Package config loads and validates the crownworks TOML configuration.
//
// Defaults live in defaults.go; Load layers the config file over them and
// expands home-relative paths. EnsureDirectories creates the runtime
// directory tree so the store, media processor, and logger can assume their
// target directories exist.
package config
