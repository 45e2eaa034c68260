// Package logging assembles structured slog loggers and formatting helpers
// used across crownworks components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attr helpers plus standardized field names so the
// store, worker, and daemon emit log lines with the same shape. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
