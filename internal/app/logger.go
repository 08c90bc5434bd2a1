package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger shared by the karma binaries.
// LOG_FORMAT=json switches to JSON output for log shippers; the default
// stays human-readable for terminal sessions.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
