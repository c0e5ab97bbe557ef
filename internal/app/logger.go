package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. JSON output is meant for
// aggregated deployments; the text handler reads better on a local run.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
