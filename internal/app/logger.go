package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide structured logger. Production runs get
// JSON for log shipping; everything else gets the readable text handler.
// Debug level is enabled outside production.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "finbuddy"))
}
