package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger shared by the HTTP server and the
// posting worker. LOG_FORMAT=json selects the JSON handler for log shippers;
// anything else falls back to text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
