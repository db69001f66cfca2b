package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger. Every record carries the
// service name so aggregated logs tell the API and the worker apart.
func NewLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	logger := slog.New(handler)
	if cfg != nil && cfg.AppName != "" {
		logger = logger.With(slog.String("service", cfg.AppName))
	}
	return logger
}
