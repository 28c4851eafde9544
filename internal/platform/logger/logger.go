// Package logger provides structured logging setup.
package logger

import (
	"log/slog"
	"os"
)

// New builds the application logger. Dev mode uses human-readable text at
// debug level; prod uses JSON at info.
func New(devMode bool) *slog.Logger {
	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
