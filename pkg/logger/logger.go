package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide slog logger. Level is one of
// "debug", "info", "warn", "error"; anything else falls back to info.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Setup installs the logger as the slog default and returns it.
func Setup(level string) *slog.Logger {
	log := New(level)
	slog.SetDefault(log)
	return log
}
