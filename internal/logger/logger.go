package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/xia0pin9/rocksplicator/config"
)

func level() slog.Level {
	switch strings.ToLower(config.Config.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger honoring the configured log level.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level(),
	}))
}
