// Package obs contains observability utilities such as logging and metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global structured logger used by the loader and the batch source.
//
// Logger is exported to allow other packages to use it for logging.
var Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// InitLogger initializes the global Logger with JSON handler at info level.
func InitLogger() {
	InitLoggerWith(os.Stdout, slog.LevelInfo)
}

// InitLoggerWith initializes the global Logger writing to w at the given level.
func InitLoggerWith(w io.Writer, level slog.Level) {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	Logger = slog.New(h)
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
