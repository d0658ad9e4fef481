package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Log *slog.Logger

func init() {
	// Packages log through Log from tests and CLI tools before Init runs
	Log = slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Init installs the process-wide JSON logger. level is one of debug, info,
// warn, error; anything else means debug.
func Init(level string) {
	Log = New(os.Stdout, level)
}

func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
