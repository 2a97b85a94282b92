package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process logger. Both the api and the worker
// log JSON to stdout with a service attribute; at debug level the
// handler also records call sites, which is what you want when tracing
// a misfiring rule chain.
func NewJSONLogger(service, level string) *slog.Logger {
	lvl := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
