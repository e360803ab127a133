package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger in prod and a text logger elsewhere. level
// overrides the env default when set (debug, info, warn, error).
func New(env, level string) *slog.Logger {
	return NewWriter(os.Stdout, env, level)
}

func NewWriter(w io.Writer, env, level string) *slog.Logger {
	lvl := slog.LevelDebug
	if env == "prod" {
		lvl = slog.LevelInfo
	}
	if level != "" {
		lvl = parseLevel(level, lvl)
	}
	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

func parseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return def
}
