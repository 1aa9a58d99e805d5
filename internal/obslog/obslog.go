// Package obslog builds the structured logger used throughout
// raildispatchd: a slog.Logger whose handler and level are selected from
// config/CLI flags.
package obslog

import (
	"log/slog"
	"os"

	"github.com/tonimelisma/raildispatch/internal/config"
)

// Build constructs a *slog.Logger from the resolved logging config.
func Build(cfg config.LoggingConfig) *slog.Logger {
	lv := &slog.LevelVar{}
	lv.Set(parseLevel(cfg.Level))

	return newLogger(cfg.Format, lv)
}

// NewLevelVar returns a slog.LevelVar initialized from cfg's level, for a
// logger whose level should change at runtime without rebuilding its
// handler (see BuildDynamic).
func NewLevelVar(cfg config.LoggingConfig) *slog.LevelVar {
	lv := &slog.LevelVar{}
	lv.Set(parseLevel(cfg.Level))

	return lv
}

// BuildDynamic is like Build, except the returned logger's level tracks lv:
// a later lv.Set call (e.g. from a SIGHUP config reload) changes the
// threshold of every subsequent log call without reconstructing the
// handler. The output format (text/json) is fixed at construction.
func BuildDynamic(cfg config.LoggingConfig, lv *slog.LevelVar) *slog.Logger {
	return newLogger(cfg.Format, lv)
}

func newLogger(format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a config level string to a slog.Level, defaulting to
// Info for an unrecognized value.
func ParseLevel(s string) slog.Level {
	return parseLevel(s)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
