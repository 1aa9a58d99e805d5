package obslog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/raildispatch/internal/config"
)

func TestBuildUsesConfiguredLevel(t *testing.T) {
	logger := Build(config.LoggingConfig{Level: "debug", Format: "text"})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildDefaultsUnknownLevelToInfo(t *testing.T) {
	logger := Build(config.LoggingConfig{Level: "loud", Format: "text"})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildDynamicTracksLevelVarChanges(t *testing.T) {
	lv := NewLevelVar(config.LoggingConfig{Level: "warn"})
	logger := BuildDynamic(config.LoggingConfig{Level: "warn", Format: "text"}, lv)

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))

	lv.Set(ParseLevel("debug"))

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("unknown"))
}
