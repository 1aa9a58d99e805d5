package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "train-events.csv", cfg.Session.TrainEventsFile)
	assert.Equal(t, "dispatch-events.csv", cfg.Session.DispatchEventsFile)
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raildispatchd.toml")

	contents := `
[session]
layout_file = "layout.yaml"
train_events_file = "custom-train.csv"
dispatch_events_file = "custom-dispatch.csv"
restart = true

[logging]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "layout.yaml", cfg.Session.LayoutFile)
	assert.Equal(t, "custom-train.csv", cfg.Session.TrainEventsFile)
	assert.Equal(t, "custom-dispatch.csv", cfg.Session.DispatchEventsFile)
	assert.True(t, cfg.Session.Restart)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raildispatchd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o600))

	_, err := Load(path, discardLogger())
	assert.Error(t, err)
}

func TestCLIOverridesApply(t *testing.T) {
	cfg := DefaultConfig()
	o := CLIOverrides{Debug: true, RestartSet: true, Restart: true}

	out := o.Apply(cfg)

	assert.Equal(t, "debug", out.Logging.Level)
	assert.True(t, out.Session.Restart)
	// Original untouched.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/raildispatchd.toml")
	t.Setenv(EnvLayoutFile, "env-layout.yaml")
	t.Setenv(EnvTrainEvents, "env-train.csv")
	t.Setenv(EnvDispatchEvents, "env-dispatch.csv")
	t.Setenv(EnvRestart, "true")
	t.Setenv(EnvLogLevel, "debug")

	eo := ReadEnvOverrides()

	assert.Equal(t, "/etc/raildispatchd.toml", eo.ConfigPath)
	assert.Equal(t, "env-layout.yaml", eo.LayoutFile)
	assert.Equal(t, "env-train.csv", eo.TrainEventsFile)
	assert.Equal(t, "env-dispatch.csv", eo.DispatchEventsFile)
	assert.True(t, eo.Restart)
	assert.True(t, eo.RestartSet)
	assert.Equal(t, "debug", eo.LogLevel)
}

func TestReadEnvOverridesIgnoresUnparsableRestart(t *testing.T) {
	t.Setenv(EnvRestart, "not-a-bool")

	eo := ReadEnvOverrides()

	assert.False(t, eo.RestartSet)
}

func TestEnvOverridesApply(t *testing.T) {
	cfg := DefaultConfig()
	o := EnvOverrides{LayoutFile: "env-layout.yaml", RestartSet: true, Restart: true, LogLevel: "warn"}

	out := o.Apply(cfg)

	assert.Equal(t, "env-layout.yaml", out.Session.LayoutFile)
	assert.True(t, out.Session.Restart)
	assert.Equal(t, "warn", out.Logging.Level)
	// Original untouched.
	assert.Equal(t, "", cfg.Session.LayoutFile)
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "/cli/path.toml", ResolveConfigPath(EnvOverrides{ConfigPath: "/env/path.toml"}, "/cli/path.toml"))
	assert.Equal(t, "/env/path.toml", ResolveConfigPath(EnvOverrides{ConfigPath: "/env/path.toml"}, ""))
	assert.Equal(t, "", ResolveConfigPath(EnvOverrides{}, ""))
}

func TestHolderUpdate(t *testing.T) {
	h := NewHolder(DefaultConfig(), "/tmp/x.toml")
	assert.Equal(t, "/tmp/x.toml", h.Path())

	h.Update(&Config{Logging: LoggingConfig{Level: "debug", Format: "text"}})
	assert.Equal(t, "debug", h.Config().Logging.Level)
}
