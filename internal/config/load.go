package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, starting from DefaultConfig so
// unset sections keep their defaults.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns DefaultConfig if path
// is empty.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// CLIOverrides carries the subset of config fields settable by CLI flag,
// applied after the file layer.
type CLIOverrides struct {
	LayoutFile         string
	TrainEventsFile    string
	DispatchEventsFile string
	Restart            bool
	RestartSet         bool
	Debug              bool
	Quiet              bool
}

// Apply overlays non-zero CLI overrides onto cfg, returning a new Config
// (the original is left untouched: copy-then-patch).
func (o CLIOverrides) Apply(cfg *Config) *Config {
	out := *cfg

	if o.LayoutFile != "" {
		out.Session.LayoutFile = o.LayoutFile
	}

	if o.TrainEventsFile != "" {
		out.Session.TrainEventsFile = o.TrainEventsFile
	}

	if o.DispatchEventsFile != "" {
		out.Session.DispatchEventsFile = o.DispatchEventsFile
	}

	if o.RestartSet {
		out.Session.Restart = o.Restart
	}

	if o.Debug {
		out.Logging.Level = "debug"
	}

	if o.Quiet {
		out.Logging.Level = "error"
	}

	return &out
}

// Validate checks the config for internally-consistent values.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logging.level %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid logging.format %q", cfg.Logging.Format)
	}

	if cfg.Session.TrainEventsFile == "" {
		return fmt.Errorf("config: session.train_events_file must not be empty")
	}

	if cfg.Session.DispatchEventsFile == "" {
		return fmt.Errorf("config: session.dispatch_events_file must not be empty")
	}

	return nil
}
