package config

import (
	"os"
	"strconv"
)

// Environment variable names for overrides. These sit between the file and
// CLI-flag layers in the resolution chain: file defaults, then env, then
// CLI flag.
const (
	EnvConfig         = "RAILDISPATCH_CONFIG"
	EnvLayoutFile     = "RAILDISPATCH_LAYOUT"
	EnvTrainEvents    = "RAILDISPATCH_TRAIN_EVENTS"
	EnvDispatchEvents = "RAILDISPATCH_DISPATCH_EVENTS"
	EnvRestart        = "RAILDISPATCH_RESTART"
	EnvLogLevel       = "RAILDISPATCH_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables. These are
// resolved by ReadEnvOverrides and applied onto a Config by Apply, the same
// shape as CLIOverrides one layer up.
type EnvOverrides struct {
	ConfigPath         string
	LayoutFile         string
	TrainEventsFile    string
	DispatchEventsFile string
	Restart            bool
	RestartSet         bool
	LogLevel           string
}

// ReadEnvOverrides reads the RAILDISPATCH_* environment variables and
// returns any overrides found. It does not modify a Config itself; callers
// apply the relevant fields via Apply.
func ReadEnvOverrides() EnvOverrides {
	eo := EnvOverrides{
		ConfigPath:         os.Getenv(EnvConfig),
		LayoutFile:         os.Getenv(EnvLayoutFile),
		TrainEventsFile:    os.Getenv(EnvTrainEvents),
		DispatchEventsFile: os.Getenv(EnvDispatchEvents),
		LogLevel:           os.Getenv(EnvLogLevel),
	}

	if v, ok := os.LookupEnv(EnvRestart); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			eo.Restart = b
			eo.RestartSet = true
		}
	}

	return eo
}

// Apply overlays non-zero env overrides onto cfg, returning a new Config
// (the original is left untouched). Applied after the file layer and
// before CLIOverrides.Apply, so an explicit CLI flag always wins over an
// environment variable.
func (o EnvOverrides) Apply(cfg *Config) *Config {
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

	if o.LogLevel != "" {
		out.Logging.Level = o.LogLevel
	}

	return &out
}

// ResolveConfigPath determines the config file path using the three-layer
// priority: CLI flag > environment variable > empty (no file, defaults
// only). Mirrors CLIOverrides/EnvOverrides' own file > env > flag
// precedence one level up, at the point where the file path itself is
// chosen.
func ResolveConfigPath(env EnvOverrides, cliConfigPath string) string {
	if cliConfigPath != "" {
		return cliConfigPath
	}

	return env.ConfigPath
}
