// Package config implements TOML configuration loading and validation for
// raildispatchd: file defaults decoded with github.com/BurntSushi/toml,
// then overridden by environment variables, then by CLI flags.
package config

import "time"

// Config is the top-level configuration structure for a broker session.
type Config struct {
	Session SessionConfig `toml:"session"`
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
}

// SessionConfig names the data source and the two event-log files a broker
// session reads and writes.
type SessionConfig struct {
	// LayoutFile points at the YAML fixture the data source loads places,
	// stretches, dispatch stretches, trains, and calls from. Production
	// deployments supply a different DataSource implementation; this path
	// is only consulted by the bundled testfixture loader.
	LayoutFile string `toml:"layout_file"`

	// TrainEventsFile and DispatchEventsFile are the two append-only CSV
	// event logs.
	TrainEventsFile    string `toml:"train_events_file"`
	DispatchEventsFile string `toml:"dispatch_events_file"`

	// Restart indicates this session should rebuild state from the event
	// logs instead of starting fresh.
	Restart bool `toml:"restart"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // text | json
}

// ServerConfig is consulted only by the out-of-scope HTTP/UI embedding
// point; the broker itself has no network surface.
type ServerConfig struct {
	MetricsAddr     string        `toml:"metrics_addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			TrainEventsFile:    "train-events.csv",
			DispatchEventsFile: "dispatch-events.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			MetricsAddr:     ":9090",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
