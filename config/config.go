// Package config loads the tunables that govern a rollback session:
// how many frames it is willing to predict ahead, how long a silent
// peer is tolerated, and the local input delay. Loading follows the
// teacher's pattern of "read YAML, expand $ENV, apply defaults" rather
// than failing on a missing file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs a Session needs at construction time.
type Config struct {
	Version string         `yaml:"version"`
	Session *SessionConfig `yaml:"session"`
	Network *NetworkConfig `yaml:"network"`
	Logging *LoggingConfig `yaml:"logging"`
	Metrics *MetricsConfig `yaml:"metrics"`
}

// SessionConfig governs the synchronizer's prediction policy, per §4.2.
type SessionConfig struct {
	// MaxPredictionFrames is the prediction barrier: AddLocalInput refuses
	// new input once the queues have run this many frames ahead of the
	// last confirmed frame.
	MaxPredictionFrames uint32 `yaml:"max_prediction_frames"`

	// FrameDelay is applied to every local input queue at construction,
	// trading input latency for fewer rollbacks.
	FrameDelay uint32 `yaml:"frame_delay"`

	// MaxPlayers bounds the player roster a Session will accept.
	MaxPlayers int `yaml:"max_players"`
}

// NetworkConfig governs the UDP transport adapter, per §4.4.
type NetworkConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// DisconnectTimeout, as a Go duration string (e.g. "5s"), is how long
	// a peer may stay silent before the adapter declares it disconnected.
	DisconnectTimeout string `yaml:"disconnect_timeout"`
}

// LoggingConfig mirrors the teacher's logging config shape: a level, an
// output format, and optional file rotation.
type LoggingConfig struct {
	Level  string      `yaml:"level"`
	Format string      `yaml:"format"`
	File   *FileConfig `yaml:"file"`
}

// FileConfig is passed straight through to lumberjack.Logger.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig toggles the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and parses a YAML config file, expanding $ENV references and
// filling in defaults for anything left unset. A missing file yields the
// same Config as Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a Config with every field at its default, for hosts that
// don't want to author a YAML file (e.g. the demo command).
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}

	if cfg.Session == nil {
		cfg.Session = &SessionConfig{}
	}
	if cfg.Session.MaxPredictionFrames == 0 {
		cfg.Session.MaxPredictionFrames = 8
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 4
	}
	// FrameDelay's zero value (0) is itself a meaningful default: no delay.

	if cfg.Network == nil {
		cfg.Network = &NetworkConfig{}
	}
	if cfg.Network.ListenAddr == "" {
		cfg.Network.ListenAddr = "0.0.0.0:0"
	}
	if cfg.Network.DisconnectTimeout == "" {
		cfg.Network.DisconnectTimeout = "5s"
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
}

// DisconnectTimeout parses Network.DisconnectTimeout, falling back to 5s on
// a malformed value rather than failing Session construction.
func (c *Config) DisconnectTimeout() time.Duration {
	d, err := time.ParseDuration(c.Network.DisconnectTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
