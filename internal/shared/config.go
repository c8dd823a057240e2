package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Workers  WorkersConfig  `toml:"workers"`
	Live     LiveConfig     `toml:"live"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	MaxReaders    int    `toml:"max_readers"`
	WAL           bool   `toml:"wal"`
}

// WorkersConfig sizes the worker context that runs blocking storage calls.
type WorkersConfig struct {
	Size int `toml:"size"`
}

// LiveConfig tunes live-query recomputation.
type LiveConfig struct {
	MaxRefreshPerSecond float64 `toml:"max_refresh_per_second"`
	RefreshTimeoutMS    int     `toml:"refresh_timeout_ms"`
	PollIntervalMS      int     `toml:"poll_interval_ms"`
}

// PollInterval returns how often watchers check for commits from other processes.
func (c LiveConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// BusyTimeout returns the configured busy timeout as a [time.Duration].
func (c DatabaseConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// RefreshTimeout returns the per-refresh deadline as a [time.Duration].
func (c LiveConfig) RefreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for values the store cannot work with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("%w: database.busy_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.Database.MaxReaders < 0 {
		return fmt.Errorf("%w: database.max_readers must not be negative", ErrInvalidConfig)
	}
	if c.Workers.Size < 0 {
		return fmt.Errorf("%w: workers.size must not be negative", ErrInvalidConfig)
	}
	if c.Live.MaxRefreshPerSecond < 0 {
		return fmt.Errorf("%w: live.max_refresh_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Live.PollIntervalMS <= 0 {
		return fmt.Errorf("%w: live.poll_interval_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
