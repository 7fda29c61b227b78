// Package config loads and validates the daemon configuration from a
// YAML file, with sane defaults for every field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lupettohf/meshttpd/errors"
)

// RadioConfig controls the connection to the mesh gateway device.
type RadioConfig struct {
	// Address is the TCP address of the gateway, host:port.
	Address string `yaml:"address"`
	// DialTimeout bounds a single connection attempt.
	DialTimeout Duration `yaml:"dial_timeout"`
	// ReconnectWait is the fixed pause between attempts.
	ReconnectWait Duration `yaml:"reconnect_wait"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Listen          string   `yaml:"listen"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// CacheConfig controls the in-memory stores.
type CacheConfig struct {
	// MessageCapacity is the number of received messages retained
	// before the oldest is evicted.
	MessageCapacity int `yaml:"message_capacity"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	// File, when set, writes logs to a rotating file instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the complete daemon configuration.
type Config struct {
	Radio RadioConfig `yaml:"radio"`
	HTTP  HTTPConfig  `yaml:"http"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Radio: RadioConfig{
			Address:       "localhost:4403",
			DialTimeout:   Duration(10 * time.Second),
			ReconnectWait: Duration(time.Second),
		},
		HTTP: HTTPConfig{
			Listen:          ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			MessageCapacity: 100,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads a YAML config file layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Radio.Address == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"radio.address is required")
	}
	if c.Radio.DialTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"radio.dial_timeout must be positive")
	}
	if c.Radio.ReconnectWait <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"radio.reconnect_wait must be positive")
	}
	if c.HTTP.Listen == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"http.listen is required")
	}
	if c.Cache.MessageCapacity <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"cache.message_capacity must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	return nil
}
