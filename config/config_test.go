package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupettohf/meshttpd/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meshttpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
radio:
  address: "10.0.0.5:4403"
  reconnect_wait: 5s
http:
  listen: ":9090"
cache:
  message_capacity: 250
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:4403", cfg.Radio.Address)
	assert.Equal(t, 5*time.Second, cfg.Radio.ReconnectWait.Duration())
	// Untouched fields keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Radio.DialTimeout.Duration())
	assert.Equal(t, ":9090", cfg.HTTP.Listen)
	assert.Equal(t, 250, cfg.Cache.MessageCapacity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "radio: [not a map")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Radio.Address = "" }},
		{"zero dial timeout", func(c *Config) { c.Radio.DialTimeout = 0 }},
		{"negative reconnect wait", func(c *Config) { c.Radio.ReconnectWait = Duration(-time.Second) }},
		{"empty listen", func(c *Config) { c.HTTP.Listen = "" }},
		{"zero capacity", func(c *Config) { c.Cache.MessageCapacity = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}
