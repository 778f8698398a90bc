// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, TOML files, environment overrides, flags and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := FromViper(New())
	require.NoError(t, err)

	assert.Equal(t, "/dev/i2c-1", c.I2C.Bus)
	assert.Equal(t, uint16(0x60), c.I2C.Address)
	assert.Equal(t, 44100, c.Clock.DefaultRate)
	assert.Equal(t, 8928, c.Control.Port)
	assert.True(t, c.Control.MDNS)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, time.Second, c.Probe.RetryInterval)
	assert.Equal(t, 0, c.Probe.MaxAttempts)
	assert.False(t, c.Device.Simulate)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[i2c]
bus = "/dev/i2c-0"
address = 0x61

[clock]
default_rate = 48000

[probe]
retry_interval = "250ms"
max_attempts = 5
`), 0o644))

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-0", c.I2C.Bus)
	assert.Equal(t, uint16(0x61), c.I2C.Address)
	assert.Equal(t, 48000, c.Clock.DefaultRate)
	assert.Equal(t, 250*time.Millisecond, c.Probe.RetryInterval)
	assert.Equal(t, 5, c.Probe.MaxAttempts)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XCLOCKDAC_LOG_LEVEL", "debug")
	t.Setenv("XCLOCKDAC_DEVICE_SIMULATE", "true")

	c, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Device.Simulate)
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 8928, "")
	fs.Bool("simulate", false, "")
	fs.String("unrelated", "", "")
	require.NoError(t, fs.Parse([]string{"--port", "9000", "--simulate"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))

	c, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Control.Port)
	assert.True(t, c.Device.Simulate)
}

func TestValidate(t *testing.T) {
	base, err := FromViper(New())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"address too wide", func(c *Config) { c.I2C.Address = 0x80 }},
		{"zero rate", func(c *Config) { c.Clock.DefaultRate = 0 }},
		{"port range", func(c *Config) { c.Control.Port = 70000 }},
		{"zero interval", func(c *Config) { c.Probe.RetryInterval = 0 }},
		{"negative attempts", func(c *Config) { c.Probe.MaxAttempts = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
