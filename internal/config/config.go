// ABOUTME: Configuration loading for the xclockdac daemon and tools
// ABOUTME: Reads TOML files, XCLOCKDAC_ environment variables and bound flags via viper
//
// Example TOML:
// [i2c]
// bus = "/dev/i2c-1"
// address = 0x60
//
// [clock]
// default_rate = 44100
//
// [log]
// level = "debug"
//
// Environment Variables:
// XCLOCKDAC_I2C_BUS = "/dev/i2c-0"
// XCLOCKDAC_LOG_LEVEL = "warn"
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the typed view over the viper keys
type Config struct {
	I2C     I2C
	Clock   Clock
	Control Control
	Log     Log
	Probe   Probe
	Device  Device
}

// I2C selects the register bus
type I2C struct {
	Bus     string
	Address uint16
}

// Clock holds clock generator settings
type Clock struct {
	DefaultRate int
}

// Control holds control server settings
type Control struct {
	Port int
	MDNS bool
	Name string
}

// Log holds logger settings
type Log struct {
	Level  string
	Format string
	File   string
}

// Probe controls the deferred attach retry loop
type Probe struct {
	RetryInterval time.Duration
	MaxAttempts   int
}

// Device holds hardware selection
type Device struct {
	Simulate bool
	Output   string
	// I2S is a path that must exist before the card binds, empty to skip the check
	I2S string
}

// New returns a viper instance with defaults and search paths set
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetConfigType("toml")
	v.SetConfigName("config")
	v.AddConfigPath("/etc/xclockdac")
	v.AddConfigPath("$HOME/.config/xclockdac")
	v.SetEnvPrefix("XCLOCKDAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("i2c.bus", "/dev/i2c-1")
	v.SetDefault("i2c.address", 0x60)
	v.SetDefault("clock.default_rate", 44100)
	v.SetDefault("control.port", 8928)
	v.SetDefault("control.mdns", true)
	v.SetDefault("control.name", "xclockdac")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("probe.retry_interval", time.Second)
	v.SetDefault("probe.max_attempts", 0)
	v.SetDefault("device.simulate", false)
	v.SetDefault("device.output", "")
	v.SetDefault("device.i2s", "")
	return v
}

// flagKeys maps flag names onto config keys
var flagKeys = map[string]string{
	"i2c-bus":        "i2c.bus",
	"i2c-address":    "i2c.address",
	"default-rate":   "clock.default_rate",
	"port":           "control.port",
	"mdns":           "control.mdns",
	"name":           "control.name",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"log-file":       "log.file",
	"retry-interval": "probe.retry_interval",
	"max-attempts":   "probe.max_attempts",
	"simulate":       "device.simulate",
	"output":         "device.output",
	"i2s":            "device.i2s",
}

// BindFlags binds every known flag present in fs to its config key
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Read loads path, or the default search paths when path is empty.
// A missing file in the search paths is not an error.
func Read(v *viper.Viper, path string) error {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads configuration and returns the typed view
func Load(v *viper.Viper, path string) (Config, error) {
	if err := Read(v, path); err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// FromViper builds a validated Config from v
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		I2C: I2C{
			Bus:     v.GetString("i2c.bus"),
			Address: uint16(v.GetUint("i2c.address")),
		},
		Clock: Clock{
			DefaultRate: v.GetInt("clock.default_rate"),
		},
		Control: Control{
			Port: v.GetInt("control.port"),
			MDNS: v.GetBool("control.mdns"),
			Name: v.GetString("control.name"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Probe: Probe{
			RetryInterval: v.GetDuration("probe.retry_interval"),
			MaxAttempts:   v.GetInt("probe.max_attempts"),
		},
		Device: Device{
			Simulate: v.GetBool("device.simulate"),
			Output:   v.GetString("device.output"),
			I2S:      v.GetString("device.i2s"),
		},
	}
	return c, c.Validate()
}

// Validate checks ranges that viper cannot express
func (c Config) Validate() error {
	if c.I2C.Address > 0x7F {
		return fmt.Errorf("i2c.address 0x%x is not a 7-bit address", c.I2C.Address)
	}
	if c.Clock.DefaultRate <= 0 {
		return fmt.Errorf("clock.default_rate must be positive, got %d", c.Clock.DefaultRate)
	}
	if c.Control.Port <= 0 || c.Control.Port > 65535 {
		return fmt.Errorf("control.port %d out of range", c.Control.Port)
	}
	if c.Probe.RetryInterval <= 0 {
		return fmt.Errorf("probe.retry_interval must be positive, got %s", c.Probe.RetryInterval)
	}
	if c.Probe.MaxAttempts < 0 {
		return fmt.Errorf("probe.max_attempts must not be negative, got %d", c.Probe.MaxAttempts)
	}
	return nil
}
