// ABOUTME: Entry point for the XclockDAC daemon
// ABOUTME: Parses flags and config, probes the card and serves the control protocol
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xclockdac/xclockdac-go/internal/app"
	"github.com/xclockdac/xclockdac-go/internal/config"
	"github.com/xclockdac/xclockdac-go/internal/logger"
	"github.com/xclockdac/xclockdac-go/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "xclockdacd",
	Short:         "XclockDAC clock generator daemon",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	fs := rootCmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "", "Optional path to toml config file")
	fs.String("i2c-bus", "/dev/i2c-1", "I2C character device of the clock generator")
	fs.Uint16("i2c-address", 0x60, "7-bit I2C address of the clock generator")
	fs.Int("default-rate", 44100, "Rate programmed once the card is ready")
	fs.Int("port", 8928, "Control server port")
	fs.Bool("mdns", true, "Advertise the control server over mDNS")
	fs.String("name", "", "Server friendly name (default hostname-xclockdac)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "text", "Log format (text, json)")
	fs.String("log-file", "", "Also write logs to this file")
	fs.Duration("retry-interval", time.Second, "Delay between deferred probe attempts")
	fs.Int("max-attempts", 0, "Give up after this many deferred probes (0 retries forever)")
	fs.Bool("simulate", false, "Use an in-memory register file instead of I2C")
	fs.String("i2s", "", "Path that must exist before the card binds")
}

func run(cmd *cobra.Command, args []string) error {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	v.SetDefault("control.name", defaultName())
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Infof("Starting %s: %s on port %d", version.String(), cfg.Control.Name, cfg.Control.Port)
	if cfg.Device.Simulate {
		log.Warn("Simulating the clock generator, no hardware is touched")
	} else {
		log.Infof("Clock generator at %s address 0x%02x", cfg.I2C.Bus, cfg.I2C.Address)
	}
	log.Info("Press Ctrl-C to stop")

	d, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

func defaultName() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-xclockdac", hostname)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
