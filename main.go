// ABOUTME: Entry point for the XclockDAC file player
// ABOUTME: Probes the card, then plays files at rates the clock generator supports
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/xclockdac/xclockdac-go/internal/card"
	"github.com/xclockdac/xclockdac-go/internal/config"
	"github.com/xclockdac/xclockdac-go/internal/logger"
	"github.com/xclockdac/xclockdac-go/internal/player"
	"github.com/xclockdac/xclockdac-go/internal/version"
	"github.com/xclockdac/xclockdac-go/pkg/audio/decode"
	"github.com/xclockdac/xclockdac-go/pkg/audio/output"
)

var (
	configPath   = pflag.StringP("config", "c", "", "Optional path to toml config file")
	probeTimeout = pflag.Duration("probe-timeout", 10*time.Second, "Give up if the card is not ready in time")
	quiet        = pflag.BoolP("quiet", "q", false, "Do not print playback progress")
	volume       = pflag.Int("volume", 100, "Software volume 0-100 for backends that support it")
	showVersion  = pflag.Bool("version", false, "Print version and exit")
)

func init() {
	pflag.String("i2c-bus", "/dev/i2c-1", "I2C character device of the clock generator")
	pflag.Uint16("i2c-address", 0x60, "7-bit I2C address of the clock generator")
	pflag.Bool("simulate", false, "Use an in-memory register file instead of I2C")
	pflag.String("output", "", "Output backend: malgo, oto, portaudio, capture or wav:PATH")
	pflag.String("i2s", "", "Path that must exist before the card binds")
	pflag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pflag.String("log-file", "", "Also write logs to this file")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] FILE...\n\nPlays MP3, FLAC and WAV files through the XclockDAC.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
}

func main() {
	pflag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}
	if err := run(pflag.Args()); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(files []string) error {
	v := config.New()
	v.SetDefault("log.level", "warn")
	if err := config.BindFlags(v, pflag.CommandLine); err != nil {
		return err
	}
	cfg, err := config.Load(v, *configPath)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	crd, err := card.FromConfig(cfg, log, nil)
	if err != nil {
		return err
	}
	defer crd.Close()

	pctx, cancel := context.WithTimeout(ctx, *probeTimeout)
	err = crd.Probe(pctx)
	cancel()
	if err != nil {
		return fmt.Errorf("card not ready: %w", err)
	}

	for _, path := range files {
		if err := playFile(ctx, crd, cfg.Device.Output, path, log); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.WithError(err).WithField("file", path).Error("Playback failed")
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
	}
	return nil
}

func playFile(ctx context.Context, crd *card.Card, backend, path string, log logrus.FieldLogger) error {
	out, err := output.New(backend, log)
	if err != nil {
		return err
	}
	defer out.Close()
	if vc, ok := out.(output.VolumeControl); ok {
		vc.SetVolume(*volume)
	} else if *volume != 100 {
		log.WithField("output", backend).Warn("Output has no volume control")
	}

	dec, err := decode.Open(path)
	if err != nil {
		return err
	}
	defer dec.Close()
	rate := dec.Format().SampleRate

	opts := []player.Option{player.WithLogger(log)}
	if !*quiet {
		opts = append(opts, player.WithProgress(func(frames int64) {
			if rate > 0 {
				fmt.Fprintf(os.Stderr, "\r%s  %s", path, (time.Duration(frames) * time.Second / time.Duration(rate)).Truncate(time.Second))
			}
		}))
	}

	p := player.New(crd.Binding, crd.Device, out, opts...)
	res, err := p.PlayDecoder(ctx, dec)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if res.Resampled {
		fmt.Printf("%s: %d Hz resampled to %d Hz, %d frames\n", path, res.Source.SampleRate, res.Rate, res.Frames)
	} else {
		fmt.Printf("%s: %d Hz, %d frames\n", path, res.Rate, res.Frames)
	}
	return nil
}
