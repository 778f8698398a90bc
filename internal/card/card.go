// ABOUTME: Sound card composition for the XclockDAC
// ABOUTME: Wires register bus, clock device and stream binding, retrying deferred attaches
package card

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/internal/config"
	"github.com/xclockdac/xclockdac-go/pkg/clock"
	"github.com/xclockdac/xclockdac-go/pkg/pcm"
	"github.com/xclockdac/xclockdac-go/pkg/regio"
)

// ErrGaveUp is returned when the binding is still deferred after MaxAttempts
var ErrGaveUp = errors.New("card: dependencies never became ready")

// Options configures a Card
type Options struct {
	Bus           regio.Bus
	DefaultRate   int
	RetryInterval time.Duration
	MaxAttempts   int // 0 retries until the context ends
	Deps          []pcm.Dependency
	CPU           pcm.CPUDAI
	Log           logrus.FieldLogger

	// OnChange runs after the card attaches or detaches
	OnChange func()
}

// Card owns one clock device and its stream binding
type Card struct {
	Device  *clock.Device
	Binding *pcm.Binding

	opts Options
	log  logrus.FieldLogger

	mu    sync.Mutex
	ready chan struct{}
}

// New builds an unprobed card
func New(opts Options) (*Card, error) {
	if opts.Bus == nil {
		return nil, errors.New("card: no register bus")
	}
	if opts.DefaultRate == 0 {
		opts.DefaultRate = pcm.DefaultRate
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	log := opts.Log.WithField("component", "card")

	dev := clock.NewDevice(clock.XClockDAC, clock.WithLogger(opts.Log))

	bopts := []pcm.BindingOption{
		pcm.WithCodec(pcm.TDA1541A()),
		pcm.WithDefaultRate(opts.DefaultRate),
		pcm.WithBindingLogger(opts.Log),
	}
	if opts.CPU != nil {
		bopts = append(bopts, pcm.WithCPUDAI(opts.CPU, pcm.XClockDACLink))
	}

	return &Card{
		Device:  dev,
		Binding: pcm.NewBinding(dev, bopts...),
		opts:    opts,
		log:     log,
		ready:   make(chan struct{}),
	}, nil
}

// Probe attaches the clock, then retries the binding until it is ready.
// A clock register read failure is not retried.
func (c *Card) Probe(ctx context.Context) error {
	if !c.Device.Attached() {
		if err := c.Device.Attach(c.opts.Bus); err != nil {
			return fmt.Errorf("probe clock: %w", err)
		}
	}

	ticker := time.NewTicker(c.opts.RetryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		res := c.Binding.Attach(c.opts.Deps...)
		switch res.Outcome {
		case pcm.Ready:
			if res.Err != nil {
				// the card works, a stream will program the clock later
				c.log.WithError(res.Err).Warn("Card ready without default rate")
			} else {
				c.log.WithField("attempts", attempt).Info("Card ready")
			}
			c.markReady()
			c.changed()
			return nil

		case pcm.Failed:
			return fmt.Errorf("probe binding: %w", res.Err)
		}

		if c.opts.MaxAttempts > 0 && attempt >= c.opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempt, res.Err)
		}
		c.log.WithError(res.Err).WithField("attempt", attempt).Debug("Probe deferred")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-c.gateOpened():
		}
	}
}

// gateOpened fires when any pending Gate dependency opens, so retries need not wait a full tick
func (c *Card) gateOpened() <-chan struct{} {
	out := make(chan struct{})
	var once sync.Once
	for _, d := range c.opts.Deps {
		g, ok := d.(*pcm.Gate)
		if !ok || g.Ready() {
			continue
		}
		go func() {
			select {
			case <-g.Done():
				once.Do(func() { close(out) })
			case <-time.After(c.opts.RetryInterval):
			}
		}()
	}
	return out
}

func (c *Card) markReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.ready:
	default:
		close(c.ready)
	}
}

func (c *Card) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

// Ready is closed once Probe succeeds
func (c *Card) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Close detaches binding and clock and closes the bus when it is closable
func (c *Card) Close() error {
	c.Binding.Detach()
	c.Device.Detach()

	c.mu.Lock()
	c.ready = make(chan struct{})
	c.mu.Unlock()
	c.changed()

	if closer, ok := c.opts.Bus.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// OpenBus returns the configured register bus: an in-memory register file when
// simulating, otherwise the i2c-dev character device.
func OpenBus(c config.Config) (regio.Bus, error) {
	if c.Device.Simulate {
		mem := regio.NewMem(clock.RegRate)
		// power-on default of the generator: 44.1 kHz
		code, _ := clock.XClockDAC.LookupExact(44100)
		mem.Poke(clock.RegRate, byte(code))
		return mem, nil
	}
	bus, err := regio.OpenI2CDev(c.I2C.Bus, c.I2C.Address)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.I2C.Bus, err)
	}
	return bus, nil
}

// PathDependency is ready once path exists, e.g. the I2S controller's sysfs node
func PathDependency(path string) pcm.Dependency {
	return pcm.DependencyFunc("i2s:"+path, func() bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

// FromConfig builds a card from configuration
func FromConfig(c config.Config, log logrus.FieldLogger, onChange func()) (*Card, error) {
	bus, err := OpenBus(c)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Bus:           bus,
		DefaultRate:   c.Clock.DefaultRate,
		RetryInterval: c.Probe.RetryInterval,
		MaxAttempts:   c.Probe.MaxAttempts,
		CPU:           &I2SPort{log: log},
		Log:           log,
		OnChange:      onChange,
	}
	if c.Device.I2S != "" {
		opts.Deps = append(opts.Deps, PathDependency(c.Device.I2S))
	}
	return New(opts)
}
