// ABOUTME: Stream-to-clock binding
// ABOUTME: Constrains stream rates to the clock table and programs the clock on commit
package pcm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xclockdac/xclockdac-go/pkg/clock"
)

// DefaultRate is programmed at bring-up before any stream is open
const DefaultRate = 44100

// Clock is the clock a Binding drives
type Clock interface {
	clock.Provider
	Attached() bool
	Table() *clock.RateTable
}

// BindingOption configures a Binding
type BindingOption func(*Binding)

// WithCodec adds codec constraints to every opened stream
func WithCodec(c *Codec) BindingOption {
	return func(b *Binding) {
		b.codec = c
	}
}

// WithCPUDAI configures the host interface through link during Attach
func WithCPUDAI(cpu CPUDAI, link DAILink) BindingOption {
	return func(b *Binding) {
		b.cpu = cpu
		b.link = link
	}
}

// WithDefaultRate overrides the bring-up rate
func WithDefaultRate(rate int) BindingOption {
	return func(b *Binding) {
		b.defaultRate = rate
	}
}

// WithBindingLogger sets the logger; defaults to the logrus standard logger
func WithBindingLogger(log logrus.FieldLogger) BindingOption {
	return func(b *Binding) {
		b.log = log
	}
}

// Binding keeps a clock programmed to the negotiated stream rate
type Binding struct {
	mu          sync.Mutex
	clk         Clock
	codec       *Codec
	cpu         CPUDAI
	link        DAILink
	defaultRate int
	bound       bool
	active      *Substream

	log logrus.FieldLogger
}

// NewBinding creates an unattached binding for clk
func NewBinding(clk Clock, opts ...BindingOption) *Binding {
	b := &Binding{
		clk:         clk,
		link:        XClockDACLink,
		defaultRate: DefaultRate,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("link", b.link.Name)
	return b
}

// Attach binds to the clock once it and every dependency are ready.
//
// A missing dependency yields Deferred with ErrDependencyNotReady. On Ready the default
// rate is applied; if that fails the binding stays attached and the failure is returned
// in Err.
func (b *Binding) Attach(deps ...Dependency) AttachResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bound {
		return AttachResult{Outcome: Ready}
	}

	if !b.clk.Attached() {
		b.log.Debug("Clock not attached yet, deferring")
		return AttachResult{Outcome: Deferred, Err: fmt.Errorf("%w: clock", ErrDependencyNotReady)}
	}
	for _, dep := range deps {
		if !dep.Ready() {
			b.log.WithField("dependency", dep.Name()).Debug("Dependency not ready, deferring")
			return AttachResult{Outcome: Deferred, Err: fmt.Errorf("%w: %s", ErrDependencyNotReady, dep.Name())}
		}
	}

	if b.codec != nil {
		if err := b.codec.SetFormat(b.link.Format); err != nil {
			return AttachResult{Outcome: Failed, Err: err}
		}
	}
	if b.cpu != nil {
		if err := b.link.Init(b.cpu); err != nil {
			return AttachResult{Outcome: Failed, Err: err}
		}
	}

	b.bound = true
	b.log.Info("Binding attached")

	if err := b.applyDefault(b.defaultRate); err != nil {
		return AttachResult{Outcome: Ready, Err: err}
	}
	return AttachResult{Outcome: Ready}
}

// Detach unbinds; streams can no longer be opened
func (b *Binding) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = false
}

// Bound reports whether Attach has succeeded
func (b *Binding) Bound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bound
}

// OnDeviceReady programs defaultRate. Failures are logged and returned; the binding
// stays attached so a stream can reprogram the clock later.
func (b *Binding) OnDeviceReady(defaultRate int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.bound {
		return ErrNotBound
	}
	return b.applyDefault(defaultRate)
}

func (b *Binding) applyDefault(rate int) error {
	if _, err := b.clk.SetRate(rate); err != nil {
		b.log.WithError(err).WithField("rate", rate).Error("Cannot set default rate")
		return fmt.Errorf("failed to apply default rate %d: %w", rate, err)
	}
	b.log.WithField("rate", rate).Info("Default rate applied")
	return nil
}

// OnStreamOpen restricts n to exactly the clock's supported rates
func (b *Binding) OnStreamOpen(n Negotiation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.bound {
		return ErrNotBound
	}
	return n.ConstrainRates(b.clk.Table().Rates())
}

// OnParamsCommitted programs the clock to rate and blocks until the write completes.
// Any failure is a *HWParamsError and the stream must not start.
func (b *Binding) OnParamsCommitted(rate int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.bound {
		return &HWParamsError{Rate: rate, Err: ErrNotBound}
	}

	if _, err := b.clk.SetRate(rate); err != nil {
		level := logrus.ErrorLevel
		if errors.Is(err, clock.ErrInvalidRate) {
			// negotiation should have prevented this
			level = logrus.WarnLevel
		}
		b.log.WithError(err).WithField("rate", rate).Log(level, "Clock rate commit failed")
		return &HWParamsError{Rate: rate, Err: err}
	}

	b.log.WithField("rate", rate).Debug("Clock rate committed")
	return nil
}

// Codec returns the codec, if any
func (b *Binding) Codec() *Codec {
	return b.codec
}
