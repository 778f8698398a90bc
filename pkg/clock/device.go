// ABOUTME: Register-backed clock device with a shadow copy of hardware state
// ABOUTME: Implements get/round/set rate over a RateTable and a regio.Bus
package clock

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xclockdac/xclockdac-go/pkg/regio"
)

const (
	// RegRate is the single control register selecting the output frequency
	RegRate byte = 0x2F

	// DefaultName is the clock name used when none is configured
	DefaultName = "clk-xclockdac"
)

// Provider is the clock-consumer contract exposed to whatever needs a generated clock
type Provider interface {
	Rate() (int, error)
	RoundRate(requested int) (int, error)
	SetRate(requested int) (int, error)
}

// Option configures a Device
type Option func(*Device)

// WithName sets the device name used in logs and errors
func WithName(name string) Option {
	return func(d *Device) {
		d.name = name
	}
}

// WithLogger sets the logger; defaults to the logrus standard logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Device) {
		d.log = log
	}
}

// Device is one XclockDAC generator. All methods are safe for concurrent use;
// operations are serialized so register transfers never overlap.
type Device struct {
	mu       sync.Mutex
	table    *RateTable
	bus      regio.Bus
	shadow   Code
	attached bool

	name string
	log  logrus.FieldLogger
}

// NewDevice creates a detached device using table
func NewDevice(table *RateTable, opts ...Option) *Device {
	d := &Device{
		table: table,
		name:  DefaultName,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithField("device", d.name)
	return d
}

// Name returns the device name
func (d *Device) Name() string {
	return d.name
}

// Table returns the rate table
func (d *Device) Table() *RateTable {
	return d.table
}

// Attach reads the current register value from bus and marks the device attached.
// On a read failure the device stays detached.
func (d *Device) Attach(bus regio.Bus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := bus.ReadReg(RegRate)
	if err != nil {
		d.log.WithError(err).Warn("Unable to read device register")
		return &AttachError{Device: d.name, Err: err}
	}

	d.bus = bus
	d.shadow = Code(v)
	d.attached = true

	fields := logrus.Fields{"code": d.shadow}
	if freq, ok := d.table.LookupCode(d.shadow); ok {
		fields["rate"] = freq
	}
	d.log.WithFields(fields).Info("Clock attached")

	return nil
}

// Detach releases the bus. It does not touch hardware and always succeeds.
func (d *Device) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.attached {
		d.log.Info("Clock detached")
	}
	d.bus = nil
	d.attached = false
}

// Attached reports whether the device is attached
func (d *Device) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

// Code returns the shadow register code
func (d *Device) Code() (Code, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached {
		return 0, ErrNotAttached
	}
	return d.shadow, nil
}

// Rate returns the frequency selected by the shadow code.
// If the code is not in the table it returns an error matching ErrUnrecognized.
func (d *Device) Rate() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached {
		return 0, ErrNotAttached
	}

	freq, ok := d.table.LookupCode(d.shadow)
	if !ok {
		return 0, &UnrecognizedCodeError{Code: d.shadow}
	}
	return freq, nil
}

// RoundRate returns the supported frequency nearest to requested. No hardware access.
func (d *Device) RoundRate(requested int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached {
		return 0, ErrNotAttached
	}
	return d.table.Round(requested), nil
}

// SetRate programs the device to requested, which must be an exact table entry.
// The shadow code changes only after the register write succeeds.
func (d *Device) SetRate(requested int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached {
		return 0, ErrNotAttached
	}

	code, ok := d.table.LookupExact(requested)
	if !ok {
		return 0, fmt.Errorf("%w: %d Hz", ErrInvalidRate, requested)
	}

	d.log.Debugf("updating value 0x%02x -> 0x%02x", uint8(d.shadow), uint8(code))

	if err := d.bus.WriteReg(RegRate, byte(code)); err != nil {
		d.log.WithError(err).Warn("Unable to write device register")
		return 0, &WriteError{Rate: requested, Code: code, Err: err}
	}

	d.shadow = code
	return requested, nil
}
