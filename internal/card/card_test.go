// ABOUTME: Tests for card composition and the probe retry loop
// ABOUTME: Uses the in-memory register bus with gates standing in for the I2S controller
package card

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xclockdac/xclockdac-go/internal/config"
	"github.com/xclockdac/xclockdac-go/pkg/clock"
	"github.com/xclockdac/xclockdac-go/pkg/pcm"
	"github.com/xclockdac/xclockdac-go/pkg/regio"
)

func simBus(code byte) *regio.Mem {
	bus := regio.NewMem(clock.RegRate)
	bus.Poke(clock.RegRate, code)
	return bus
}

func newCard(t *testing.T, opts Options) *Card {
	t.Helper()
	log, _ := test.NewNullLogger()
	opts.Log = log
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 5 * time.Millisecond
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNewRequiresBus(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestProbeAppliesDefaultRate(t *testing.T) {
	bus := simBus(0b0000_1010) // powered up at 96 kHz
	var changes atomic.Int32
	c := newCard(t, Options{Bus: bus, OnChange: func() { changes.Add(1) }})

	require.NoError(t, c.Probe(context.Background()))

	rate, err := c.Device.Rate()
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	assert.Equal(t, []regio.Write{{Addr: clock.RegRate, Value: 0b0000_0011}}, bus.Writes())
	assert.True(t, c.Binding.Bound())
	assert.EqualValues(t, 1, changes.Load())

	select {
	case <-c.Ready():
	default:
		t.Fatal("Ready not closed after probe")
	}
}

func TestProbeCustomDefaultRate(t *testing.T) {
	bus := simBus(0b0000_0011)
	c := newCard(t, Options{Bus: bus, DefaultRate: 48000})
	require.NoError(t, c.Probe(context.Background()))

	rate, err := c.Device.Rate()
	require.NoError(t, err)
	assert.Equal(t, 48000, rate)
}

func TestProbeDefersUntilGateOpens(t *testing.T) {
	gate := pcm.NewGate("i2s")
	c := newCard(t, Options{Bus: simBus(0b0000_0011), Deps: []pcm.Dependency{gate}, RetryInterval: time.Hour})

	done := make(chan error, 1)
	go func() { done <- c.Probe(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("probe finished before dependency was ready: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	assert.False(t, c.Binding.Bound())

	gate.Open()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not wake when the gate opened")
	}
	assert.True(t, c.Binding.Bound())
}

func TestProbeGivesUp(t *testing.T) {
	c := newCard(t, Options{Bus: simBus(0b0000_0011), Deps: []pcm.Dependency{pcm.NewGate("i2s")}, MaxAttempts: 3})

	err := c.Probe(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGaveUp)
	assert.Contains(t, err.Error(), "3 attempts")
	assert.False(t, c.Binding.Bound())
}

func TestProbeContextCancelled(t *testing.T) {
	c := newCard(t, Options{Bus: simBus(0b0000_0011), Deps: []pcm.Dependency{pcm.NewGate("i2s")}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Probe(ctx), context.DeadlineExceeded)
}

func TestProbeClockReadFailure(t *testing.T) {
	bus := simBus(0b0000_0011)
	bus.FailReads(regio.ErrInjected)
	c := newCard(t, Options{Bus: bus})

	err := c.Probe(context.Background())
	var ae *clock.AttachError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, regio.ErrInjected)
	assert.False(t, c.Device.Attached())
}

func TestProbeDefaultRateFailureStillReady(t *testing.T) {
	bus := simBus(0b0000_1010)
	bus.FailWrites(regio.ErrInjected)
	c := newCard(t, Options{Bus: bus})

	require.NoError(t, c.Probe(context.Background()))
	assert.True(t, c.Binding.Bound())

	rate, err := c.Device.Rate()
	require.NoError(t, err)
	assert.Equal(t, 96000, rate, "shadow must keep the hardware value")
}

type rejectingDAI struct{}

func (rejectingDAI) SetBCLKRatio(int) error { return errors.New("fixed at 64") }

func TestProbeFailedIsPermanent(t *testing.T) {
	c := newCard(t, Options{Bus: simBus(0b0000_0011), CPU: rejectingDAI{}})
	err := c.Probe(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGaveUp)
	assert.False(t, c.Binding.Bound())
}

func TestClose(t *testing.T) {
	var changes atomic.Int32
	c := newCard(t, Options{Bus: simBus(0b0000_0011), OnChange: func() { changes.Add(1) }})
	require.NoError(t, c.Probe(context.Background()))
	require.NoError(t, c.Close())

	assert.False(t, c.Device.Attached())
	assert.False(t, c.Binding.Bound())
	assert.EqualValues(t, 2, changes.Load())

	_, err := c.Device.Rate()
	assert.ErrorIs(t, err, clock.ErrNotAttached)
}

func TestI2SPort(t *testing.T) {
	p := &I2SPort{}
	assert.NoError(t, p.SetBCLKRatio(32))
	assert.Equal(t, 32, p.BCLKRatio())
	assert.Error(t, p.SetBCLKRatio(48))
	assert.Equal(t, 32, p.BCLKRatio())
}

func TestPathDependency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i2s")
	dep := PathDependency(path)
	assert.False(t, dep.Ready())
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.True(t, dep.Ready())
}

func TestFromConfigSimulated(t *testing.T) {
	cfg, err := config.FromViper(config.New())
	require.NoError(t, err)
	cfg.Device.Simulate = true
	cfg.Clock.DefaultRate = 88200
	cfg.Device.I2S = t.TempDir() // exists

	log, _ := test.NewNullLogger()
	c, err := FromConfig(cfg, log, nil)
	require.NoError(t, err)
	require.NoError(t, c.Probe(context.Background()))

	rate, err := c.Device.Rate()
	require.NoError(t, err)
	assert.Equal(t, 88200, rate)

	port, ok := c.opts.CPU.(*I2SPort)
	require.True(t, ok)
	assert.Equal(t, 32, port.BCLKRatio())
}
