// ABOUTME: Tests for the playback substream lifecycle
// ABOUTME: Verifies that start is gated on a confirmed clock commit
package pcm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xclockdac/xclockdac-go/pkg/clock"
	"github.com/xclockdac/xclockdac-go/pkg/regio"
)

func TestSubstreamLifecycle(t *testing.T) {
	b, dev, bus := newBoundBinding(t, WithCodec(TDA1541A()))

	s, err := b.Open()
	require.NoError(t, err)
	assert.Equal(t, StateOpen, s.State())
	assert.False(t, s.ID.IsNil())

	assert.Equal(t, tableRates, s.Params().Rates())
	assert.Equal(t, []int{2}, s.Params().Channels())
	assert.Equal(t, []int{16}, s.Params().Widths())

	assert.ErrorIs(t, s.Start(), ErrNotPrepared)

	require.NoError(t, s.HWParams(48000, 2, 16))
	assert.Equal(t, StatePrepared, s.State())

	rate, err := dev.Rate()
	require.NoError(t, err)
	assert.Equal(t, 48000, rate)
	assert.Equal(t, byte(0b00001011), bus.Peek(clock.RegRate))
	assert.Equal(t, 48000, b.Codec().Rate())

	require.NoError(t, s.Start())
	assert.Equal(t, StateRunning, s.State())

	assert.ErrorIs(t, s.HWParams(96000, 2, 16), ErrRunning)

	require.NoError(t, s.Stop())
	require.NoError(t, s.HWParams(96000, 2, 16))
	rate, _ = dev.Rate()
	assert.Equal(t, 96000, rate)

	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
	assert.ErrorIs(t, s.Start(), ErrClosed)
	assert.ErrorIs(t, s.HWParams(44100, 2, 16), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestSubstreamRejectsOutOfTableRate(t *testing.T) {
	b, dev, bus := newBoundBinding(t, WithCodec(TDA1541A()))
	writes := len(bus.Writes())

	s, err := b.Open()
	require.NoError(t, err)
	defer s.Close()

	err = s.HWParams(45000, 2, 16)
	assert.ErrorIs(t, err, ErrRateRejected)
	assert.Equal(t, writes, len(bus.Writes()), "rejected rate must not reach the clock")

	rate, _ := dev.Rate()
	assert.Equal(t, 44100, rate)
	assert.ErrorIs(t, s.Start(), ErrNotPrepared)
}

func TestSubstreamRejectsCodecFormat(t *testing.T) {
	b, _, _ := newBoundBinding(t, WithCodec(TDA1541A()))

	s, err := b.Open()
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.HWParams(44100, 2, 24), ErrWidthRejected)
	assert.ErrorIs(t, s.HWParams(44100, 1, 16), ErrChannelsRejected)
}

func TestSubstreamCommitFailureBlocksStart(t *testing.T) {
	b, dev, bus := newBoundBinding(t)

	s, err := b.Open()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.HWParams(44100, 2, 16))

	bus.FailWrites(regio.ErrInjected)
	err = s.HWParams(88200, 2, 16)
	var hwErr *HWParamsError
	require.True(t, errors.As(err, &hwErr))
	assert.Equal(t, 88200, hwErr.Rate)

	// The earlier commit no longer counts once a new one failed
	assert.Equal(t, StateOpen, s.State())
	assert.ErrorIs(t, s.Start(), ErrNotPrepared)

	rate, _ := dev.Rate()
	assert.Equal(t, 44100, rate)
}

func TestBindingSingleStream(t *testing.T) {
	b, _, _ := newBoundBinding(t)

	s1, err := b.Open()
	require.NoError(t, err)

	_, err = b.Open()
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, s1.Close())

	s2, err := b.Open()
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)
	s2.Close()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "prepared", StatePrepared.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "closed", StateClosed.String())
}
