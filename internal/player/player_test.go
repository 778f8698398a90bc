// ABOUTME: Tests for the playback pipeline
// ABOUTME: Plays synthetic decoders into a capture output over a simulated clock
package player

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
	"github.com/xclockdac/xclockdac-go/pkg/audio/encode"
	"github.com/xclockdac/xclockdac-go/pkg/audio/output"
	"github.com/xclockdac/xclockdac-go/pkg/clock"
	"github.com/xclockdac/xclockdac-go/pkg/pcm"
	"github.com/xclockdac/xclockdac-go/pkg/regio"
)

// fakeDecoder serves samples from memory
type fakeDecoder struct {
	format  audio.Format
	samples []int32
	pos     int
}

func (d *fakeDecoder) Format() audio.Format { return d.format }
func (d *fakeDecoder) Close() error         { return nil }

func (d *fakeDecoder) Read(out []int32) (int, error) {
	if d.pos >= len(d.samples) {
		return 0, io.EOF
	}
	n := copy(out, d.samples[d.pos:])
	d.pos += n
	return n, nil
}

func source(rate, channels, frames int) *fakeDecoder {
	s := make([]int32, frames*channels)
	for i := range s {
		s[i] = int32(i) << 8
	}
	return &fakeDecoder{
		format:  audio.Format{Codec: "pcm", SampleRate: rate, Channels: channels, BitDepth: 16},
		samples: s,
	}
}

type rig struct {
	bus     *regio.Mem
	dev     *clock.Device
	binding *pcm.Binding
	out     *output.Capture
	player  *Player
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	log, _ := test.NewNullLogger()

	bus := regio.NewMem(clock.RegRate)
	bus.Poke(clock.RegRate, 0b0000_0011)
	dev := clock.NewDevice(clock.XClockDAC, clock.WithLogger(log))
	require.NoError(t, dev.Attach(bus))

	b := pcm.NewBinding(dev, pcm.WithCodec(pcm.TDA1541A()), pcm.WithBindingLogger(log))
	require.Equal(t, pcm.Ready, b.Attach().Outcome)

	out := output.NewCapture()
	opts = append([]Option{WithLogger(log), WithChunkFrames(64)}, opts...)
	return &rig{bus: bus, dev: dev, binding: b, out: out, player: New(b, dev, out, opts...)}
}

func TestPlayNativeRate(t *testing.T) {
	r := newRig(t)
	src := source(48000, 2, 500)

	res, err := r.player.PlayDecoder(context.Background(), src)
	require.NoError(t, err)

	assert.False(t, res.Resampled)
	assert.Equal(t, 48000, res.Rate)
	assert.EqualValues(t, 500, res.Frames)

	assert.Equal(t, byte(0b0000_1011), r.bus.Peek(clock.RegRate))
	assert.Equal(t, audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}, r.out.Format())
	assert.Equal(t, src.samples, r.out.Samples())
}

func TestPlayResamplesUnsupportedRate(t *testing.T) {
	r := newRig(t)

	res, err := r.player.PlayDecoder(context.Background(), source(32000, 2, 3200))
	require.NoError(t, err)

	// 32000 sits below the 22050/44100 midpoint
	assert.True(t, res.Resampled)
	assert.Equal(t, 22050, res.Rate)
	assert.Equal(t, byte(0b0000_1100), r.bus.Peek(clock.RegRate))
	assert.Equal(t, 22050, r.out.Format().SampleRate)

	frames := len(r.out.Samples()) / 2
	assert.InDelta(t, 2205, frames, 10)
}

func TestPlayUpmixesMono(t *testing.T) {
	r := newRig(t)

	_, err := r.player.PlayDecoder(context.Background(), &fakeDecoder{
		format:  audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 1, BitDepth: 16},
		samples: []int32{10, 20, 30},
	})
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 10, 20, 20, 30, 30}, r.out.Samples())
}

func TestPlayRejectsSurround(t *testing.T) {
	r := newRig(t)

	_, err := r.player.PlayDecoder(context.Background(), source(48000, 6, 10))
	assert.ErrorIs(t, err, ErrChannels)
	assert.Empty(t, r.bus.Writes())
	assert.Zero(t, r.out.Opens())
}

func TestPlayClockFailureKeepsOutputClosed(t *testing.T) {
	r := newRig(t)
	r.bus.FailWrites(regio.ErrInjected)

	_, err := r.player.PlayDecoder(context.Background(), source(96000, 2, 10))
	var hpe *pcm.HWParamsError
	require.ErrorAs(t, err, &hpe)
	assert.Equal(t, 96000, hpe.Rate)
	assert.Zero(t, r.out.Opens(), "output must not open before the clock is programmed")

	rate, err := r.dev.Rate()
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)

	// the stream was released
	s, err := r.binding.Open()
	require.NoError(t, err)
	s.Close()
}

func TestPlayBusy(t *testing.T) {
	r := newRig(t)
	s, err := r.binding.Open()
	require.NoError(t, err)
	defer s.Close()

	_, err = r.player.PlayDecoder(context.Background(), source(44100, 2, 10))
	assert.ErrorIs(t, err, pcm.ErrBusy)
}

func TestPlayCancelled(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.player.PlayDecoder(ctx, source(44100, 2, 1000))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.out.Samples())
}

func TestPlayProgress(t *testing.T) {
	var calls []int64
	r := newRig(t, WithProgress(func(frames int64) { calls = append(calls, frames) }))

	_, err := r.player.PlayDecoder(context.Background(), source(44100, 2, 150))
	require.NoError(t, err)
	assert.Equal(t, []int64{64, 128, 150}, calls)
}

func TestPlayFile(t *testing.T) {
	r := newRig(t)
	path := filepath.Join(t.TempDir(), "tone.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := encode.NewWAV(f, audio.Format{Codec: "pcm", SampleRate: 88200, Channels: 2, BitDepth: 16})
	require.NoError(t, err)
	require.NoError(t, w.Write([]int32{256, -256, 512, -512}))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	res, err := r.player.Play(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 88200, res.Rate)
	assert.EqualValues(t, 2, res.Frames)
	assert.Equal(t, []int32{256, -256, 512, -512}, r.out.Samples())
}
