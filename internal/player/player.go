// ABOUTME: File playback through the XclockDAC stream binding
// ABOUTME: Decodes, negotiates the rate, programs the clock and only then feeds the output
package player

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
	"github.com/xclockdac/xclockdac-go/pkg/audio/decode"
	"github.com/xclockdac/xclockdac-go/pkg/audio/output"
	"github.com/xclockdac/xclockdac-go/pkg/audio/resample"
	"github.com/xclockdac/xclockdac-go/pkg/pcm"
)

const (
	// Channels and Width are fixed by the TDA1541A
	Channels = 2
	Width    = 16

	defaultChunkFrames = 4096
)

// ErrChannels is returned for sources with more than two channels
var ErrChannels = errors.New("player: unsupported channel count")

// Opener opens a playback substream. *pcm.Binding satisfies it.
type Opener interface {
	Open() (*pcm.Substream, error)
}

// Rounder picks the nearest supported rate. *clock.Device satisfies it.
type Rounder interface {
	RoundRate(requested int) (int, error)
}

// Result describes a finished playback
type Result struct {
	Source    audio.Format
	Rate      int
	Resampled bool
	Frames    int64
}

// Option configures a Player
type Option func(*Player)

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Player) { p.log = log }
}

// WithChunkFrames sets how many source frames are decoded per write
func WithChunkFrames(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.chunkFrames = n
		}
	}
}

// WithProgress registers a callback run after every chunk with the frames played so far
func WithProgress(fn func(frames int64)) Option {
	return func(p *Player) { p.progress = fn }
}

// Player plays decoded audio at a rate the clock generator supports
type Player struct {
	binding     Opener
	clock       Rounder
	out         output.Output
	chunkFrames int
	progress    func(int64)
	log         logrus.FieldLogger
}

// New creates a player. The caller owns out and closes it.
func New(binding Opener, clk Rounder, out output.Output, opts ...Option) *Player {
	p := &Player{
		binding:     binding,
		clock:       clk,
		out:         out,
		chunkFrames: defaultChunkFrames,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play decodes and plays the file at path
func (p *Player) Play(ctx context.Context, path string) (Result, error) {
	dec, err := decode.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer dec.Close()

	log := p.log.WithField("file", path)
	log.WithField("format", dec.Format().String()).Info("Playing")
	return p.PlayDecoder(ctx, dec)
}

// PlayDecoder plays dec until EOF or ctx ends
func (p *Player) PlayDecoder(ctx context.Context, dec decode.Decoder) (Result, error) {
	src := dec.Format()
	res := Result{Source: src, Rate: src.SampleRate}

	if src.Channels < 1 || src.Channels > Channels {
		return res, fmt.Errorf("%w: %d", ErrChannels, src.Channels)
	}

	stream, err := p.binding.Open()
	if err != nil {
		return res, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	var rs *resample.Resampler
	if !stream.Params().AllowsRate(src.SampleRate) {
		target, err := p.clock.RoundRate(src.SampleRate)
		if err != nil {
			return res, fmt.Errorf("round rate %d: %w", src.SampleRate, err)
		}
		p.log.WithFields(logrus.Fields{"from": src.SampleRate, "to": target}).Info("Resampling to a supported rate")
		rs = resample.New(src.SampleRate, target, Channels)
		res.Rate = target
		res.Resampled = true
	}

	// the clock is programmed here and nothing reaches the output before it succeeds
	if err := stream.HWParams(res.Rate, Channels, Width); err != nil {
		return res, err
	}

	outFormat := audio.Format{Codec: "pcm", SampleRate: res.Rate, Channels: Channels, BitDepth: Width}
	if err := p.out.Open(outFormat); err != nil {
		return res, fmt.Errorf("open output: %w", err)
	}

	if err := stream.Start(); err != nil {
		return res, err
	}
	defer stream.Stop()

	in := make([]int32, p.chunkFrames*src.Channels)
	var stereo []int32
	var resampled []int32

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, err := dec.Read(in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("decode: %w", err)
		}
		if n == 0 {
			continue
		}

		chunk := in[:n-n%src.Channels]
		if src.Channels == 1 {
			stereo = upmix(chunk, stereo)
			chunk = stereo
		}
		res.Frames += int64(len(chunk) / Channels)

		if rs != nil {
			need := rs.OutputSamplesNeeded(len(chunk))
			if cap(resampled) < need {
				resampled = make([]int32, need)
			}
			m := rs.Resample(chunk, resampled[:need])
			chunk = resampled[:m]
		}

		if len(chunk) > 0 {
			if err := p.out.Write(chunk); err != nil {
				return res, fmt.Errorf("write output: %w", err)
			}
		}
		if p.progress != nil {
			p.progress(res.Frames)
		}
	}

	p.log.WithFields(logrus.Fields{
		"frames": res.Frames,
		"rate":   res.Rate,
	}).Info("Playback finished")
	return res, nil
}

// upmix duplicates mono samples into interleaved stereo, reusing buf
func upmix(mono, buf []int32) []int32 {
	if cap(buf) < len(mono)*2 {
		buf = make([]int32, len(mono)*2)
	}
	buf = buf[:len(mono)*2]
	for i, s := range mono {
		buf[i*2] = s
		buf[i*2+1] = s
	}
	return buf
}
