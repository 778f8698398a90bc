// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams 16-bit PCM through a pipe into a persistent oto player
package output

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// Oto output implementation using oto library
type Oto struct {
	*volume
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	ready      bool
	log        logrus.FieldLogger
}

// NewOto creates a new Oto output
func NewOto(log logrus.FieldLogger) Output {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Oto{volume: newVolume(), log: log}
}

// Open initializes the output device. oto allows one context per process,
// so a later Open with a different rate keeps the first context.
func (o *Oto) Open(format audio.Format) error {
	if format.BitDepth != 16 {
		o.log.Warnf("oto only supports 16-bit output, ignoring requested bit depth %d", format.BitDepth)
	}

	if o.otoCtx != nil {
		if o.format.SampleRate != format.SampleRate || o.format.Channels != format.Channels {
			o.log.Warnf("format change %dHz %dch -> %dHz %dch not supported by oto, keeping existing context",
				o.format.SampleRate, o.format.Channels, format.SampleRate, format.Channels)
		}
		if !o.ready {
			o.startPlayer()
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.format = format
	o.startPlayer()

	o.log.Infof("Audio output initialized: %dHz, %d channels (oto)", format.SampleRate, format.Channels)
	return nil
}

func (o *Oto) startPlayer() {
	if err := o.otoCtx.Resume(); err != nil {
		o.log.WithError(err).Warn("oto resume failed")
	}
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	if !o.ready {
		return ErrNotOpen
	}

	scaled := o.apply(samples)

	buf := make([]byte, len(scaled)*2)
	for i, s := range scaled {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(audio.SampleToInt16(s)))
	}

	if _, err := o.pipeWriter.Write(buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			o.log.WithError(err).Warn("oto suspend failed")
		}
	}
	o.ready = false
	return nil
}
