// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC files frame by frame via mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	stream  *flac.Stream
	format  audio.Format
	pending []int32 // interleaved samples decoded but not yet read
}

// NewFLAC creates a new FLAC decoder reading from r
func NewFLAC(r io.Reader) (Decoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	return &FLACDecoder{
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(stream.Info.SampleRate),
			Channels:   int(stream.Info.NChannels),
			BitDepth:   int(stream.Info.BitsPerSample),
		},
	}, nil
}

// Format implements Decoder
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Read implements Decoder
func (d *FLACDecoder) Read(samples []int32) (int, error) {
	for len(d.pending) == 0 {
		if err := d.nextFrame(); err != nil {
			return 0, err
		}
	}

	n := copy(samples, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// nextFrame decodes one FLAC frame into pending
func (d *FLACDecoder) nextFrame() error {
	frame, err := d.stream.ParseNext()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := len(frame.Subframes)
	if channels == 0 {
		return nil
	}
	blockSize := len(frame.Subframes[0].Samples)

	out := make([]int32, 0, blockSize*channels)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			out = append(out, audio.SampleFromBits(frame.Subframes[ch].Samples[i], d.format.BitDepth))
		}
	}
	d.pending = out
	return nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
