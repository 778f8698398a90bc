// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 files to int32 samples via go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces 16-bit stereo.
type MP3Decoder struct {
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// NewMP3 creates a new MP3 decoder reading from r
func NewMP3(r io.Reader) (Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

// Format implements Decoder
func (d *MP3Decoder) Format() audio.Format {
	return d.format
}

// Read implements Decoder
func (d *MP3Decoder) Read(samples []int32) (int, error) {
	need := len(samples) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := io.ReadFull(d.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	count := n / 2
	for i := 0; i < count; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}

	if count == 0 {
		return 0, io.EOF
	}
	return count, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
