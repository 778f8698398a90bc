// ABOUTME: WAV/PCM audio decoder
// ABOUTME: Parses RIFF headers and decodes 16-bit and 24-bit PCM to int32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ErrNotWAV is returned when the RIFF/WAVE header is missing
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// WAVDecoder decodes PCM WAV audio
type WAVDecoder struct {
	r         io.Reader
	format    audio.Format
	remaining int64 // bytes left in the data chunk
	buf       []byte
}

// NewWAV parses the WAV header from r and positions it at the first sample
func NewWAV(r io.Reader) (Decoder, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read wav header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	d := &WAVDecoder{r: r, format: audio.Format{Codec: "pcm"}}
	haveFmt := false

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("failed to read wav chunk: %w", err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav fmt chunk too short: %d", size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("failed to read wav fmt chunk: %w", err)
			}
			tag := binary.LittleEndian.Uint16(body[0:2])
			if tag != wavFormatPCM && tag != wavFormatExtensible {
				return nil, fmt.Errorf("unsupported wav encoding: 0x%04x", tag)
			}
			d.format.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			d.format.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			d.format.BitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("wav data chunk before fmt chunk")
			}
			if d.format.BitDepth != 16 && d.format.BitDepth != 24 {
				return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", d.format.BitDepth)
			}
			if d.format.Channels <= 0 {
				return nil, fmt.Errorf("invalid channel count: %d", d.format.Channels)
			}
			d.remaining = size
			return d, nil

		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("failed to skip wav chunk %q: %w", id, err)
			}
		}
	}
}

// Format implements Decoder
func (d *WAVDecoder) Format() audio.Format {
	return d.format
}

// Read implements Decoder
func (d *WAVDecoder) Read(samples []int32) (int, error) {
	width := d.format.BitDepth / 8
	want := int64(len(samples) * width)
	if want > d.remaining {
		want = d.remaining - d.remaining%int64(width)
	}
	if want == 0 {
		return 0, io.EOF
	}

	if int64(cap(d.buf)) < want {
		d.buf = make([]byte, want)
	}
	buf := d.buf[:want]

	n, err := io.ReadFull(d.r, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// truncated file: decode what arrived and stop
		d.remaining = 0
		err = nil
	} else if err != nil {
		return 0, fmt.Errorf("wav read error: %w", err)
	} else {
		d.remaining -= int64(n)
	}

	count := DecodePCM(buf[:n-n%width], d.format.BitDepth, samples)
	if count == 0 {
		return 0, io.EOF
	}
	return count, nil
}

// Close releases resources
func (d *WAVDecoder) Close() error {
	return nil
}

// DecodePCM converts little-endian 16-bit or 24-bit PCM bytes into out and returns
// the number of samples written
func DecodePCM(data []byte, bitDepth int, out []int32) int {
	if bitDepth == 24 {
		numSamples := min(len(data)/3, len(out))
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			out[i] = audio.SampleFrom24Bit(b)
		}
		return numSamples
	}

	numSamples := min(len(data)/2, len(out))
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = audio.SampleFromInt16(sample16)
	}
	return numSamples
}
