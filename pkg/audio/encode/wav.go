// ABOUTME: WAV file writer
// ABOUTME: Wraps PCM encoding in a RIFF container and patches sizes on close
package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

const wavHeaderSize = 44

// WAVWriter writes PCM samples as a WAV file
type WAVWriter struct {
	w       io.WriteSeeker
	pcm     *PCMEncoder
	format  audio.Format
	written uint32 // data chunk bytes
}

// NewWAV writes a provisional header to w
func NewWAV(w io.WriteSeeker, format audio.Format) (*WAVWriter, error) {
	pcm, err := NewPCM(format.BitDepth)
	if err != nil {
		return nil, err
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav format: %s", format)
	}

	ww := &WAVWriter{w: w, pcm: pcm, format: format}
	if err := ww.writeHeader(); err != nil {
		return nil, err
	}
	return ww, nil
}

func (ww *WAVWriter) writeHeader() error {
	blockAlign := ww.format.Channels * ww.pcm.BytesPerSample()

	var h [wavHeaderSize]byte
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], 36+ww.written)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], uint16(ww.format.Channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(ww.format.SampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(ww.format.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], uint16(ww.format.BitDepth))
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], ww.written)

	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav seek failed: %w", err)
	}
	if _, err := ww.w.Write(h[:]); err != nil {
		return fmt.Errorf("wav header write failed: %w", err)
	}
	return nil
}

// Write appends samples to the data chunk
func (ww *WAVWriter) Write(samples []int32) error {
	data, err := ww.pcm.Encode(samples)
	if err != nil {
		return err
	}
	if _, err := ww.w.Write(data); err != nil {
		return fmt.Errorf("wav data write failed: %w", err)
	}
	ww.written += uint32(len(data))
	return nil
}

// Close rewrites the header with final sizes. The underlying writer is left open.
func (ww *WAVWriter) Close() error {
	if err := ww.writeHeader(); err != nil {
		return err
	}
	_, err := ww.w.Seek(0, io.SeekEnd)
	return err
}
