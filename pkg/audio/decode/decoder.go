// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for file decoders plus extension-based selection
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// Decoder streams interleaved PCM samples (24-bit in int32) out of an encoded source
type Decoder interface {
	// Format describes the decoded stream
	Format() audio.Format

	// Read fills samples with interleaved PCM and returns io.EOF at end of stream
	Read(samples []int32) (int, error)

	// Close releases decoder resources
	Close() error
}

// Open picks a decoder from the file extension
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var dec Decoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		dec, err = NewMP3(f)
	case ".flac":
		dec, err = NewFLAC(f)
	case ".wav", ".wave":
		dec, err = NewWAV(f)
	default:
		err = fmt.Errorf("unsupported file type: %q", ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileDecoder{Decoder: dec, f: f}, nil
}

// fileDecoder closes the underlying file with the decoder
type fileDecoder struct {
	Decoder
	f io.Closer
}

func (d *fileDecoder) Close() error {
	err := d.Decoder.Close()
	// some decoders already close their source
	if cerr := d.f.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}
