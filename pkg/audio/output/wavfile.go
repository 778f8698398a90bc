// ABOUTME: WAV file output backend
// ABOUTME: Writes played samples to disk, one file per Open
package output

import (
	"fmt"
	"os"
	"sync"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
	"github.com/xclockdac/xclockdac-go/pkg/audio/encode"
)

// WAVFile records playback to a WAV file
type WAVFile struct {
	path   string
	mu     sync.Mutex
	f      *os.File
	writer *encode.WAVWriter
}

// NewWAVFile creates an output that writes to path
func NewWAVFile(path string) *WAVFile {
	return &WAVFile{path: path}
}

// Open implements Output. The file is truncated on every Open.
func (w *WAVFile) Open(format audio.Format) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.closeLocked(); err != nil {
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.path, err)
	}
	writer, err := encode.NewWAV(f, format)
	if err != nil {
		f.Close()
		return err
	}

	w.f = f
	w.writer = writer
	return nil
}

// Write implements Output
func (w *WAVFile) Write(samples []int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return ErrNotOpen
	}
	return w.writer.Write(samples)
}

// Close implements Output
func (w *WAVFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *WAVFile) closeLocked() error {
	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.writer = nil
	w.f = nil
	return err
}
