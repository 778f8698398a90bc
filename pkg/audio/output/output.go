// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends plus backend selection
package output

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for the given PCM format
	Open(format audio.Format) error

	// Write outputs audio samples (blocks until queued)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// VolumeControl is implemented by backends that scale samples before playback
type VolumeControl interface {
	SetVolume(level int)
	SetMuted(muted bool)
	GetVolume() int
	IsMuted() bool
}

// Backend names accepted by New
const (
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendCapture   = "capture"

	// BackendWAV is a prefix: "wav:/tmp/out.wav"
	BackendWAV = "wav:"
)

// New returns the named backend. An empty name selects malgo.
func New(backend string, log logrus.FieldLogger) (Output, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("output", backend)

	if path, ok := strings.CutPrefix(backend, BackendWAV); ok {
		if path == "" {
			return nil, fmt.Errorf("wav output needs a path")
		}
		return NewWAVFile(path), nil
	}

	switch backend {
	case "", BackendMalgo:
		return NewMalgo(log), nil
	case BackendOto:
		return NewOto(log), nil
	case BackendPortAudio:
		return NewPortAudio(), nil
	case BackendCapture:
		return NewCapture(), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", backend)
	}
}
