//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// ErrPortAudioDisabled is returned by every PortAudio method in builds without the tag
var ErrPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open initializes PortAudio
func (p *PortAudio) Open(audio.Format) error {
	return ErrPortAudioDisabled
}

// Write outputs audio samples
func (p *PortAudio) Write([]int32) error {
	return ErrPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return ErrPortAudioDisabled
}
