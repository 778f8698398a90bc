//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using the PortAudio blocking API
package output

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// framesPerBuffer is the blocking write size
const framesPerBuffer = 1024

// PortAudio output implementation
type PortAudio struct {
	*volume
	stream   *portaudio.Stream
	buffer   []int16
	channels int
	fill     int
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{volume: newVolume()}
}

// Open initializes PortAudio
func (p *PortAudio) Open(format audio.Format) error {
	if p.stream != nil {
		p.Close()
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.channels = format.Channels
	p.buffer = make([]int16, framesPerBuffer*format.Channels)
	p.fill = 0

	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), framesPerBuffer, &p.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	return nil
}

// Write outputs audio samples, blocking once per full buffer
func (p *PortAudio) Write(samples []int32) error {
	if p.stream == nil {
		return ErrNotOpen
	}

	for _, s := range p.apply(samples) {
		p.buffer[p.fill] = audio.SampleToInt16(s)
		p.fill++
		if p.fill == len(p.buffer) {
			if err := p.stream.Write(); err != nil {
				return fmt.Errorf("portaudio write failed: %w", err)
			}
			p.fill = 0
		}
	}
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	stream := p.stream
	p.stream = nil
	if err := stream.Stop(); err != nil {
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
