// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Uses miniaudio library via malgo for true hi-res audio playback
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// bufferDuration is how much audio the ring buffer holds
const bufferDuration = 500 * time.Millisecond

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	*volume
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	ready    bool
	closed   chan struct{}
	log      logrus.FieldLogger

	// Ring buffer for callback-based playback
	ringBuffer *RingBuffer
	mu         sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo(log logrus.FieldLogger) Output {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Malgo{volume: newVolume(), log: log}
}

// Open initializes the output device with specified format
func (m *Malgo) Open(format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil && m.format == format {
		m.log.Debug("Audio output already initialized with same format, reusing device")
		return nil
	}

	if m.device != nil {
		m.log.Infof("Format change detected (%s -> %s), reinitializing device", m.format, format)
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	sampleFormat, err := malgoFormat(format.BitDepth)
	if err != nil {
		return err
	}

	bufferSamples := int(int64(format.SampleRate*format.Channels) * int64(bufferDuration) / int64(time.Second))
	m.ringBuffer = NewRingBuffer(bufferSamples)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	channels := format.Channels
	bitDepth := format.BitDepth
	ring := m.ringBuffer
	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			samples := make([]int32, int(frameCount)*channels)
			ring.Read(samples)
			packSamples(pOutput, samples, bitDepth)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	m.ready = true
	m.closed = make(chan struct{})

	m.log.Infof("Audio output initialized: %s (malgo/%s)", format, formatName(sampleFormat))
	return nil
}

// Write queues audio samples for playback, waiting while the ring buffer is full
func (m *Malgo) Write(samples []int32) error {
	m.mu.Lock()
	ready, ring, closed := m.ready, m.ringBuffer, m.closed
	m.mu.Unlock()
	if !ready {
		return ErrNotOpen
	}

	scaled := m.apply(samples)

	// poll at a fraction of the buffer length so the device never starves
	ticker := time.NewTicker(bufferDuration / 10)
	defer ticker.Stop()

	for written := 0; written < len(scaled); {
		n := ring.Write(scaled[written:])
		written += n
		if n > 0 {
			continue
		}
		select {
		case <-closed:
			return ErrNotOpen
		case <-ticker.C:
		}
	}
	return nil
}

// packSamples converts int32 samples to little-endian output at the device bit depth
func packSamples(output []byte, samples []int32, bitDepth int) {
	switch bitDepth {
	case 16:
		for i, sample := range samples {
			s := audio.SampleToInt16(sample)
			output[i*2] = byte(s)
			output[i*2+1] = byte(s >> 8)
		}
	case 24:
		for i, sample := range samples {
			b := audio.SampleTo24Bit(sample)
			copy(output[i*3:i*3+3], b[:])
		}
	case 32:
		for i, sample := range samples {
			// 24-bit value in the upper bits of the 32-bit container
			s := sample << 8
			output[i*4] = byte(s)
			output[i*4+1] = byte(s >> 8)
			output[i*4+2] = byte(s >> 16)
			output[i*4+3] = byte(s >> 24)
		}
	}
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.WithError(err).Warn("malgo context uninit error")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if err := m.device.Stop(); err != nil {
		m.log.WithError(err).Warn("device stop error")
	}
	m.device.Uninit()
	m.device = nil
	m.ready = false
	close(m.closed)
}

func malgoFormat(bitDepth int) (malgo.FormatType, error) {
	switch bitDepth {
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", bitDepth)
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
