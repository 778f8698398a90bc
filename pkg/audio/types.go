// ABOUTME: Audio type definitions
// ABOUTME: Stream formats and 24-bit sample container conversions
package audio

import (
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// String renders the format for logs and the TUI
func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Frames returns the number of frames in n interleaved samples
func (f Format) Frames(n int) int {
	if f.Channels <= 0 {
		return 0
	}
	return n / f.Channels
}

// Duration returns the play time of n interleaved samples
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Frames(n)) * time.Second / time.Duration(f.SampleRate)
}

// WithRate returns a copy of f at another sample rate
func (f Format) WithRate(rate int) Format {
	f.SampleRate = rate
	return f
}

// Samples are int32 values holding a signed 24-bit sample.

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFromBits normalizes a sample of the given bit depth to the 24-bit container
func SampleFromBits(sample int32, bits int) int32 {
	switch {
	case bits == 24:
		return sample
	case bits < 24:
		return sample << (24 - bits)
	default:
		return sample >> (bits - 24)
	}
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Clamp24 limits a wide intermediate value to the 24-bit range
func Clamp24(v int64) int32 {
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}
