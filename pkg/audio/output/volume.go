// ABOUTME: Software volume control shared by the output backends
// ABOUTME: Scales 24-bit samples with clipping protection
package output

import (
	"sync/atomic"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// volume holds a 0-100 level and mute flag
type volume struct {
	level atomic.Int32
	muted atomic.Bool
}

func newVolume() *volume {
	v := &volume{}
	v.level.Store(100)
	return v
}

// SetVolume sets the volume (0-100)
func (v *volume) SetVolume(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	v.level.Store(int32(level))
}

// SetMuted sets mute state
func (v *volume) SetMuted(muted bool) {
	v.muted.Store(muted)
}

// GetVolume returns current volume
func (v *volume) GetVolume() int {
	return int(v.level.Load())
}

// IsMuted returns mute state
func (v *volume) IsMuted() bool {
	return v.muted.Load()
}

func (v *volume) apply(samples []int32) []int32 {
	return applyVolume(samples, v.GetVolume(), v.IsMuted())
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := getVolumeMultiplier(volume, muted)

	result := make([]int32, len(samples))
	for i, sample := range samples {
		result[i] = audio.Clamp24(int64(float64(sample) * multiplier))
	}

	return result
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
