// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// The player uses it when a track's native rate is not one the clock
// generator can produce, converting to the nearest supported rate.
//
// Example:
//
//	r := resample.New(32000, 44100, 2)
//	out := make([]int32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
package resample
