// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and sample conversion functions
// Package audio provides the audio types shared by decoders, the resampler and outputs.
//
// Samples travel through the pipeline as int32 values holding signed 24-bit audio.
// Helpers convert to and from 16-bit, packed 24-bit, and arbitrary source bit depths.
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "flac",
//	    SampleRate: 96000,
//	    Channels:   2,
//	    BitDepth:   24,
//	}
//	sample16 := audio.SampleToInt16(sample)
package audio
