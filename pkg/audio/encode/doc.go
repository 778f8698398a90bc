// ABOUTME: Audio encoder package for writing PCM
// ABOUTME: Provides the PCM encoder and a WAV file writer
// Package encode converts int32 samples in 24-bit range back into
// little-endian PCM, optionally wrapped in a WAV container.
//
// Example:
//
//	w, err := encode.NewWAV(f, format)
//	err = w.Write(samples)
//	err = w.Close()
package encode
