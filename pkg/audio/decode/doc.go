// ABOUTME: Audio decoder package for file playback
// ABOUTME: Provides the Decoder interface and WAV, FLAC and MP3 implementations
// Package decode turns audio files into interleaved int32 samples in 24-bit
// range.
//
// Supports: WAV (16-bit and 24-bit PCM), FLAC, MP3
//
// Example:
//
//	dec, err := decode.Open("track.flac")
//	if err != nil {
//		return err
//	}
//	defer dec.Close()
//	samples := make([]int32, 4096)
//	n, err := dec.Read(samples)
package decode
