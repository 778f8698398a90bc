// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface with malgo, oto, PortAudio and capture backends
// Package output provides audio playback backends.
//
// malgo is the default and the only backend that plays 24-bit samples
// natively. oto and PortAudio down-convert to 16-bit. PortAudio needs the
// portaudio build tag.
//
// Example:
//
//	out, err := output.New(output.BackendMalgo, log)
//	err = out.Open(audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16})
//	err = out.Write(samples)
package output
