// ABOUTME: PCM stream and clock binding package
// ABOUTME: Keeps the master clock programmed to the negotiated stream rate
// Package pcm binds audio stream parameter negotiation to a programmable clock.
//
// A Binding constrains every opened stream to the clock's supported rates, programs the
// clock when parameters are committed, and applies a default rate when the card comes up.
// Streams are driven through a Substream:
//
//	b := pcm.NewBinding(dev, pcm.WithCodec(pcm.TDA1541A()))
//	if res := b.Attach(i2s); res.Outcome != pcm.Ready {
//	    return res.Err
//	}
//	s, err := b.Open()
//	err = s.HWParams(48000, 2, 16) // clock is programmed here
//	err = s.Start()                // only after the clock confirmed the rate
//
// Attach distinguishes permanent failure from "retry later" with AttachResult; retry
// scheduling belongs to the caller.
package pcm
