// ABOUTME: Discrete audio master-clock package
// ABOUTME: Rate table lookups and the register-backed clock device
// Package clock models the XclockDAC programmable audio master-clock generator.
//
// The generator has a single 8-bit register (0x2F) selecting one of eight output
// frequencies derived from two crystals (11.2896 MHz and 12.288 MHz):
//
//	11025  22050  44100  48000  88200  96000  176400  192000
//
// RateTable answers exact, reverse and nearest lookups over that set without any
// continuous math. Device keeps a shadow copy of the register and implements the
// Provider contract consumed by audio streams:
//
//	dev := clock.NewDevice(clock.XClockDAC)
//	if err := dev.Attach(bus); err != nil {
//	    return err
//	}
//	rate, err := dev.SetRate(48000)
package clock
