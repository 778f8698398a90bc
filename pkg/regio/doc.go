// ABOUTME: Register I/O package for two-wire peripherals
// ABOUTME: Defines the Bus collaborator plus in-memory and i2c-dev implementations
// Package regio provides synchronous 8-bit register access to small two-wire devices.
//
// A Bus reads and writes one byte at an 8-bit register address. Calls block until the
// transfer completes or fails; there is no retry here. Failures are reported as *Error.
//
// Implementations:
//   - Mem: in-memory register file with fault injection, for tests and simulation
//   - I2CDev: Linux /dev/i2c-N character device using SMBus byte-data transfers
//
// Example:
//
//	bus, err := regio.OpenI2CDev("/dev/i2c-1", 0x60)
//	if err != nil {
//	    return err
//	}
//	defer bus.Close()
//	v, err := bus.ReadReg(0x2F)
package regio
