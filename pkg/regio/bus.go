// ABOUTME: Register bus interface and transport error type
// ABOUTME: Shared contract between clock devices and register transports
package regio

import (
	"errors"
	"fmt"
)

// Bus is a synchronous 8-bit register transport bound to a single device.
type Bus interface {
	// ReadReg reads the register at addr.
	ReadReg(addr byte) (byte, error)
	// WriteReg writes value to the register at addr.
	WriteReg(addr, value byte) error
}

// Op names a register transfer direction
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// ErrClosed is returned by transports used after Close
var ErrClosed = errors.New("regio: bus closed")

// Error reports a failed register transfer
type Error struct {
	Op   Op
	Addr byte
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("regio: %s register 0x%02x: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
