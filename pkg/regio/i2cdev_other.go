//go:build !linux

// ABOUTME: i2c-dev placeholder for non-Linux platforms
// ABOUTME: Keeps the API available where /dev/i2c-N does not exist
package regio

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by OpenI2CDev outside Linux
var ErrUnsupported = errors.New("regio: i2c-dev is only available on linux")

// I2CDev is unavailable on this platform
type I2CDev struct {
	path string
	addr uint16
}

// OpenI2CDev always fails on this platform
func OpenI2CDev(path string, addr uint16) (*I2CDev, error) {
	return nil, fmt.Errorf("failed to open %s: %w", path, ErrUnsupported)
}

// ReadReg implements Bus
func (d *I2CDev) ReadReg(addr byte) (byte, error) {
	return 0, &Error{Op: OpRead, Addr: addr, Err: ErrUnsupported}
}

// WriteReg implements Bus
func (d *I2CDev) WriteReg(addr, value byte) error {
	return &Error{Op: OpWrite, Addr: addr, Err: ErrUnsupported}
}

// String describes the adapter and slave address
func (d *I2CDev) String() string {
	return fmt.Sprintf("%s@0x%02x", d.path, d.addr)
}

// Close is a no-op
func (d *I2CDev) Close() error {
	return nil
}
