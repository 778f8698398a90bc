//go:build linux

// ABOUTME: Linux i2c-dev register bus
// ABOUTME: SMBus byte-data transfers through the /dev/i2c-N ioctl interface
package regio

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// From <linux/i2c-dev.h> and <linux/i2c.h>
const (
	i2cSlave = 0x0703
	i2cSMBus = 0x0720

	smbusRead  = 1
	smbusWrite = 0

	smbusByteData = 2

	smbusBlockMax = 32
)

// i2c_smbus_ioctl_data
type smbusIoctlData struct {
	readWrite uint8
	command   uint8
	size      uint32
	data      *[smbusBlockMax + 2]byte
}

// I2CDev is a Bus talking to one slave address on a Linux i2c adapter
type I2CDev struct {
	mu   sync.Mutex
	f    *os.File
	path string
	addr uint16
}

// OpenI2CDev opens the adapter at path and binds it to the 7-bit slave address
func OpenI2CDev(path string, addr uint16) (*I2CDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to bind slave address 0x%02x on %s: %w", addr, path, err)
	}

	return &I2CDev{f: f, path: path, addr: addr}, nil
}

// ReadReg implements Bus
func (d *I2CDev) ReadReg(addr byte) (byte, error) {
	var buf [smbusBlockMax + 2]byte
	if err := d.transfer(smbusRead, addr, &buf); err != nil {
		return 0, &Error{Op: OpRead, Addr: addr, Err: err}
	}
	return buf[0], nil
}

// WriteReg implements Bus
func (d *I2CDev) WriteReg(addr, value byte) error {
	var buf [smbusBlockMax + 2]byte
	buf[0] = value
	if err := d.transfer(smbusWrite, addr, &buf); err != nil {
		return &Error{Op: OpWrite, Addr: addr, Err: err}
	}
	return nil
}

func (d *I2CDev) transfer(rw uint8, command byte, buf *[smbusBlockMax + 2]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return ErrClosed
	}

	args := smbusIoctlData{
		readWrite: rw,
		command:   command,
		size:      smbusByteData,
		data:      buf,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), i2cSMBus, uintptr(unsafe.Pointer(&args)))
	if errno != 0 {
		return errno
	}
	return nil
}

// String describes the adapter and slave address
func (d *I2CDev) String() string {
	return fmt.Sprintf("%s@0x%02x", d.path, d.addr)
}

// Close releases the adapter
func (d *I2CDev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
