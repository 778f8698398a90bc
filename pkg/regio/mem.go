// ABOUTME: In-memory register bus with fault injection
// ABOUTME: Simulates a register file for tests and the --simulate daemon mode
package regio

import (
	"errors"
	"sync"
)

// ErrInjected is the default error returned by an injected fault
var ErrInjected = errors.New("injected fault")

// Write records one register write observed by Mem
type Write struct {
	Addr  byte
	Value byte
}

// Mem is a Bus backed by an in-memory register file.
// Registers not listed in the valid set reject access with ErrNoRegister.
type Mem struct {
	mu       sync.Mutex
	regs     map[byte]byte
	writes   []Write
	reads    int
	readErr  error
	writeErr error
}

// ErrNoRegister is returned when addressing a register the device does not have
var ErrNoRegister = errors.New("no such register")

// NewMem creates a register file exposing the given registers, all reset to zero
func NewMem(addrs ...byte) *Mem {
	regs := make(map[byte]byte, len(addrs))
	for _, a := range addrs {
		regs[a] = 0
	}
	return &Mem{regs: regs}
}

// ReadReg implements Bus
func (m *Mem) ReadReg(addr byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readErr != nil {
		return 0, &Error{Op: OpRead, Addr: addr, Err: m.readErr}
	}
	v, ok := m.regs[addr]
	if !ok {
		return 0, &Error{Op: OpRead, Addr: addr, Err: ErrNoRegister}
	}
	return v, nil
}

// WriteReg implements Bus
func (m *Mem) WriteReg(addr, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return &Error{Op: OpWrite, Addr: addr, Err: m.writeErr}
	}
	if _, ok := m.regs[addr]; !ok {
		return &Error{Op: OpWrite, Addr: addr, Err: ErrNoRegister}
	}
	m.regs[addr] = value
	m.writes = append(m.writes, Write{Addr: addr, Value: value})
	return nil
}

// Poke sets a register without recording a write, like an external agent would
func (m *Mem) Poke(addr, value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = value
}

// Peek returns the current register value
func (m *Mem) Peek(addr byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// FailReads makes subsequent reads fail with err (nil clears the fault)
func (m *Mem) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes subsequent writes fail with err (nil clears the fault)
func (m *Mem) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns a copy of all successful writes in order
func (m *Mem) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// Reads returns the number of read attempts
func (m *Mem) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
