// ABOUTME: Clock device error kinds
// ABOUTME: Sentinels for state/rate failures and typed wrappers for bus failures
package clock

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAttached is returned by operations on a detached device
	ErrNotAttached = errors.New("clock: device not attached")

	// ErrInvalidRate is returned when committing a frequency that is not an exact table entry
	ErrInvalidRate = errors.New("clock: unsupported rate")

	// ErrUnrecognized means the register holds a code absent from the table.
	// The hardware may hold a reset or foreign value; the rate cannot be determined.
	ErrUnrecognized = errors.New("clock: unrecognized register code")
)

// AttachError reports a failed initial register read-back
type AttachError struct {
	Device string
	Err    error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("clock: attach %s: %v", e.Device, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}

// WriteError reports a register write that did not complete.
// The shadow code is left at its previous value.
type WriteError struct {
	Rate int
	Code Code
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("clock: program %d Hz (code %s): %v", e.Rate, e.Code, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// UnrecognizedCodeError carries the unknown shadow code; it matches ErrUnrecognized
type UnrecognizedCodeError struct {
	Code Code
}

func (e *UnrecognizedCodeError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnrecognized, e.Code)
}

func (e *UnrecognizedCodeError) Is(target error) bool {
	return target == ErrUnrecognized
}
