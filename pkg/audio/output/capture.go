// ABOUTME: In-memory output backend
// ABOUTME: Records the opened format and written samples instead of playing them
package output

import (
	"errors"
	"sync"

	"github.com/xclockdac/xclockdac-go/pkg/audio"
)

// ErrNotOpen is returned when writing to an output that was never opened
var ErrNotOpen = errors.New("output not initialized")

// Capture keeps everything written to it. Used with the simulated device.
type Capture struct {
	mu      sync.Mutex
	format  audio.Format
	open    bool
	opens   int
	samples []int32
}

// NewCapture creates an empty capture output
func NewCapture() *Capture {
	return &Capture{}
}

// Open implements Output
func (c *Capture) Open(format audio.Format) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = format
	c.open = true
	c.opens++
	return nil
}

// Write implements Output
func (c *Capture) Write(samples []int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotOpen
	}
	c.samples = append(c.samples, samples...)
	return nil
}

// Close implements Output
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// Format returns the format of the last Open
func (c *Capture) Format() audio.Format {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.format
}

// Opens returns how many times Open was called
func (c *Capture) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Samples returns a copy of everything written
func (c *Capture) Samples() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int32(nil), c.samples...)
}
