// ABOUTME: Host-side I2S port stand-in
// ABOUTME: Accepts the bit clock ratio the DAI link asks for and remembers it
package card

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// I2SPort records the serial format requested by the DAI link. The kernel's I2S
// driver owns the real controller, so this only validates and logs the request.
type I2SPort struct {
	mu    sync.Mutex
	ratio int
	log   logrus.FieldLogger
}

// SetBCLKRatio accepts 32 or 64 bit clocks per frame
func (p *I2SPort) SetBCLKRatio(ratio int) error {
	if ratio != 32 && ratio != 64 {
		return fmt.Errorf("i2s: unsupported bclk ratio %d", ratio)
	}
	p.mu.Lock()
	p.ratio = ratio
	p.mu.Unlock()
	if p.log != nil {
		p.log.WithField("bclk_ratio", ratio).Debug("I2S bit clock ratio set")
	}
	return nil
}

// BCLKRatio returns the last accepted ratio, 0 if none
func (p *I2SPort) BCLKRatio() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ratio
}
