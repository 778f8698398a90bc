// ABOUTME: DAI link and codec description for the XclockDAC card
// ABOUTME: I2S format, fixed bit-clock ratio, and TDA1541A stream constraints
package pcm

import (
	"fmt"
)

// Format is a digital audio interface format bitmask
type Format uint32

const (
	FormatI2S Format = 1 << iota
	FormatLeftJ
	FormatRightJ

	// Normal bit clock, normal frame clock
	FormatNBNF
	// Inverted bit clock, normal frame clock
	FormatIBNF

	// Codec is bit clock and frame clock provider
	FormatCBMCFM
	// Codec is bit clock provider, frame clock consumer
	FormatCBMCFS
	// Codec is consumer of both clocks
	FormatCBSCFS
)

const (
	formatMask    = FormatI2S | FormatLeftJ | FormatRightJ
	inversionMask = FormatNBNF | FormatIBNF
	providerMask  = FormatCBMCFM | FormatCBMCFS | FormatCBSCFS
)

func (f Format) String() string {
	s := ""
	switch f & formatMask {
	case FormatI2S:
		s = "i2s"
	case FormatLeftJ:
		s = "left_j"
	case FormatRightJ:
		s = "right_j"
	default:
		s = "unknown"
	}
	switch f & inversionMask {
	case FormatNBNF:
		s += "|nb_nf"
	case FormatIBNF:
		s += "|ib_nf"
	}
	switch f & providerMask {
	case FormatCBMCFM:
		s += "|cbm_cfm"
	case FormatCBMCFS:
		s += "|cbm_cfs"
	case FormatCBSCFS:
		s += "|cbs_cfs"
	}
	return s
}

// CPUDAI is the host-side serial audio interface
type CPUDAI interface {
	SetBCLKRatio(ratio int) error
}

// DAILink describes the CPU-to-codec link of the card
type DAILink struct {
	Name       string
	StreamName string
	Format     Format
	// BCLKRatio is the number of bit clocks per frame
	BCLKRatio int
}

// XClockDACLink is the link between the host I2S controller and the TDA1541A.
// The external clock generator drives both bit and frame clocks through the codec side.
var XClockDACLink = DAILink{
	Name:       "XclockDAC TDA1541A",
	StreamName: "XclockDAC TDA1541A",
	Format:     FormatI2S | FormatNBNF | FormatCBMCFM,
	BCLKRatio:  16 * 2,
}

// Init configures the CPU DAI for this link
func (l DAILink) Init(cpu CPUDAI) error {
	if err := cpu.SetBCLKRatio(l.BCLKRatio); err != nil {
		return fmt.Errorf("failed to set bclk ratio %d on %s: %w", l.BCLKRatio, l.Name, err)
	}
	return nil
}

// Codec describes the DAC's playback capabilities
type Codec struct {
	Name     string
	Rates    []int
	Channels int
	Width    int
	Formats  []Format

	rate int
}

// TDA1541A returns the 16-bit stereo TDA1541A codec description
func TDA1541A() *Codec {
	return &Codec{
		Name:     "tda1541a-hifi",
		Rates:    []int{11025, 22050, 44100, 48000, 88200, 96000, 176400, 192000},
		Channels: 2,
		Width:    16,
		Formats:  []Format{FormatI2S | FormatNBNF | FormatCBMCFM, FormatI2S | FormatNBNF | FormatCBMCFS},
	}
}

// SetFormat checks that the codec supports f
func (c *Codec) SetFormat(f Format) error {
	for _, ok := range c.Formats {
		if f == ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrBadFormat, f, c.Name)
}

// Startup installs the codec's constraints on a newly opened stream
func (c *Codec) Startup(p *HWParams) error {
	if err := p.ConstrainRates(c.Rates); err != nil {
		return err
	}
	if err := p.ConstrainChannels(c.Channels); err != nil {
		return err
	}
	return p.ConstrainWidths(c.Width)
}

// HWParams accepts the chosen parameters and records the rate
func (c *Codec) HWParams(p *HWParams) error {
	if p.Width() != c.Width {
		return fmt.Errorf("%w: bad frame size %d", ErrWidthRejected, p.Width())
	}
	c.rate = p.Rate()
	return nil
}

// Rate returns the last accepted rate
func (c *Codec) Rate() int {
	return c.rate
}
