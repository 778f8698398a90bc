// ABOUTME: Hardware parameter negotiation
// ABOUTME: Rate/channel/width constraint lists refined by each stream participant
package pcm

import (
	"fmt"
	"slices"
)

// Negotiation accepts rate constraints from stream participants
type Negotiation interface {
	// ConstrainRates restricts acceptable rates to the given set
	ConstrainRates(rates []int) error
}

// HWParams is a stream's parameter space. Each constraint narrows the acceptable
// values; Choose picks concrete values, which must satisfy every constraint.
// A nil list means unconstrained.
type HWParams struct {
	rates    []int
	channels []int
	widths   []int

	rate        int
	channelsSel int
	width       int
	chosen      bool
}

// NewHWParams returns an unconstrained parameter space
func NewHWParams() *HWParams {
	return &HWParams{}
}

// ConstrainRates implements Negotiation
func (p *HWParams) ConstrainRates(rates []int) error {
	list, err := refine(p.rates, rates)
	if err != nil {
		return fmt.Errorf("rate: %w", err)
	}
	p.rates = list
	return nil
}

// ConstrainChannels restricts acceptable channel counts
func (p *HWParams) ConstrainChannels(channels ...int) error {
	list, err := refine(p.channels, channels)
	if err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	p.channels = list
	return nil
}

// ConstrainWidths restricts acceptable sample widths in bits
func (p *HWParams) ConstrainWidths(widths ...int) error {
	list, err := refine(p.widths, widths)
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	p.widths = list
	return nil
}

// refine intersects current with allowed and returns the result sorted
func refine(current, allowed []int) ([]int, error) {
	next := make([]int, 0, len(allowed))
	for _, v := range allowed {
		if current != nil && !slices.Contains(current, v) {
			continue
		}
		if !slices.Contains(next, v) {
			next = append(next, v)
		}
	}
	if len(next) == 0 {
		return nil, ErrEmptyConstraint
	}
	slices.Sort(next)
	return next, nil
}

// Rates returns the acceptable rates, or nil when unconstrained
func (p *HWParams) Rates() []int {
	return slices.Clone(p.rates)
}

// Channels returns the acceptable channel counts, or nil when unconstrained
func (p *HWParams) Channels() []int {
	return slices.Clone(p.channels)
}

// Widths returns the acceptable sample widths, or nil when unconstrained
func (p *HWParams) Widths() []int {
	return slices.Clone(p.widths)
}

// AllowsRate reports whether rate satisfies the rate constraint
func (p *HWParams) AllowsRate(rate int) bool {
	if rate <= 0 {
		return false
	}
	return p.rates == nil || slices.Contains(p.rates, rate)
}

// Choose fixes concrete parameters. Values outside any constraint are rejected and
// leave the previous choice untouched.
func (p *HWParams) Choose(rate, channels, width int) error {
	if !p.AllowsRate(rate) {
		return fmt.Errorf("%w: %d Hz", ErrRateRejected, rate)
	}
	if channels <= 0 || (p.channels != nil && !slices.Contains(p.channels, channels)) {
		return fmt.Errorf("%w: %d", ErrChannelsRejected, channels)
	}
	if width <= 0 || (p.widths != nil && !slices.Contains(p.widths, width)) {
		return fmt.Errorf("%w: %d bits", ErrWidthRejected, width)
	}

	p.rate = rate
	p.channelsSel = channels
	p.width = width
	p.chosen = true
	return nil
}

// Rate returns the chosen rate (0 before Choose)
func (p *HWParams) Rate() int {
	return p.rate
}

// ChannelCount returns the chosen channel count (0 before Choose)
func (p *HWParams) ChannelCount() int {
	return p.channelsSel
}

// Width returns the chosen sample width (0 before Choose)
func (p *HWParams) Width() int {
	return p.width
}

// Chosen reports whether concrete parameters have been fixed
func (p *HWParams) Chosen() bool {
	return p.chosen
}
