// ABOUTME: Immutable frequency-ordered rate table
// ABOUTME: Exact lookup, reverse lookup, and nearest-supported rounding
package clock

import (
	"fmt"
)

// Crystal frequencies feeding the dividers
const (
	Crystal44k = 11289600 // 44.1 kHz family
	Crystal48k = 12288000 // 48 kHz family

	// BitsPerFrame is the I2S frame size: 16 clocks per channel, stereo.
	BitsPerFrame = 16 * 2
)

// Code is a register value selecting an output frequency
type Code uint8

// String formats the code the way the datasheet lists it
func (c Code) String() string {
	return fmt.Sprintf("0b%08b", uint8(c))
}

// RateEntry maps an output frequency (Hz) to its register code
type RateEntry struct {
	Freq int
	Code Code
}

// Crystal returns the oscillator this frequency is divided from
func (e RateEntry) Crystal() int {
	if Crystal44k%e.BitClock() == 0 {
		return Crystal44k
	}
	return Crystal48k
}

// BitClock returns the serial bit clock for a 16-bit stereo frame at this rate
func (e RateEntry) BitClock() int {
	return e.Freq * BitsPerFrame
}

// Divider returns the integer crystal divider producing BitClock
func (e RateEntry) Divider() int {
	return e.Crystal() / e.BitClock()
}

// RateTable is an immutable, frequency-ordered set of rate entries.
// Frequencies are strictly increasing and codes are unique.
type RateTable struct {
	entries []RateEntry
}

// XClockDAC is the rate table of the XclockDAC generator
var XClockDAC = MustNewRateTable(
	RateEntry{11025, 0b0000_0100},
	RateEntry{22050, 0b0000_1100},
	RateEntry{44100, 0b0000_0011},
	RateEntry{48000, 0b0000_1011},
	RateEntry{88200, 0b0000_0010},
	RateEntry{96000, 0b0000_1010},
	RateEntry{176400, 0b0000_0001},
	RateEntry{192000, 0b0000_1001},
)

// NewRateTable validates entries and builds a table from a private copy of them
func NewRateTable(entries ...RateEntry) (*RateTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("rate table is empty")
	}

	seen := make(map[Code]int, len(entries))
	for i, e := range entries {
		if e.Freq <= 0 {
			return nil, fmt.Errorf("entry %d: frequency must be positive, got %d", i, e.Freq)
		}
		if i > 0 && e.Freq <= entries[i-1].Freq {
			return nil, fmt.Errorf("entry %d: frequency %d not above %d", i, e.Freq, entries[i-1].Freq)
		}
		if prev, dup := seen[e.Code]; dup {
			return nil, fmt.Errorf("entry %d: code %s already used by entry %d", i, e.Code, prev)
		}
		seen[e.Code] = i
	}

	t := &RateTable{entries: make([]RateEntry, len(entries))}
	copy(t.entries, entries)
	return t, nil
}

// MustNewRateTable is NewRateTable for package-level tables; it panics on invalid input
func MustNewRateTable(entries ...RateEntry) *RateTable {
	t, err := NewRateTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of entries
func (t *RateTable) Len() int {
	return len(t.entries)
}

// Entry returns the i-th entry in frequency order
func (t *RateTable) Entry(i int) (RateEntry, bool) {
	if i < 0 || i >= len(t.entries) {
		return RateEntry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of all entries in frequency order
func (t *RateTable) Entries() []RateEntry {
	out := make([]RateEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Rates returns the supported frequencies in increasing order
func (t *RateTable) Rates() []int {
	out := make([]int, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Freq
	}
	return out
}

// Min returns the lowest supported frequency
func (t *RateTable) Min() int {
	return t.entries[0].Freq
}

// Max returns the highest supported frequency
func (t *RateTable) Max() int {
	return t.entries[len(t.entries)-1].Freq
}

// LookupExact returns the code for freq; ok is false if freq is not in the table
func (t *RateTable) LookupExact(freq int) (code Code, ok bool) {
	for _, e := range t.entries {
		if e.Freq == freq {
			return e.Code, true
		}
	}
	return 0, false
}

// LookupCode returns the frequency selected by code; ok is false for unknown codes
func (t *RateTable) LookupCode(code Code) (freq int, ok bool) {
	for _, e := range t.entries {
		if e.Code == code {
			return e.Freq, true
		}
	}
	return 0, false
}

// Round maps any requested frequency to a supported one.
//
// Exact matches are returned as-is and out-of-range requests clamp to the lowest or
// highest entry. Between two neighbours the midpoint prev+(curr-prev)/2 is computed
// with floor division and the lower neighbour wins only when mid > requested, so a
// request at the midpoint rounds up.
func (t *RateTable) Round(requested int) int {
	var prev *RateEntry

	for i := range t.entries {
		curr := &t.entries[i]

		if curr.Freq == requested {
			return requested
		}

		if curr.Freq > requested {
			if prev == nil {
				return curr.Freq
			}

			mid := prev.Freq + (curr.Freq-prev.Freq)/2
			if mid > requested {
				return prev.Freq
			}
			return curr.Freq
		}

		prev = curr
	}

	return prev.Freq
}
