// ABOUTME: Tests for hardware parameter negotiation
// ABOUTME: Covers constraint intersection and parameter choice
package pcm

import (
	"testing"
)

func TestHWParamsUnconstrained(t *testing.T) {
	p := NewHWParams()

	if p.Rates() != nil {
		t.Errorf("expected nil rates, got %v", p.Rates())
	}
	if !p.AllowsRate(12345) {
		t.Error("unconstrained params should allow any positive rate")
	}
	if p.AllowsRate(0) {
		t.Error("zero rate must never be allowed")
	}
	if p.Chosen() {
		t.Error("expected nothing chosen initially")
	}
}

func TestHWParamsIntersect(t *testing.T) {
	p := NewHWParams()

	if err := p.ConstrainRates([]int{48000, 44100, 96000, 44100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.ConstrainRates([]int{8000, 44100, 48000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rates := p.Rates()
	expected := []int{44100, 48000}
	if len(rates) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, rates)
	}
	for i := range expected {
		if rates[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, rates)
		}
	}
}

func TestHWParamsEmptyIntersection(t *testing.T) {
	p := NewHWParams()
	_ = p.ConstrainRates([]int{44100})

	if err := p.ConstrainRates([]int{48000}); err == nil {
		t.Fatal("expected empty constraint error")
	}
	// The failed constraint must not wipe the previous one
	if !p.AllowsRate(44100) {
		t.Error("previous constraint lost")
	}
}

func TestHWParamsChoose(t *testing.T) {
	p := NewHWParams()
	_ = p.ConstrainRates([]int{44100, 48000})
	_ = p.ConstrainChannels(2)
	_ = p.ConstrainWidths(16)

	tests := []struct {
		name     string
		rate     int
		channels int
		width    int
		ok       bool
	}{
		{"valid", 48000, 2, 16, true},
		{"bad rate", 32000, 2, 16, false},
		{"bad channels", 44100, 6, 16, false},
		{"bad width", 44100, 2, 32, false},
		{"zero channels", 44100, 0, 16, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Choose(tt.rate, tt.channels, tt.width)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	// Failed choices keep the last good one
	if p.Rate() != 48000 || p.ChannelCount() != 2 || p.Width() != 16 {
		t.Errorf("unexpected choice %d/%d/%d", p.Rate(), p.ChannelCount(), p.Width())
	}
}

func TestFormatString(t *testing.T) {
	got := XClockDACLink.Format.String()
	if got != "i2s|nb_nf|cbm_cfm" {
		t.Errorf("expected i2s|nb_nf|cbm_cfm, got %s", got)
	}
}

func TestDAILinkInit(t *testing.T) {
	cpu := &fakeCPUDAI{}
	if err := XClockDACLink.Init(cpu); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cpu.ratio != 32 {
		t.Errorf("expected bclk ratio 32, got %d", cpu.ratio)
	}
}
