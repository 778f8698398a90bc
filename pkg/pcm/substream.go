// ABOUTME: Playback substream lifecycle
// ABOUTME: open -> hw_params (clock programmed) -> start, with ordering enforced
package pcm

import (
	"fmt"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// State of a substream
type State int

const (
	StateOpen State = iota
	StatePrepared
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Substream is one playback stream on a Binding
type Substream struct {
	ID xid.ID

	mu      sync.Mutex
	binding *Binding
	params  *HWParams
	state   State
	log     logrus.FieldLogger
}

// Open starts a stream: the codec and the clock install their constraints on a fresh
// parameter space. Only one stream may be open per binding.
func (b *Binding) Open() (*Substream, error) {
	params := NewHWParams()

	b.mu.Lock()
	if b.active != nil {
		b.mu.Unlock()
		return nil, ErrBusy
	}
	b.mu.Unlock()

	if b.codec != nil {
		if err := b.codec.Startup(params); err != nil {
			return nil, fmt.Errorf("codec %s startup: %w", b.codec.Name, err)
		}
	}
	if err := b.OnStreamOpen(params); err != nil {
		return nil, err
	}

	s := &Substream{
		ID:      xid.New(),
		binding: b,
		params:  params,
		state:   StateOpen,
	}
	s.log = b.log.WithField("stream", s.ID.String())

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active != nil {
		return nil, ErrBusy
	}
	b.active = s

	s.log.WithField("rates", params.Rates()).Debug("Stream opened")
	return s, nil
}

// Params returns the stream's negotiated parameter space
func (s *Substream) Params() *HWParams {
	return s.params
}

// State returns the lifecycle state
func (s *Substream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HWParams fixes the stream parameters and programs the clock. It returns only after
// the clock confirmed the rate; on failure the stream stays unprepared.
func (s *Substream) HWParams(rate, channels, width int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateRunning:
		return ErrRunning
	}

	if err := s.params.Choose(rate, channels, width); err != nil {
		return &HWParamsError{Rate: rate, Err: err}
	}

	codec := s.binding.Codec()
	if codec != nil {
		if err := codec.HWParams(s.params); err != nil {
			return &HWParamsError{Rate: rate, Err: err}
		}
	}

	// Any earlier commit is void until this one is confirmed
	s.state = StateOpen
	if err := s.binding.OnParamsCommitted(rate); err != nil {
		return err
	}

	s.state = StatePrepared
	s.log.WithFields(logrus.Fields{
		"rate":     rate,
		"channels": channels,
		"width":    width,
	}).Info("Stream prepared")
	return nil
}

// Start begins playback; it requires a confirmed parameter commit
func (s *Substream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateRunning:
		return nil
	case StatePrepared:
		s.state = StateRunning
		s.log.Debug("Stream started")
		return nil
	default:
		return ErrNotPrepared
	}
}

// Stop halts playback; parameters stay committed
func (s *Substream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateRunning:
		s.state = StatePrepared
		s.log.Debug("Stream stopped")
	}
	return nil
}

// Close releases the stream so another one can be opened
func (s *Substream) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.mu.Unlock()

	b := s.binding
	b.mu.Lock()
	if b.active == s {
		b.active = nil
	}
	b.mu.Unlock()

	s.log.Debug("Stream closed")
	return nil
}
