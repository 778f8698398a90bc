// ABOUTME: PCM binding error kinds
// ABOUTME: Negotiation rejections, lifecycle misuse, and hardware-parameter failures
package pcm

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyNotReady is transient: retry attach once the dependency is ready
	ErrDependencyNotReady = errors.New("pcm: dependency not ready")

	// ErrNotBound is returned by stream callbacks before the binding has attached
	ErrNotBound = errors.New("pcm: binding not attached")

	// ErrRateRejected means the negotiation constraint does not allow the rate
	ErrRateRejected = errors.New("pcm: rate rejected by constraint")

	// ErrChannelsRejected means the negotiation constraint does not allow the channel count
	ErrChannelsRejected = errors.New("pcm: channel count rejected by constraint")

	// ErrWidthRejected means the negotiation constraint does not allow the sample width
	ErrWidthRejected = errors.New("pcm: sample width rejected by constraint")

	// ErrEmptyConstraint means a constraint left no acceptable values
	ErrEmptyConstraint = errors.New("pcm: constraint leaves no acceptable values")

	// ErrNotPrepared is returned by Start before hardware parameters were committed
	ErrNotPrepared = errors.New("pcm: hardware parameters not committed")

	// ErrRunning is returned when renegotiating a running stream
	ErrRunning = errors.New("pcm: stream is running")

	// ErrBusy is returned when opening a second stream on the same binding
	ErrBusy = errors.New("pcm: a stream is already open")

	// ErrClosed is returned by operations on a closed stream
	ErrClosed = errors.New("pcm: stream closed")

	// ErrBadFormat is returned when the DAI format is not supported by the codec
	ErrBadFormat = errors.New("pcm: unsupported DAI format")
)

// HWParamsError reports a failed parameter commit; the stream must not start
type HWParamsError struct {
	Rate int
	Err  error
}

func (e *HWParamsError) Error() string {
	return fmt.Sprintf("pcm: hw_params %d Hz: %v", e.Rate, e.Err)
}

func (e *HWParamsError) Unwrap() error {
	return e.Err
}
