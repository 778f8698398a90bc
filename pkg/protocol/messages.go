// ABOUTME: XclockDAC control protocol message type definitions
// ABOUTME: Defines the JSON envelopes for handshake, clock requests and replies
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xclockdac/xclockdac-go/pkg/clock"
	"github.com/xclockdac/xclockdac-go/pkg/regio"
)

const (
	// Version is the control protocol version
	Version = 1

	// Path is the websocket endpoint
	Path = "/xclockdac"

	// ServiceType is the mDNS service the daemon advertises
	ServiceType = "_xclockdac._tcp"
)

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeClockGet    = "clock/get"
	TypeClockRound  = "clock/round"
	TypeClockSet    = "clock/set"
	TypeClockRates  = "clock/rates"
	TypeClockState  = "clock/state"
	TypeClockError  = "clock/error"
)

// Error kinds carried by clock/error
const (
	KindNotAttached  = "not_attached"
	KindInvalidRate  = "invalid_rate"
	KindUnrecognized = "unrecognized"
	KindIO           = "io"
	KindBadRequest   = "bad_request"
)

// Message is the top-level wrapper for all protocol messages.
// ID correlates a reply with its request; broadcasts carry no ID.
type Message struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope is a received message with its payload left undecoded
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the daemon's response to client/hello
type ServerHello struct {
	ServerID   string      `json:"server_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
	Clock           string `json:"clock"`
	Link            string `json:"link,omitempty"`
}

// RateRequest carries the rate for clock/round and clock/set
type RateRequest struct {
	Rate int `json:"rate"`
}

// ClockState reports the clock after a request or state change
type ClockState struct {
	Attached bool   `json:"attached"`
	Rate     int    `json:"rate,omitempty"`
	Code     string `json:"code,omitempty"`
	// Requested and Rounded are set on clock/round replies
	Requested int `json:"requested,omitempty"`
	Rounded   int `json:"rounded,omitempty"`
}

// RateInfo is one row of the rate table
type RateInfo struct {
	Rate     int    `json:"rate"`
	Code     string `json:"code"`
	Crystal  int    `json:"crystal"`
	BitClock int    `json:"bit_clock"`
	Divider  int    `json:"divider"`
}

// RateList is the clock/rates reply
type RateList struct {
	Rates []RateInfo `json:"rates"`
}

// RatesFromTable converts a rate table to wire form
func RatesFromTable(t *clock.RateTable) RateList {
	list := RateList{Rates: make([]RateInfo, 0, t.Len())}
	for _, e := range t.Entries() {
		list.Rates = append(list.Rates, RateInfo{
			Rate:     e.Freq,
			Code:     e.Code.String(),
			Crystal:  e.Crystal(),
			BitClock: e.BitClock(),
			Divider:  e.Divider(),
		})
	}
	return list
}

// ClockError is the clock/error payload
type ClockError struct {
	Request string `json:"request"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error implements error
func (e *ClockError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Request, e.Kind, e.Message)
}

// Unwrap maps the kind back onto the clock sentinels so remote callers can use errors.Is
func (e *ClockError) Unwrap() error {
	switch e.Kind {
	case KindNotAttached:
		return clock.ErrNotAttached
	case KindInvalidRate:
		return clock.ErrInvalidRate
	case KindUnrecognized:
		return clock.ErrUnrecognized
	}
	return nil
}

// KindOf classifies a clock error for the wire
func KindOf(err error) string {
	var ioErr *regio.Error
	switch {
	case errors.Is(err, clock.ErrNotAttached):
		return KindNotAttached
	case errors.Is(err, clock.ErrInvalidRate):
		return KindInvalidRate
	case errors.Is(err, clock.ErrUnrecognized):
		return KindUnrecognized
	case errors.As(err, &ioErr):
		return KindIO
	}
	return KindBadRequest
}

// NewClockError builds the clock/error payload for a failed request
func NewClockError(request string, err error) *ClockError {
	return &ClockError{Request: request, Kind: KindOf(err), Message: err.Error()}
}
