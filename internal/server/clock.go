// ABOUTME: Clock request handlers for the control server
// ABOUTME: Maps clock/* messages onto the device and replies with state or errors
package server

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

// handleClientMessage processes messages from clients
func (s *Server) handleClientMessage(client *Client, data []byte, log logrus.FieldLogger) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.WithError(err).Warn("Error unmarshaling message")
		return
	}

	reply, changed := s.dispatch(env)
	reply.ID = env.ID
	if err := s.sendMessage(client, reply); err != nil {
		log.WithError(err).Warn("Error sending reply")
	}
	if changed {
		s.Broadcast()
	}
}

// dispatch runs one request and reports whether the clock changed
func (s *Server) dispatch(env protocol.Envelope) (protocol.Message, bool) {
	switch env.Type {
	case protocol.TypeClockRates:
		return protocol.Message{Type: protocol.TypeClockRates, Payload: protocol.RatesFromTable(s.clock.Table())}, false

	case protocol.TypeClockGet:
		if _, err := s.clock.Rate(); err != nil {
			return errorReply(env.Type, err), false
		}
		return protocol.Message{Type: protocol.TypeClockState, Payload: s.state()}, false

	case protocol.TypeClockRound:
		var req protocol.RateRequest
		if err := env.Decode(&req); err != nil {
			return errorReply(env.Type, err), false
		}
		rounded, err := s.clock.RoundRate(req.Rate)
		if err != nil {
			return errorReply(env.Type, err), false
		}
		state := s.state()
		state.Requested = req.Rate
		state.Rounded = rounded
		return protocol.Message{Type: protocol.TypeClockState, Payload: state}, false

	case protocol.TypeClockSet:
		var req protocol.RateRequest
		if err := env.Decode(&req); err != nil {
			return errorReply(env.Type, err), false
		}
		if _, err := s.clock.SetRate(req.Rate); err != nil {
			s.log.WithField("rate", req.Rate).WithError(err).Warn("clock/set failed")
			return errorReply(env.Type, err), false
		}
		s.log.WithField("rate", req.Rate).Info("Clock rate set")
		return protocol.Message{Type: protocol.TypeClockState, Payload: s.state()}, true

	default:
		return protocol.Message{
			Type:    protocol.TypeClockError,
			Payload: &protocol.ClockError{Request: env.Type, Kind: protocol.KindBadRequest, Message: "unknown message type"},
		}, false
	}
}

func errorReply(request string, err error) protocol.Message {
	return protocol.Message{Type: protocol.TypeClockError, Payload: protocol.NewClockError(request, err)}
}

// state snapshots the clock. Rate and Code stay empty when unattached or unrecognized.
func (s *Server) state() protocol.ClockState {
	state := protocol.ClockState{Attached: s.clock.Attached()}
	if rate, err := s.clock.Rate(); err == nil {
		state.Rate = rate
	}
	if code, err := s.clock.Code(); err == nil {
		state.Code = code.String()
	}
	return state
}
