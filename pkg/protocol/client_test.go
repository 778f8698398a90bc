// ABOUTME: Tests for the control protocol client
// ABOUTME: Runs the client against an in-process websocket peer
package protocol

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xclockdac/xclockdac-go/pkg/clock"
)

// fakeDaemon answers clock requests from a fixed script
func fakeDaemon(t *testing.T, serverVersion int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, Path, r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var hello Envelope
		if err := conn.ReadJSON(&hello); err != nil || hello.Type != TypeClientHello {
			return
		}
		conn.WriteJSON(Message{Type: TypeServerHello, Payload: ServerHello{ServerID: "srv", Name: "test", Version: serverVersion}})

		rate := 44100
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			switch env.Type {
			case TypeClockGet:
				conn.WriteJSON(Message{Type: TypeClockState, ID: env.ID, Payload: ClockState{Attached: true, Rate: rate}})
			case TypeClockRates:
				conn.WriteJSON(Message{Type: TypeClockRates, ID: env.ID, Payload: RatesFromTable(clock.XClockDAC)})
			case TypeClockRound:
				var req RateRequest
				env.Decode(&req)
				conn.WriteJSON(Message{Type: TypeClockState, ID: env.ID, Payload: ClockState{Attached: true, Rate: rate, Requested: req.Rate, Rounded: clock.XClockDAC.Round(req.Rate)}})
			case TypeClockSet:
				var req RateRequest
				env.Decode(&req)
				if _, ok := clock.XClockDAC.LookupExact(req.Rate); !ok {
					conn.WriteJSON(Message{Type: TypeClockError, ID: env.ID, Payload: &ClockError{Request: env.Type, Kind: KindInvalidRate, Message: "no"}})
					continue
				}
				rate = req.Rate
				// broadcast first, then the reply
				conn.WriteJSON(Message{Type: TypeClockState, Payload: ClockState{Attached: true, Rate: rate}})
				conn.WriteJSON(Message{Type: TypeClockState, ID: env.ID, Payload: ClockState{Attached: true, Rate: rate}})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func connect(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(Config{ServerAddr: strings.TrimPrefix(srv.URL, "http://")})
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientRequests(t *testing.T) {
	c := connect(t, fakeDaemon(t, Version))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Equal(t, "srv", c.Server().ServerID)

	state, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 44100, state.Rate)

	list, err := c.Rates(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Rates, 8)

	state, err = c.Round(ctx, 46050)
	require.NoError(t, err)
	assert.Equal(t, 48000, state.Rounded)
	assert.Equal(t, 44100, state.Rate)

	state, err = c.Set(ctx, 48000)
	require.NoError(t, err)
	assert.Equal(t, 48000, state.Rate)

	select {
	case s := <-c.States():
		assert.Equal(t, 48000, s.Rate)
	case <-ctx.Done():
		t.Fatal("no broadcast received")
	}
}

func TestClientRemoteError(t *testing.T) {
	c := connect(t, fakeDaemon(t, Version))

	_, err := c.Set(context.Background(), 45000)
	require.Error(t, err)
	assert.ErrorIs(t, err, clock.ErrInvalidRate)

	var ce *ClockError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindInvalidRate, ce.Kind)
}

func TestClientVersionMismatch(t *testing.T) {
	srv := fakeDaemon(t, Version+1)
	c := NewClient(Config{ServerAddr: strings.TrimPrefix(srv.URL, "http://")})
	err := c.Connect(context.Background())
	assert.ErrorContains(t, err, "unsupported protocol version")
}

func TestClientClosed(t *testing.T) {
	c := connect(t, fakeDaemon(t, Version))
	require.NoError(t, c.Close())

	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8928"})
	assert.NotEmpty(t, c.config.ClientID)
	assert.Equal(t, "xclockctl", c.config.Name)

	raw, err := json.Marshal(ClientHello{ClientID: c.config.ClientID, Name: c.config.Name, Version: Version})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version":1`)
}
