// ABOUTME: WebSocket client for the XclockDAC control protocol
// ABOUTME: Handles connection, handshake, request correlation and state broadcasts
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// handshakeTimeout bounds the wait for server/hello
const handshakeTimeout = 5 * time.Second

// ErrClosed is returned for requests on a closed client
var ErrClosed = errors.New("protocol: connection closed")

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	Log        logrus.FieldLogger
}

// Client represents a control connection to the daemon
type Client struct {
	config Config
	conn   *websocket.Conn
	log    logrus.FieldLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Envelope
	hello   ServerHello

	states    chan ClockState
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client. A missing ClientID gets a fresh UUID.
func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.NewString()
	}
	if config.Name == "" {
		config.Name = "xclockctl"
	}
	log := config.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		config:  config,
		log:     log.WithField("server", config.ServerAddr),
		pending: make(map[string]chan Envelope),
		states:  make(chan ClockState, 16),
		done:    make(chan struct{}),
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	c.log.Debugf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	c.conn = conn

	if err := c.handshake(); err != nil {
		conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  Version,
	}
	if err := c.send(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if env.Type != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, env.Type)
	}

	var sh ServerHello
	if err := env.Decode(&sh); err != nil {
		return err
	}
	if sh.Version != Version {
		return fmt.Errorf("unsupported protocol version %d", sh.Version)
	}

	c.mu.Lock()
	c.hello = sh
	c.mu.Unlock()

	c.log.WithField("server_id", sh.ServerID).Debug("Handshake complete")
	return nil
}

// Server returns the server/hello received during the handshake
func (c *Client) Server() ServerHello {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hello
}

func (c *Client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// readMessages routes replies to waiting requests and broadcasts to States
func (c *Client) readMessages() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.WithError(err).Debug("Read error")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.WithError(err).Warn("Failed to parse message")
			continue
		}

		if env.ID != "" {
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			delete(c.pending, env.ID)
			c.mu.Unlock()
			if ok {
				ch <- env
				continue
			}
		}

		switch env.Type {
		case TypeClockState:
			var state ClockState
			if err := env.Decode(&state); err != nil {
				c.log.WithError(err).Warn("Bad clock/state")
				continue
			}
			select {
			case c.states <- state:
			case <-time.After(100 * time.Millisecond):
				c.log.Warn("State channel full, dropping message")
			}
		default:
			c.log.Debugf("Unhandled message type: %s", env.Type)
		}
	}
}

// request sends a message and waits for the reply with the same ID
func (c *Client) request(ctx context.Context, msgType string, payload, out interface{}) error {
	id := uuid.NewString()
	reply := make(chan Envelope, 1)

	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	if err := c.send(Message{Type: msgType, ID: id, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	select {
	case env := <-reply:
		if env.Type == TypeClockError {
			var ce ClockError
			if err := env.Decode(&ce); err != nil {
				return err
			}
			return &ce
		}
		return env.Decode(out)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Rates fetches the rate table
func (c *Client) Rates(ctx context.Context) (RateList, error) {
	var list RateList
	err := c.request(ctx, TypeClockRates, nil, &list)
	return list, err
}

// Get reads the current clock state
func (c *Client) Get(ctx context.Context) (ClockState, error) {
	var state ClockState
	err := c.request(ctx, TypeClockGet, nil, &state)
	return state, err
}

// Round asks which supported rate the device would pick for rate
func (c *Client) Round(ctx context.Context, rate int) (ClockState, error) {
	var state ClockState
	err := c.request(ctx, TypeClockRound, RateRequest{Rate: rate}, &state)
	return state, err
}

// Set programs an exact rate
func (c *Client) Set(ctx context.Context, rate int) (ClockState, error) {
	var state ClockState
	err := c.request(ctx, TypeClockSet, RateRequest{Rate: rate}, &state)
	return state, err
}

// States delivers clock/state broadcasts
func (c *Client) States() <-chan ClockState {
	return c.states
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.writeMu.Lock()
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			err = c.conn.Close()
		}
	})
	return err
}
