// ABOUTME: Control server for the XclockDAC clock generator
// ABOUTME: Manages WebSocket connections, clock requests and state broadcasts
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/internal/discovery"
	"github.com/xclockdac/xclockdac-go/pkg/clock"
	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 32
)

// ErrSendBufferFull is returned when a client is not draining its messages
var ErrSendBufferFull = errors.New("client send buffer full")

// Clock is the device the server exposes. *clock.Device satisfies it.
type Clock interface {
	clock.Provider
	Name() string
	Table() *clock.RateTable
	Attached() bool
	Code() (clock.Code, error)
}

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	DeviceInfo protocol.DeviceInfo
}

// Server represents the control server
type Server struct {
	config   Config
	serverID string
	clock    Clock
	log      logrus.FieldLogger

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected control client
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	// Output channel for messages
	sendChan chan protocol.Message
}

// New creates a new server instance
func New(config Config, clk Clock, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.Name == "" {
		config.Name = "xclockdac"
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		clock:    clk,
		log:      log.WithField("component", "server"),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Control clients are CLI tools on the local network, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ID returns the server ID sent in server/hello
func (s *Server) ID() string {
	return s.serverID
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	s.log.Infof("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Log:         s.log,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			s.log.WithError(err).Warn("Failed to start mDNS advertisement")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("WebSocket server listening on %s%s", addr, protocol.Path)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		s.log.Info("Server shutting down...")
	case err := <-errChan:
		s.log.WithError(err).Error("HTTP server error")
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("HTTP server shutdown error")
	}

	s.closeClients()
	s.wg.Wait()
	s.log.Info("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// closeClients drops every open connection; hijacked websockets survive http.Server.Shutdown
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	down := s.isShutdown
	s.shutdownMu.RUnlock()
	if down {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	s.log.Debugf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(writeDeadline))
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.log.WithError(err).Debug("Error reading hello")
		return
	}
	conn.SetReadDeadline(time.Time{})

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != protocol.TypeClientHello {
		s.log.Warnf("Expected %s, got %q", protocol.TypeClientHello, env.Type)
		return
	}

	var hello protocol.ClientHello
	if err := env.Decode(&hello); err != nil {
		s.log.WithError(err).Warn("Error decoding client hello")
		return
	}
	if hello.ClientID == "" {
		s.log.Warn("Client hello missing ClientID")
		return
	}

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan protocol.Message, sendBuffer),
	}
	log := s.log.WithField("client", client.Name)

	s.clientsMu.Lock()
	if _, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Warnf("Client ID %s already connected, rejecting duplicate", client.ID)
		conn.WriteJSON(protocol.Message{
			Type:    protocol.TypeClockError,
			Payload: &protocol.ClockError{Request: protocol.TypeClientHello, Kind: protocol.KindBadRequest, Message: "client ID already connected"},
		})
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		close(client.sendChan)
		s.clientsMu.Unlock()
		log.Info("Client disconnected")
	}()

	log.Infof("Client connected (ID: %s)", client.ID)

	s.sendMessage(client, protocol.Message{
		Type: protocol.TypeServerHello,
		Payload: protocol.ServerHello{
			ServerID:   s.serverID,
			Name:       s.config.Name,
			Version:    protocol.Version,
			DeviceInfo: &s.config.DeviceInfo,
		},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client, log)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("WebSocket error")
			}
			return
		}
		s.handleClientMessage(client, data, log)
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client, log logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("Error writing message")
				client.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// sendMessage queues a message for one client without blocking
func (s *Server) sendMessage(client *Client, msg protocol.Message) error {
	select {
	case client.sendChan <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Broadcast sends the current clock state to every client
func (s *Server) Broadcast() {
	msg := protocol.Message{Type: protocol.TypeClockState, Payload: s.state()}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		if err := s.sendMessage(c, msg); err != nil {
			s.log.WithField("client", c.Name).WithError(err).Warn("Dropping broadcast")
		}
	}
}
