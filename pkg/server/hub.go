// Package server bridges session notifications to websocket clients and
// accepts control commands from them.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/events"
	"github.com/tecu23/csa-client/pkg/messages"
)

const commandTimeout = 10 * time.Second

// Controller is the session manager as seen by bridge clients
type Controller interface {
	Login(ctx context.Context) error
	Stop() error
	Logout() error
	Status() messages.StatusPayload
}

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn    *Connection             // who sent it
	Message messages.InboundMessage // decoded command envelope
}

// Hub keeps track of all active connections. Notifications are broadcast to
// every connection; commands are routed to the controller.
type Hub struct {
	mu          sync.RWMutex         // Mutex to protect direct access to the connections map.
	connections map[*Connection]bool // Registered connections

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Commands from clients

	broadcast chan []byte // Channel to broadcast to everyone

	done     chan struct{}
	doneOnce sync.Once

	controller Controller
	logger     *zap.Logger
}

// NewHub creates a new hub
func NewHub(controller Controller, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		broadcast:   make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		controller:  controller,
		logger:      logger,
	}
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			go h.handleInbound(msg)

		case data := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.connections {
				conn.enqueue(data)
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for conn := range h.connections {
				delete(h.connections, conn)
				conn.close()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Shutdown stops the hub and closes every connection
func (h *Hub) Shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
}

// ServeConn registers an upgraded websocket and starts its pumps
func (h *Hub) ServeConn(ws *websocket.Conn) *Connection {
	conn := NewConnection(ws, h, h.logger)
	h.Register(conn)

	go conn.WritePump()
	go conn.ReadPump()
	return conn
}

// Register adds a connection. After shutdown the connection is closed instead.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.close()
	}
}

// Unregister removes a connection and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Inbound hands a client command to the hub
func (h *Hub) Inbound(msg InboundHubMessage) {
	select {
	case h.inbound <- msg:
	case <-h.done:
	}
}

// Len returns the number of registered connections
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HandleEvent broadcasts a session notification. It never blocks: when the
// broadcast queue is full the notification is dropped.
func (h *Hub) HandleEvent(e events.Event) {
	payload := e.Payload
	if err, ok := payload.(error); ok {
		payload = messages.ErrorPayload{Message: err.Error()}
	}

	data, err := json.Marshal(messages.OutboundMessage{Event: string(e.Type), Payload: payload})
	if err != nil {
		h.logger.Error("Error marshaling event", zap.String("event", string(e.Type)), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping event", zap.String("event", string(e.Type)))
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("New connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", count),
	)

	h.sendMessage(conn, messages.OutboundMessage{
		Event:   messages.EventConnected,
		Payload: messages.ConnectedPayload{ConnectionID: conn.ID.String()},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn]; ok {
		delete(h.connections, conn)
		conn.close()
		h.logger.Info("Connection unregistered",
			zap.String("connection_id", conn.ID.String()),
			zap.Int("connections", len(h.connections)),
		)
	}
}

// handleInbound runs a client command against the controller.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	var err error
	switch msg.Message.Type {
	case messages.CommandLogin:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		err = h.controller.Login(ctx)
		cancel()
	case messages.CommandStop:
		err = h.controller.Stop()
	case messages.CommandLogout:
		err = h.controller.Logout()
	case messages.CommandStatus:
		h.sendMessage(msg.Conn, messages.OutboundMessage{
			Event:   messages.EventStatus,
			Payload: h.controller.Status(),
		})
		return
	default:
		h.sendError(msg.Conn, fmt.Sprintf("Unknown message type %q", msg.Message.Type))
		return
	}

	if err != nil {
		h.logger.Warn("command failed", zap.String("command", msg.Message.Type), zap.Error(err))
		h.sendError(msg.Conn, err.Error())
		return
	}
	h.sendMessage(msg.Conn, messages.OutboundMessage{
		Event:   messages.EventAccepted,
		Payload: messages.AcceptedPayload{Command: msg.Message.Type},
	})
}

func (h *Hub) sendError(conn *Connection, msg string) {
	resp := messages.OutboundMessage{
		Event: messages.EventError,
		Payload: messages.ErrorPayload{
			Message: msg,
		},
	}
	h.sendMessage(conn, resp)
}

func (h *Hub) sendMessage(conn *Connection, msg messages.OutboundMessage) {
	conn.SendJSON(msg)
}
