package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
)

// Event is one message on the websocket stream
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Event types broadcast by the sensor
const (
	EventSaltsIngested = "salts_ingested"
	EventSessionError  = "session_error"
)

const clientSendBuffer = 16

// Hub fans events out to connected websocket clients. A client that cannot
// keep up with the stream is disconnected rather than buffered without
// bound.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
	closed  bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The server binds to loopback; any local page may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     logger.NewComponentLogger("EventHub"),
		clients: make(map[*websocket.Conn]chan Event),
	}
}

// Broadcast sends an event to every connected client
func (h *Hub) Broadcast(eventType string, data any) {
	event := Event{Type: eventType, Time: time.Now().UTC(), Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- event:
		default:
			h.log.Warn("Dropping slow websocket client %s", conn.RemoteAddr())
			delete(h.clients, conn)
			close(send)
		}
	}
}

// ClientCount reports how many clients are connected
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed: %v", err)
		return
	}

	send := make(chan Event, clientSendBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = send
	h.mu.Unlock()

	h.log.Debug("Websocket client connected: %s", conn.RemoteAddr())

	go h.writePump(conn, send)
	h.readPump(conn)
}

// writePump drains the client's send channel onto the connection
func (h *Hub) writePump(conn *websocket.Conn, send chan Event) {
	defer conn.Close()
	for event := range send {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.remove(conn)
			return
		}
	}
}

// readPump discards inbound messages and detects disconnects
func (h *Hub) readPump(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	conn.Close()
}
