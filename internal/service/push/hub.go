// Package push fans run snapshots out to WebSocket watchers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bournewang/ai-hedge-fund/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
	sendBuffer     = 256
)

// ErrBufferFull is returned when a connection cannot keep up.
var ErrBufferFull = errors.New("send buffer full")

// Connection is one WebSocket watcher. Watchers only listen; inbound frames
// are drained and discarded to service control messages.
type Connection struct {
	ID   string
	Send chan []byte

	ws  *websocket.Conn
	hub *Hub
	mu  sync.Mutex
}

// Hub tracks all watcher connections and broadcasts snapshots to them.
// Every watcher observes the same run, so there is no per-session routing.
type Hub struct {
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	broadcast   chan []byte
	log         *logger.Logger
	mu          sync.RWMutex
}

// NewHub creates a hub. Run must be started for it to do anything.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan []byte, 256),
		log:         log,
	}
}

// Run services registration and broadcast until ctx is cancelled, then
// closes every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				delete(h.connections, id)
				close(conn.Send)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			h.log.Debug("watcher connected", logger.String("conn_id", conn.ID))

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, conn := range h.connections {
				select {
				case conn.Send <- msg:
				default:
					h.log.Warn("watcher buffer full, dropping connection",
						logger.String("conn_id", id))
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) drop(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	close(conn.Send)
	h.log.Debug("watcher disconnected", logger.String("conn_id", conn.ID))
}

// NewConnection wraps an upgraded socket. The caller must Register it and
// start both pumps.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Send: make(chan []byte, sendBuffer),
		ws:   ws,
		hub:  h,
	}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection and closes its send channel. It never
// blocks; after Run has exited the drop happens on the caller's goroutine.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	default:
		h.drop(conn)
	}
}

// Broadcast queues a payload for every watcher.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ConnectionCount returns the number of active watchers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Push sends a payload to one connection without blocking.
func (h *Hub) Push(conn *Connection, data []byte) error {
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// PushJSON marshals v and pushes it to one connection.
func (h *Hub) PushJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Push(conn, data)
}

// WritePump drains Send onto the socket and keeps the connection alive with
// pings. It exits when Send closes or a write fails.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump discards inbound frames until the peer goes away, then
// unregisters the connection.
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxInboundSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}
