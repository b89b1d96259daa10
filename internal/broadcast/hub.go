package broadcast

import (
	"sync"
	"time"

	"spacecouncil/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Conn is a WebSocket peer whose writes are serialized, so the hub and the
// connection's own handler can both reply on it.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps an upgraded connection
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// WriteJSON sends v as one text frame
func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// Ping sends a keepalive control frame
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

// Hub fans committed rooms out to WebSocket and SSE subscribers.
type Hub struct {
	wsClients  map[string]map[*Conn]bool
	sseClients map[string]map[chan *models.Room]bool
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub creates a new broadcast hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		wsClients:  make(map[string]map[*Conn]bool),
		sseClients: make(map[string]map[chan *models.Room]bool),
		logger:     logger,
	}
}

// RegisterWS adds a WebSocket connection for a room.
func (h *Hub) RegisterWS(roomID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wsClients[roomID] == nil {
		h.wsClients[roomID] = make(map[*Conn]bool)
	}
	h.wsClients[roomID][conn] = true
}

// UnregisterWS removes a WebSocket connection for a room.
func (h *Hub) UnregisterWS(roomID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.wsClients[roomID], conn)
	if len(h.wsClients[roomID]) == 0 {
		delete(h.wsClients, roomID)
	}
}

// RegisterSSE adds an SSE channel for a room.
func (h *Hub) RegisterSSE(roomID string, ch chan *models.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sseClients[roomID] == nil {
		h.sseClients[roomID] = make(map[chan *models.Room]bool)
	}
	h.sseClients[roomID][ch] = true
}

// UnregisterSSE removes an SSE channel for a room and closes it.
func (h *Hub) UnregisterSSE(roomID string, ch chan *models.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sseClients[roomID][ch]; !ok {
		return
	}
	delete(h.sseClients[roomID], ch)
	if len(h.sseClients[roomID]) == 0 {
		delete(h.sseClients, roomID)
	}
	close(ch)
}

// Subscribers returns the number of live WebSocket and SSE subscribers of a room
func (h *Hub) Subscribers(roomID string) (ws, sse int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.wsClients[roomID]), len(h.sseClients[roomID])
}

// Publish broadcasts a committed room to its subscribers.
func (h *Hub) Publish(room *models.Room) {
	h.Broadcast(room.ID, room)
}

// Broadcast sends a room update to all connected WebSocket and SSE clients.
// Slow SSE readers miss intermediate updates rather than blocking the sender.
func (h *Hub) Broadcast(roomID string, room *models.Room) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.wsClients[roomID]))
	for conn := range h.wsClients[roomID] {
		conns = append(conns, conn)
	}
	for ch := range h.sseClients[roomID] {
		select {
		case ch <- room:
		default:
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(room); err != nil {
			h.logger.Debug("ws broadcast failed", zap.String("room", roomID), zap.Error(err))
		}
	}
}
