package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spacecouncil/internal/broadcast"
	"spacecouncil/internal/game"
	"spacecouncil/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit    = 1 << 20
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types a client may send
const (
	TypeJoin   = "join"
	TypeAction = "action"
	TypeVote   = "vote"
	TypeTick   = "tick"
)

var (
	errAnonymous  = fmt.Errorf("%w: connect with ?player=<id>", models.ErrAuthorization)
	errThrottled  = errors.New("slow down")
	errBadMessage = errors.New("malformed message")
)

// Message is one client request
type Message struct {
	Type           string          `json:"type"`
	Action         *models.Action  `json:"action,omitempty"`
	TargetPlayerID string          `json:"targetPlayerId,omitempty"`
	ShipType       models.ShipType `json:"shipType,omitempty"`
}

// Reply reports a rejected message to its sender
type Reply struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Allower throttles a player's messages
type Allower interface {
	Allow(key string) bool
}

// Handler handles WebSocket connections for real-time room updates.
type Handler struct {
	rooms   *game.Service
	hub     *broadcast.Hub
	limiter Allower
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler. limiter may be nil.
func NewHandler(rooms *game.Service, hub *broadcast.Hub, limiter Allower, logger *zap.Logger) *Handler {
	return &Handler{
		rooms:   rooms,
		hub:     hub,
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes sets up the WebSocket routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/{roomID}", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	playerID := r.URL.Query().Get("player")
	playerName := r.URL.Query().Get("name")

	room, err := h.rooms.GetRoom(r.Context(), roomID)
	if errors.Is(err, models.ErrRoomNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("ws room load failed", zap.String("room", roomID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := broadcast.NewConn(ws)
	h.hub.RegisterWS(roomID, conn)
	defer h.hub.UnregisterWS(roomID, conn)

	log := h.logger.With(zap.String("room", roomID), zap.String("player", playerID))
	log.Debug("ws connected")
	defer log.Debug("ws disconnected")

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	// Send current room state
	if err := conn.WriteJSON(room); err != nil {
		return
	}

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
		if err := h.handleMessage(r.Context(), roomID, playerID, playerName, msg); err != nil {
			conn.WriteJSON(replyFor(err))
		}
	}
}

// handleMessage applies one client message. Successful changes reach every
// subscriber, the sender included, through the hub.
func (h *Handler) handleMessage(ctx context.Context, roomID, playerID, playerName string, msg Message) error {
	if playerID == "" {
		return errAnonymous
	}
	if h.limiter != nil && !h.limiter.Allow(playerID) {
		return errThrottled
	}

	var err error
	switch msg.Type {
	case TypeAction:
		if msg.Action == nil {
			return errBadMessage
		}
		a := *msg.Action
		a.PlayerID = playerID
		_, err = h.rooms.PerformAction(ctx, roomID, a)
	case TypeVote:
		_, err = h.rooms.VoteInCouncil(ctx, roomID, playerID, msg.TargetPlayerID)
	case TypeTick:
		_, err = h.rooms.Tick(ctx, roomID)
	case TypeJoin:
		_, err = h.rooms.JoinRoom(ctx, roomID, playerID, playerName, msg.ShipType)
	default:
		return fmt.Errorf("%w: unknown type %q", errBadMessage, msg.Type)
	}
	return err
}

func replyFor(err error) Reply {
	switch {
	case errors.Is(err, errThrottled):
		return Reply{Error: err.Error(), Kind: "rate_limited"}
	case errors.Is(err, errBadMessage):
		return Reply{Error: err.Error(), Kind: "bad_request"}
	}
	return Reply{Error: err.Error(), Kind: string(models.KindOf(err))}
}

func keepAlive(conn *broadcast.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
