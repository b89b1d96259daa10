package api

import (
	"encoding/json"
	"net/http"

	"spacecouncil/internal/game"
	"spacecouncil/internal/models"
	"spacecouncil/internal/store"

	"go.uber.org/zap"
)

// Identity headers set by the client
const (
	HeaderPlayerID   = "X-Player-ID"
	HeaderPlayerName = "X-Player-Name"
)

// Transport-level error kinds, alongside models.ErrorKind
const (
	KindUnauthenticated = "unauthenticated"
	KindRateLimited     = "rate_limited"
	KindBadRequest      = "bad_request"
)

var statusByKind = map[models.ErrorKind]int{
	models.KindAuthorization: http.StatusForbidden,
	models.KindResource:      http.StatusUnprocessableEntity,
	models.KindRange:         http.StatusUnprocessableEntity,
	models.KindOccupancy:     http.StatusUnprocessableEntity,
	models.KindTarget:        http.StatusUnprocessableEntity,
	models.KindNotFound:      http.StatusNotFound,
	models.KindState:         http.StatusConflict,
	models.KindConflict:      http.StatusConflict,
	models.KindInternal:      http.StatusInternalServerError,
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type createRoomRequest struct {
	Name              string              `json:"name"`
	ShipType          models.ShipType     `json:"shipType"`
	ActionTimeWindows []models.TimeWindow `json:"actionTimeWindows,omitempty"`
}

type joinRequest struct {
	ShipType models.ShipType `json:"shipType"`
}

type voteRequest struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

type player struct {
	ID   string
	Name string
}

// Handler serves the JSON room API
type Handler struct {
	rooms   *game.Service
	limiter *Limiter
	logger  *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(rooms *game.Service, limiter *Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		rooms:   rooms,
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.mutating(h.handleCreateRoom))
	mux.HandleFunc("GET /api/rooms", h.identified(h.handleListRooms))
	mux.HandleFunc("GET /api/rooms/{roomID}", h.handleGetRoom)
	mux.HandleFunc("POST /api/rooms/{roomID}/join", h.mutating(h.handleJoin))
	mux.HandleFunc("POST /api/rooms/{roomID}/actions", h.mutating(h.handleAction))
	mux.HandleFunc("POST /api/rooms/{roomID}/votes", h.mutating(h.handleVote))
	mux.HandleFunc("POST /api/rooms/{roomID}/tick", h.mutating(h.handleTick))
}

type playerHandler func(w http.ResponseWriter, r *http.Request, p player)

// identified rejects requests without a player id
func (h *Handler) identified(next playerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := player{ID: r.Header.Get(HeaderPlayerID), Name: r.Header.Get(HeaderPlayerName)}
		if p.ID == "" {
			h.respondError(w, http.StatusUnauthorized, KindUnauthenticated, "missing "+HeaderPlayerID+" header")
			return
		}
		next(w, r, p)
	}
}

// mutating adds the per-player throttle to identified
func (h *Handler) mutating(next playerHandler) http.HandlerFunc {
	return h.identified(func(w http.ResponseWriter, r *http.Request, p player) {
		if !h.limiter.Allow(p.ID) {
			h.respondError(w, http.StatusTooManyRequests, KindRateLimited, "slow down")
			return
		}
		next(w, r, p)
	})
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request, p player) {
	var req createRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	room, err := h.rooms.CreateRoom(r.Context(), req.Name, p.ID, p.Name, req.ShipType, req.ActionTimeWindows)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, room)
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request, p player) {
	rooms, err := h.rooms.ListRooms(r.Context(), p.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, rooms)
}

func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), r.PathValue("roomID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if digest, err := store.Digest(room); err == nil {
		etag := `"` + digest + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.respondJSON(w, http.StatusOK, room)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request, p player) {
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	room, err := h.rooms.JoinRoom(r.Context(), r.PathValue("roomID"), p.ID, p.Name, req.ShipType)
	h.respondRoom(w, room, err)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, p player) {
	var action models.Action
	if !h.decode(w, r, &action) {
		return
	}
	action.PlayerID = p.ID
	room, err := h.rooms.PerformAction(r.Context(), r.PathValue("roomID"), action)
	h.respondRoom(w, room, err)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request, p player) {
	var req voteRequest
	if !h.decode(w, r, &req) {
		return
	}
	room, err := h.rooms.VoteInCouncil(r.Context(), r.PathValue("roomID"), p.ID, req.TargetPlayerID)
	h.respondRoom(w, room, err)
}

func (h *Handler) handleTick(w http.ResponseWriter, r *http.Request, p player) {
	room, err := h.rooms.Tick(r.Context(), r.PathValue("roomID"))
	h.respondRoom(w, room, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, KindBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) respondRoom(w http.ResponseWriter, room *models.Room, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, room)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := statusByKind[kind]
	if kind == models.KindInternal {
		h.logger.Error("request failed", zap.Error(err))
	}
	h.respondError(w, status, string(kind), err.Error())
}

func (h *Handler) respondError(w http.ResponseWriter, status int, kind, msg string) {
	h.respondJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
