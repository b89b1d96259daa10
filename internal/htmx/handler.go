package htmx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spacecouncil/internal/broadcast"
	"spacecouncil/internal/game"
	"spacecouncil/internal/models"

	"github.com/a-h/templ"
	"go.uber.org/zap"
)

// Handler serves the game log as HTMX fragments with SSE for live updates.
type Handler struct {
	rooms  *game.Service
	hub    *broadcast.Hub
	logger *zap.Logger
}

// NewHandler creates a new HTMX handler.
func NewHandler(rooms *game.Service, hub *broadcast.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		rooms:  rooms,
		hub:    hub,
		logger: logger,
	}
}

// RegisterRoutes sets up the HTMX routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /htmx/log/{roomID}", h.handleLog)
	mux.HandleFunc("GET /htmx/sse/{roomID}", h.handleSSE)
}

func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), r.PathValue("roomID"))
	w.Header().Set("Content-Type", "text/html")
	if err != nil {
		if errors.Is(err, models.ErrRoomNotFound) {
			w.WriteHeader(http.StatusNotFound)
		} else {
			h.logger.Error("log fragment failed", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
		}
		ErrorStatus(err.Error()).Render(r.Context(), w)
		return
	}
	LogPanel(room).Render(r.Context(), w)
}

func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	room, err := h.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan *models.Room, 10)
	h.hub.RegisterSSE(roomID, ch)
	defer h.hub.UnregisterSSE(roomID, ch)

	// Send initial state
	writeEvent(r.Context(), w, room)
	flusher.Flush()

	for {
		select {
		case room := <-ch:
			writeEvent(r.Context(), w, room)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(ctx context.Context, w http.ResponseWriter, room *models.Room) {
	html := renderToString(ctx, LogFeed(room))
	fmt.Fprintf(w, "event: log-update\ndata: %s\n\n", strings.ReplaceAll(html, "\n", ""))
}

func renderToString(ctx context.Context, component templ.Component) string {
	var buf bytes.Buffer
	component.Render(ctx, &buf)
	return buf.String()
}
