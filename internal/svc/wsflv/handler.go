// If you are AI: This file implements the WebSocket handler for FLV stream requests.
// Handles GET /ws/{app}/{name} requests and manages subscriber lifecycle.

package wsflv

import (
	"net/http"
	"strings"

	"streamhub/internal/core/bus"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler handles WebSocket-FLV requests.
type Handler struct {
	registry *bus.Registry
	queue    uint32
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket-FLV handler. queue is the per-viewer queue length.
func NewHandler(registry *bus.Registry, queue uint32) *Handler {
	return &Handler{
		registry: registry,
		queue:    queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
			// Browser players are served from other origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles WebSocket upgrade and FLV streaming.
// Endpoint: GET /ws/{app}/{name}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/ws")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	key, err := bus.ParseStreamPath(strings.TrimSuffix(rest, ".flv"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Refuse before upgrading so the client sees a plain 404.
	if s := h.registry.Get(key); s == nil || !s.HasPublisher() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub, err := NewSubscriber(conn, h.registry, key, h.queue)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream not found"))
		_ = conn.Close()
		return
	}
	defer sub.Close()

	logger := log.With().Str("path", key.String()).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("ws-flv viewer attached")
	err = sub.Run(r.Context())
	logger.Info().Err(err).Uint64("dropped", sub.Dropped()).Msg("ws-flv viewer detached")
}

// RegisterRoutes registers WebSocket-FLV routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", h.ServeHTTP)
}
