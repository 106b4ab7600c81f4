// If you are AI: This file implements the HTTP handler for FLV stream requests.
// Handles GET /{app}/{name}.flv requests and manages subscriber lifecycle.

package httpflv

import (
	"bufio"
	"net/http"
	"path"
	"strings"

	"streamhub/internal/core/bus"

	"github.com/rs/zerolog/log"
)

// Handler handles HTTP-FLV requests.
type Handler struct {
	registry *bus.Registry
	queue    uint32
}

// NewHandler creates a new HTTP-FLV handler. queue is the per-viewer queue length.
func NewHandler(registry *bus.Registry, queue uint32) *Handler {
	return &Handler{
		registry: registry,
		queue:    queue,
	}
}

// ServeHTTP handles HTTP requests for FLV streams.
// Endpoint: GET /{app}/{name}.flv
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasSuffix(r.URL.Path, ".flv") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	key, err := bus.ParseStreamPath(strings.TrimSuffix(r.URL.Path, ".flv"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sub, err := Subscribe(h.registry, key, h.queue)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer sub.Close()

	logger := log.With().Str("path", key.String()).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("http-flv viewer attached")

	w.Header().Set("Content-Type", "video/x-flv")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	bw := bufio.NewWriterSize(w, 32*1024)
	err = sub.Run(r.Context(), func(b []byte) error {
		if _, err := bw.Write(b); err != nil {
			return err
		}
		// Flush once the queue is drained so bursts go out together.
		if sub.Pending() > 0 {
			return nil
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	_ = bw.Flush()
	logger.Info().Err(err).Uint64("dropped", sub.Dropped()).Msg("http-flv viewer detached")
}

// RegisterRoutes registers HTTP-FLV routes on the given mux.
// Non-.flv paths under / answer 404 so more specific routes keep working.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if path.Ext(r.URL.Path) == ".flv" {
			h.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}
