// If you are AI: This file implements HTTP API handlers.
// All handlers are fast, allocation-light, and never block media paths.

package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"streamhub/internal/core/bus"
	"streamhub/internal/svc/relay"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const restartTimeout = 5 * time.Second

// ServerResponse represents the /api/server response.
type ServerResponse struct {
	Version         string   `json:"version"`
	Uptime          int64    `json:"uptime"` // seconds
	GoVersion       string   `json:"go_version"`
	EnabledServices []string `json:"enabled_services"`
	Streams         int      `json:"streams"`
	RTMPConnections int      `json:"rtmp_connections"`
	RelayTasks      int      `json:"relay_tasks"`
}

// StreamsResponse represents the /api/streams response.
type StreamsResponse struct {
	Streams []bus.SessionInfo `json:"streams"`
}

// RelayResponse represents the /api/relay response.
type RelayResponse struct {
	Tasks []relay.TaskInfo `json:"tasks"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServer handles GET /api/server.
func (s *Service) handleServer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	response := ServerResponse{
		Version:   Version,
		Uptime:    int64(time.Since(s.startTime) / time.Second),
		GoVersion: runtime.Version(),
		EnabledServices: []string{
			"rtmp",
			"http_flv",
			"ws_flv",
			"relay",
		},
		Streams: s.registry.Count(),
	}
	if s.conns != nil {
		response.RTMPConnections = s.conns.ConnCount()
	}
	if s.relayMgr != nil {
		response.RelayTasks = s.relayMgr.TaskCount()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleStreams handles GET /api/streams.
// Returns every session with publisher, subscriber and cache state.
func (s *Service) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, StreamsResponse{Streams: s.registry.Sessions()})
}

// handleRelay handles GET /api/relay.
// Returns configured relay tasks and their state.
func (s *Service) handleRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tasks := []relay.TaskInfo{}
	if s.relayMgr != nil {
		tasks = append(tasks, s.relayMgr.Tasks()...)
	}
	s.writeJSON(w, http.StatusOK, RelayResponse{Tasks: tasks})
}

// handleRelayRestart handles POST /api/relay/restart with {"app": ..., "name": ...}.
func (s *Service) handleRelayRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		App  string `json:"app"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.App == "" || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "app and name are required")
		return
	}
	if s.relayMgr == nil {
		s.writeError(w, http.StatusNotFound, "relay not enabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), restartTimeout)
	defer cancel()
	if err := s.relayMgr.Restart(ctx, req.App, req.Name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, relay.ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

// writeJSON writes a JSON response.
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("api response write failed")
	}
}

// writeError writes an error response.
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
