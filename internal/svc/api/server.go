// If you are AI: This file provides HTTP API service integration.
// The API exposes server state and relay control without blocking media paths.

package api

import (
	"context"
	"net/http"
	"time"

	"streamhub/internal/core/bus"
	"streamhub/internal/svc/relay"
)

// Version is reported by /api/server; the build overrides it with -ldflags.
var Version = "dev"

// Service provides HTTP API functionality.
type Service struct {
	registry  *bus.Registry
	relayMgr  RelayManager
	conns     ConnCounter
	startTime time.Time
}

// RelayManager defines the interface for relay management.
// This allows the API to work with relay manager without tight coupling.
type RelayManager interface {
	TaskCount() int
	Tasks() []relay.TaskInfo
	Restart(ctx context.Context, app, name string) error
}

// ConnCounter reports live RTMP connections.
type ConnCounter interface {
	ConnCount() int
}

// NewService creates a new API service. conns may be nil.
func NewService(registry *bus.Registry, relayMgr RelayManager, conns ConnCounter) *Service {
	return &Service{
		registry:  registry,
		relayMgr:  relayMgr,
		conns:     conns,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers API routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server", s.handleServer)
	mux.HandleFunc("/api/streams", s.handleStreams)
	mux.HandleFunc("/api/relay", s.handleRelay)
	mux.HandleFunc("/api/relay/restart", s.handleRelayRestart)
}
