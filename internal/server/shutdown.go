// If you are AI: This file handles graceful shutdown orchestration for the server process.

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// ShutdownHandler manages graceful shutdown on SIGINT or SIGTERM.
type ShutdownHandler struct {
	server *Server
	ctx    context.Context
	cancel context.CancelFunc
}

// NewShutdownHandler creates a handler that listens for termination signals.
// The returned Context is cancelled when a signal arrives.
func NewShutdownHandler(ctx context.Context, server *Server) *ShutdownHandler {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return &ShutdownHandler{
		server: server,
		ctx:    sigCtx,
		cancel: cancel,
	}
}

// Wait blocks until a termination signal is received or the parent context
// ends, then shuts the server down.
func (h *ShutdownHandler) Wait() error {
	<-h.ctx.Done()
	h.cancel()
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// Context returns the shutdown context that is cancelled when shutdown begins.
func (h *ShutdownHandler) Context() context.Context {
	return h.ctx
}
