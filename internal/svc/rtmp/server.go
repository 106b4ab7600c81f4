// If you are AI: This file implements the RTMP server that accepts connections.
// Every accepted socket becomes a Conn in the server role sharing one registry.

package rtmp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"streamhub/internal/core/bus"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents an RTMP server.
type Server struct {
	registry *bus.Registry
	opts     Options
	listener net.Listener

	nextID atomic.Uint64

	mu     sync.Mutex
	conns  map[uint64]*Conn
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a new RTMP server.
func NewServer(registry *bus.Registry, opts Options) *Server {
	return &Server{
		registry: registry,
		opts:     opts.WithDefaults(),
		conns:    make(map[uint64]*Conn),
	}
}

// Listen starts listening on the specified address.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Close is called.
// Each connection is served on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("rtmp server not listening")
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	log.Info().Str("addr", s.listener.Addr().String()).Msg("rtmp server listening")
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		s.handle(ctx, nc)
	}
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = nc.Close()
		return
	}
	// Created under mu so a socket refused above never owns a context.
	id := s.nextID.Add(1)
	c := newConn(ctx, id, nc, false, newServerRole(s.registry), s.opts, log.Logger)
	s.conns[id] = c
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.conns, id)
			s.mu.Unlock()
		}()
		c.log.Debug().Msg("connection accepted")
		err := c.Serve()
		switch {
		case err == nil, isClosedErr(err):
			c.log.Debug().Msg("connection closed")
		case errors.Is(err, rtmpprotocol.ErrInvalidVersion):
			// Not an RTMP client; close quietly.
		default:
			c.log.Warn().Err(err).Msg("connection error")
		}
	}()
}

// ConnCount returns the number of live connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops accepting, closes every live connection and waits for them.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	s.wg.Wait()
	return err
}
