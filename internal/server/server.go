// If you are AI: This file implements the process-level server lifecycle and routing.
// It owns the stream registry and wires RTMP, HTTP-FLV, WS-FLV, relay, health and API onto it.

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"streamhub/internal/config"
	"streamhub/internal/core/bus"
	"streamhub/internal/svc/api"
	"streamhub/internal/svc/health"
	"streamhub/internal/svc/httpflv"
	"streamhub/internal/svc/relay"
	"streamhub/internal/svc/rtmp"
	"streamhub/internal/svc/wsflv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps every listener and their shared dependencies.
type Server struct {
	cfg      *config.Config
	registry *bus.Registry
	rtmp     *rtmp.Server
	relays   *relay.Manager

	controlHTTP *http.Server // /healthz and /api
	mediaHTTP   *http.Server // HTTP-FLV and WS-FLV

	controlLn net.Listener
	mediaLn   net.Listener
}

// RTMPOptions converts the rtmp config section into engine options.
func RTMPOptions(cfg config.RTMPConfig) rtmp.Options {
	return rtmp.Options{
		ChunkSize:     cfg.ChunkSize,
		WindowAckSize: cfg.WindowAckSize,
		PeerBandwidth: cfg.PeerBandwidth,
		ReadTimeout:   cfg.ReadTimeout,
		WriteQueue:    cfg.WriteQueue,
	}
}

// New creates a new server instance with the given configuration.
// Nothing listens until Listen is called.
func New(cfg *config.Config) *Server {
	registry := bus.NewRegistry(cfg.RTMP.GOPCache())
	opts := RTMPOptions(cfg.RTMP)
	rtmpSrv := rtmp.NewServer(registry, opts)
	relays := relay.NewManager(registry, opts)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		rtmp:     rtmpSrv,
		relays:   relays,
	}

	controlMux := http.NewServeMux()
	healthSvc := health.New()
	healthSvc.AddCheck("rtmp", func() error {
		if rtmpSrv.Addr() == nil {
			return errors.New("not listening")
		}
		return nil
	})
	healthSvc.RegisterRoutes(controlMux)
	api.NewService(registry, relays, rtmpSrv).RegisterRoutes(controlMux)

	mediaMux := http.NewServeMux()
	httpflv.NewHandler(registry, cfg.RTMP.WriteQueue).RegisterRoutes(mediaMux)
	wsflv.NewHandler(registry, cfg.RTMP.WriteQueue).RegisterRoutes(mediaMux)

	s.controlHTTP = &http.Server{Handler: controlMux, ReadHeaderTimeout: readHeaderTimeout}
	s.mediaHTTP = &http.Server{Handler: mediaMux, ReadHeaderTimeout: readHeaderTimeout}
	return s
}

// Registry returns the stream registry shared by every service.
func (s *Server) Registry() *bus.Registry {
	return s.registry
}

// Listen binds the ports named in the config.
func (s *Server) Listen() error {
	return s.ListenAddrs(
		fmt.Sprintf(":%d", s.cfg.Server.RTMPPort),
		fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		fmt.Sprintf(":%d", s.cfg.Server.HealthPort),
	)
}

// ListenAddrs binds the RTMP, media HTTP and control HTTP listeners.
func (s *Server) ListenAddrs(rtmpAddr, mediaAddr, controlAddr string) error {
	if err := s.rtmp.Listen(rtmpAddr); err != nil {
		return err
	}
	var err error
	if s.mediaLn, err = net.Listen("tcp", mediaAddr); err != nil {
		_ = s.rtmp.Close()
		return errors.Wrapf(err, "listen %s", mediaAddr)
	}
	if s.controlLn, err = net.Listen("tcp", controlAddr); err != nil {
		_ = s.rtmp.Close()
		_ = s.mediaLn.Close()
		return errors.Wrapf(err, "listen %s", controlAddr)
	}
	return nil
}

// Addrs returns the bound RTMP, media and control addresses.
func (s *Server) Addrs() (rtmpAddr, mediaAddr, controlAddr net.Addr) {
	rtmpAddr = s.rtmp.Addr()
	if s.mediaLn != nil {
		mediaAddr = s.mediaLn.Addr()
	}
	if s.controlLn != nil {
		controlAddr = s.controlLn.Addr()
	}
	return
}

// Start serves every listener and starts the relay tasks.
// It blocks until ctx is cancelled or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s.controlLn == nil || s.mediaLn == nil {
		return errors.New("server not listening")
	}
	if err := s.relays.StartTasks(s.cfg); err != nil {
		return err
	}

	errCh := make(chan error, 3)
	go func() { errCh <- s.rtmp.Serve(ctx) }()
	go func() {
		log.Info().Str("addr", s.mediaLn.Addr().String()).Msg("media http listening")
		errCh <- serveHTTP(s.mediaHTTP, s.mediaLn)
	}()
	go func() {
		log.Info().Str("addr", s.controlLn.Addr().String()).Msg("control http listening")
		errCh <- serveHTTP(s.controlHTTP, s.controlLn)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		return errors.New("listener stopped unexpectedly")
	}
}

func serveHTTP(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http serve")
	}
	return nil
}

// Shutdown stops relays, closes RTMP connections and drains HTTP servers.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(s.relays.Stop(ctx))
	keep(s.rtmp.Close())
	// Long-lived FLV responses never go idle; Close ends them.
	keep(s.mediaHTTP.Close())
	keep(s.controlHTTP.Shutdown(ctx))
	return firstErr
}

// ShutdownWithTimeout stops the server with a fixed 5-second timeout.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
