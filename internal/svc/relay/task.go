// If you are AI: This file defines the relay task interface and base implementation.
// Tasks manage the lifecycle of pull or push relays, including optional reconnect.

package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"streamhub/internal/config"
	"streamhub/internal/core/bus"
	"streamhub/internal/svc/rtmp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultRetryDelay is the pause between reconnect attempts.
const defaultRetryDelay = 5 * time.Second

// Task represents a relay task (pull or push).
// Tasks run in their own goroutines and manage connection lifecycle.
type Task interface {
	// Start runs the relay until ctx is cancelled, Stop is called or an
	// attempt fails without reconnect.
	Start(ctx context.Context) error

	// Stop stops the relay task cleanly.
	Stop() error

	// IsRunning returns true if the task is currently running.
	IsRunning() bool

	// Info returns a snapshot for introspection.
	Info() TaskInfo
}

// TaskInfo describes a relay task.
type TaskInfo struct {
	App       string `json:"app"`
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	RemoteURL string `json:"remote_url"`
	Running   bool   `json:"running"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

// BaseTask provides common functionality for relay tasks.
type BaseTask struct {
	registry   *bus.Registry
	cfg        config.RelayConfig
	opts       rtmp.Options
	retryDelay time.Duration
	log        zerolog.Logger

	running atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	stopped   bool
	attempts  int
	lastError string
}

// NewBaseTask creates a new base task with common configuration.
func NewBaseTask(registry *bus.Registry, cfg config.RelayConfig, opts rtmp.Options) *BaseTask {
	opts = opts.WithDefaults()
	return &BaseTask{
		registry:   registry,
		cfg:        cfg,
		opts:       opts,
		retryDelay: defaultRetryDelay,
		log: log.With().
			Str("relay", cfg.Mode).
			Str("path", bus.NewStreamKey(cfg.App, cfg.Name).String()).
			Str("remote", cfg.RemoteURL).
			Logger(),
	}
}

// Key returns the local stream key.
func (t *BaseTask) Key() bus.StreamKey {
	return bus.NewStreamKey(t.cfg.App, t.cfg.Name)
}

// RemoteURL returns the remote RTMP URL.
func (t *BaseTask) RemoteURL() string {
	return t.cfg.RemoteURL
}

// Registry returns the bus registry.
func (t *BaseTask) Registry() *bus.Registry {
	return t.registry
}

// IsRunning returns true if the task is running.
func (t *BaseTask) IsRunning() bool {
	return t.running.Load()
}

// Info implements Task.
func (t *BaseTask) Info() TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskInfo{
		App:       t.cfg.App,
		Name:      t.cfg.Name,
		Mode:      t.cfg.Mode,
		RemoteURL: t.cfg.RemoteURL,
		Running:   t.running.Load(),
		Attempts:  t.attempts,
		LastError: t.lastError,
	}
}

// Stop signals the task to stop. It is safe to call before Start and more than once.
func (t *BaseTask) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// openContext bounds one Open call by the configured open timeout.
func (t *BaseTask) openContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.cfg.OpenTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.cfg.OpenTimeout)
}

// run calls attempt until it succeeds without reconnect, ctx ends or Stop is called.
func (t *BaseTask) run(ctx context.Context, attempt func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.cancel = cancel
	t.mu.Unlock()

	t.running.Store(true)
	defer t.running.Store(false)

	for {
		t.mu.Lock()
		t.attempts++
		t.mu.Unlock()

		err := attempt(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			t.mu.Lock()
			t.lastError = err.Error()
			t.mu.Unlock()
		}
		if !t.cfg.Reconnect {
			if err != nil {
				t.log.Error().Err(err).Msg("relay stopped")
			}
			return err
		}
		t.log.Warn().Err(err).Dur("retry_in", t.retryDelay).Msg("relay attempt ended")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.retryDelay):
		}
	}
}
