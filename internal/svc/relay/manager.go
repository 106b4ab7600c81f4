// If you are AI: This file implements the relay manager.
// Manages lifecycle of all relay tasks (start, stop, restart).

package relay

import (
	"context"
	"sync"

	"streamhub/internal/config"
	"streamhub/internal/core/bus"
	"streamhub/internal/svc/rtmp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrTaskNotFound is returned by Restart when no task relays the given stream.
var ErrTaskNotFound = errors.New("relay task not found")

// Manager manages relay tasks lifecycle.
type Manager struct {
	registry *bus.Registry
	opts     rtmp.Options
	entries  []*entry
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
}

type entry struct {
	cfg  config.RelayConfig
	task Task
	done chan struct{}
}

// NewManager creates a new relay manager. opts tunes the outbound RTMP connections.
func NewManager(registry *bus.Registry, opts rtmp.Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry: registry,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartTasks starts all relay tasks from configuration.
// Every entry is validated before any task starts.
func (m *Manager) StartTasks(cfg *config.Config) error {
	for i := range cfg.Relays {
		if err := cfg.Relays[i].Validate(); err != nil {
			return errors.Wrapf(err, "relay %d", i)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, relayCfg := range cfg.Relays {
		m.entries = append(m.entries, m.startLocked(relayCfg))
	}
	return nil
}

func (m *Manager) newTask(cfg config.RelayConfig) Task {
	if cfg.Mode == config.RelayModePull {
		return NewPullTask(m.registry, cfg, m.opts)
	}
	return NewPushTask(m.registry, cfg, m.opts)
}

func (m *Manager) startLocked(cfg config.RelayConfig) *entry {
	e := &entry{cfg: cfg, task: m.newTask(cfg), done: make(chan struct{})}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(e.done)
		if err := e.task.Start(m.ctx); err != nil {
			log.Error().Err(err).Str("relay", cfg.Mode).Str("remote", cfg.RemoteURL).Msg("relay task exited")
		}
	}()
	return e
}

// Restart stops every task relaying /app/name and starts a fresh one in its place.
// It waits for the old tasks to exit until ctx expires.
func (m *Manager) Restart(ctx context.Context, app, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return errors.New("relay manager stopped")
	}

	found := false
	for i, e := range m.entries {
		if e.cfg.App != app || e.cfg.Name != name {
			continue
		}
		found = true
		_ = e.task.Stop()
		select {
		case <-e.done:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for relay task to stop")
		}
		m.entries[i] = m.startLocked(e.cfg)
		log.Info().Str("relay", e.cfg.Mode).Str("path", bus.NewStreamKey(app, name).String()).Msg("relay restarted")
	}
	if !found {
		return errors.Wrap(ErrTaskNotFound, bus.NewStreamKey(app, name).String())
	}
	return nil
}

// Stop stops all relay tasks and waits for them until ctx expires.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	for _, e := range m.entries {
		_ = e.task.Stop()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "relay tasks did not stop")
	}
}

// TaskCount returns the number of configured relay tasks.
func (m *Manager) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Tasks returns a snapshot of every relay task.
func (m *Manager) Tasks() []TaskInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskInfo, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.task.Info())
	}
	return out
}
