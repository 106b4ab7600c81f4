// If you are AI: This file implements the Registry for stream lifecycle and sink tokens.
// Lock order: sessionsMu, then a session's mu, then tokensMu.

package bus

import (
	"sort"
	"sync"
)

// Token identifies a registered sink. Zero is never issued.
type Token uint64

// Registry maps stream keys to sessions and tokens to sinks.
// Sessions are created lazily and removed once their last client leaves.
type Registry struct {
	gopCacheLength int

	sessionsMu sync.Mutex
	sessions   map[StreamKey]*Session

	tokensMu  sync.RWMutex
	sinks     map[Token]Sink
	nextToken Token
}

// NewRegistry creates a registry whose sessions cache up to gopCacheLength GOP messages.
func NewRegistry(gopCacheLength int) *Registry {
	return &Registry{
		gopCacheLength: gopCacheLength,
		sessions:       make(map[StreamKey]*Session),
		sinks:          make(map[Token]Sink),
	}
}

// Register issues a token for sink. A nil sink registers a publisher-only client.
func (r *Registry) Register(sink Sink) Token {
	r.tokensMu.Lock()
	defer r.tokensMu.Unlock()
	r.nextToken++
	r.sinks[r.nextToken] = sink
	return r.nextToken
}

// Unregister expires t. Sessions drop it on their next use.
func (r *Registry) Unregister(t Token) {
	r.tokensMu.Lock()
	defer r.tokensMu.Unlock()
	delete(r.sinks, t)
}

// Resolve returns the sink behind t, or false once t has expired.
func (r *Registry) Resolve(t Token) (Sink, bool) {
	r.tokensMu.RLock()
	defer r.tokensMu.RUnlock()
	sink, ok := r.sinks[t]
	return sink, ok
}

// GetOrCreate retrieves an existing session or creates a new one.
// Returns the session and true if it was newly created.
func (r *Registry) GetOrCreate(key StreamKey) (*Session, bool) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	return r.getOrCreateLocked(key)
}

func (r *Registry) getOrCreateLocked(key StreamKey) (*Session, bool) {
	if s, ok := r.sessions[key]; ok {
		return s, false
	}
	s := newSession(key, r, r.gopCacheLength)
	r.sessions[key] = s
	return s, true
}

// Get retrieves a session by key, returning nil if not found.
func (r *Registry) Get(key StreamKey) *Session {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	return r.sessions[key]
}

// Publish makes t the publisher of key, creating the session if needed.
// It fails with ErrBadName while another publisher is live.
func (r *Registry) Publish(key StreamKey, t Token) (*Session, error) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, created := r.getOrCreateLocked(key)
	if err := s.attachPublisher(t); err != nil {
		if created {
			delete(r.sessions, key)
		}
		return nil, err
	}
	return s, nil
}

// Subscribe adds t to an existing session and replays its cached state.
func (r *Registry) Subscribe(key StreamKey, t Token) (*Session, error) {
	sink, ok := r.Resolve(t)
	if !ok || sink == nil {
		return nil, ErrSubscriberClosed
	}
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return nil, ErrStreamNotFound
	}
	s.attachSubscriber(t, sink)
	return s, nil
}

// Unpublish detaches publisher t and removes the session if it became empty.
func (r *Registry) Unpublish(key StreamKey, t Token) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return
	}
	s.detachPublisher(t)
	r.removeIfEmptyLocked(key, s)
}

// Unsubscribe detaches subscriber t and removes the session if it became empty.
func (r *Registry) Unsubscribe(key StreamKey, t Token) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return
	}
	s.detachSubscriber(t)
	r.removeIfEmptyLocked(key, s)
}

// RemoveIfEmpty removes a session only if it has no publisher and no subscribers.
func (r *Registry) RemoveIfEmpty(key StreamKey) bool {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	return r.removeIfEmptyLocked(key, s)
}

func (r *Registry) removeIfEmptyLocked(key StreamKey, s *Session) bool {
	if !s.IsEmpty() {
		return false
	}
	delete(r.sessions, key)
	return true
}

// Count returns the number of sessions in the registry.
func (r *Registry) Count() int {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	return len(r.sessions)
}

// List returns all stream keys in path order.
func (r *Registry) List() []StreamKey {
	r.sessionsMu.Lock()
	keys := make([]StreamKey, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	r.sessionsMu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Sessions returns a snapshot of every session in path order.
func (r *Registry) Sessions() []SessionInfo {
	keys := r.List()
	out := make([]SessionInfo, 0, len(keys))
	for _, key := range keys {
		if s := r.Get(key); s != nil {
			out = append(out, s.Info())
		}
	}
	return out
}
