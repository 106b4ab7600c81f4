// If you are AI: This file implements Session, one published stream fanned out to many sinks.
// A session holds tokens, never sinks: every delivery resolves the token through the
// registry and prunes tokens whose sink has gone away.

package bus

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrBadName is returned when publishing to a session that already has a publisher.
	ErrBadName = errors.New("stream already has a publisher")
	// ErrStreamNotFound is returned when subscribing to a path with no session.
	ErrStreamNotFound = errors.New("stream not found")
)

type sinkResolver interface {
	Resolve(t Token) (Sink, bool)
}

// Session represents a live media stream instance.
// It allows exactly one publisher and any number of subscribers.
type Session struct {
	key     StreamKey
	sinks   sinkResolver
	created time.Time

	mu          sync.Mutex
	publisher   Token
	subscribers []Token
	metadata    *MediaMessage
	videoSeq    *MediaMessage
	audioSeq    *MediaMessage
	gop         *GOPCache
	publishedAt time.Time
	stats       SessionStats
}

// SessionStats counts media seen since the current publisher started.
type SessionStats struct {
	VideoFrames uint64 `json:"video_frames"`
	AudioFrames uint64 `json:"audio_frames"`
	Bytes       uint64 `json:"bytes"`
}

// SessionInfo is a point-in-time snapshot of a session.
type SessionInfo struct {
	Path        string       `json:"path"`
	Publishing  bool         `json:"publishing"`
	Subscribers int          `json:"subscribers"`
	HasVideo    bool         `json:"has_video"`
	HasAudio    bool         `json:"has_audio"`
	GOPLength   int          `json:"gop_length"`
	CreatedAt   time.Time    `json:"created_at"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	Stats       SessionStats `json:"stats"`
}

func newSession(key StreamKey, sinks sinkResolver, gopCacheLength int) *Session {
	return &Session{
		key:     key,
		sinks:   sinks,
		created: time.Now(),
		gop:     NewGOPCache(gopCacheLength),
	}
}

// Key returns the session's stream key.
func (s *Session) Key() StreamKey {
	return s.key
}

// SendMediaData is the publisher's single entry point. It updates the cached
// sequence headers, metadata and GOP, then fans the message out.
func (s *Session) SendMediaData(typ MessageType, timestamp uint32, payload []byte) {
	s.SendMessage(NewMediaMessage(typ, timestamp, payload))
}

// SendMessage is SendMediaData for an already classified message.
func (s *Session) SendMessage(msg *MediaMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case msg.Type == MessageTypeMetadata:
		s.metadata = msg
	case msg.SequenceHeader && msg.Type == MessageTypeVideo:
		s.videoSeq = msg
	case msg.SequenceHeader && msg.Type == MessageTypeAudio:
		s.audioSeq = msg
	default:
		s.gop.Push(msg)
	}
	switch msg.Type {
	case MessageTypeVideo:
		s.stats.VideoFrames++
	case MessageTypeAudio:
		s.stats.AudioFrames++
	}
	s.stats.Bytes += uint64(len(msg.Payload))

	s.eachSinkLocked(func(sink Sink) { sink.Deliver(msg) })
}

// eachSinkLocked calls fn for every live subscriber and prunes expired tokens.
func (s *Session) eachSinkLocked(fn func(Sink)) {
	live := s.subscribers[:0]
	for _, t := range s.subscribers {
		sink, ok := s.sinks.Resolve(t)
		if !ok {
			continue
		}
		live = append(live, t)
		fn(sink)
	}
	for i := len(live); i < len(s.subscribers); i++ {
		s.subscribers[i] = 0
	}
	s.subscribers = live
}

func (s *Session) attachPublisher(t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisher != 0 {
		if _, alive := s.sinks.Resolve(s.publisher); alive {
			return errors.Wrap(ErrBadName, s.key.String())
		}
	}
	s.publisher = t
	s.publishedAt = time.Now()
	s.stats = SessionStats{}
	s.metadata = nil
	s.videoSeq = nil
	s.audioSeq = nil
	s.gop.Reset()
	return nil
}

func (s *Session) detachPublisher(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisher != t || t == 0 {
		return false
	}
	s.publisher = 0
	s.publishedAt = time.Time{}
	s.metadata = nil
	s.videoSeq = nil
	s.audioSeq = nil
	s.gop.Reset()
	s.eachSinkLocked(func(sink Sink) { sink.Unpublished() })
	return true
}

// attachSubscriber registers t and replays metadata, sequence headers and the GOP to sink.
// Replay and registration share the lock so no live message can slip in between.
func (s *Session) attachSubscriber(t Token, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subscribers {
		if existing == t {
			return
		}
	}
	if s.publisher != 0 {
		for _, msg := range s.replayLocked() {
			sink.Deliver(msg)
		}
	}
	s.subscribers = append(s.subscribers, t)
}

func (s *Session) replayLocked() []*MediaMessage {
	out := make([]*MediaMessage, 0, 3+s.gop.Len())
	if s.metadata != nil {
		out = append(out, s.metadata)
	}
	if s.videoSeq != nil {
		out = append(out, s.videoSeq)
	}
	if s.audioSeq != nil {
		out = append(out, s.audioSeq)
	}
	return append(out, s.gop.Messages()...)
}

func (s *Session) detachSubscriber(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subscribers {
		if existing == t {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return true
		}
	}
	return false
}

// HasPublisher returns true if a publisher is currently attached.
func (s *Session) HasPublisher() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publisher != 0
}

// SubscriberCount returns the number of registered subscribers, including expired ones
// not yet pruned.
func (s *Session) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// ClientCount returns publisher plus subscribers.
func (s *Session) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientCountLocked()
}

func (s *Session) clientCountLocked() int {
	n := len(s.subscribers)
	if s.publisher != 0 {
		n++
	}
	return n
}

// IsEmpty returns true if the stream has no publisher and no subscribers.
func (s *Session) IsEmpty() bool {
	return s.ClientCount() == 0
}

// Tracks reports which sequence headers the current publisher has sent.
func (s *Session) Tracks() (hasAudio, hasVideo bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioSeq != nil, s.videoSeq != nil
}

// Info returns a snapshot for introspection.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{
		Path:        s.key.String(),
		Publishing:  s.publisher != 0,
		Subscribers: len(s.subscribers),
		HasVideo:    s.videoSeq != nil,
		HasAudio:    s.audioSeq != nil,
		GOPLength:   s.gop.Len(),
		CreatedAt:   s.created,
		Stats:       s.stats,
	}
	if s.publisher != 0 {
		at := s.publishedAt
		info.PublishedAt = &at
	}
	return info
}
