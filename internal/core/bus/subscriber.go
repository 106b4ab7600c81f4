// If you are AI: This file defines the Sink contract and the queued Subscriber sink.
// Sessions deliver into sinks under their lock; sinks must never block.

package bus

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mock_bus/mock_sink.go -package=mock_bus streamhub/internal/core/bus Sink

// ErrSubscriberClosed is returned by Next after Close.
var ErrSubscriberClosed = errors.New("subscriber closed")

// Sink consumes a session's media. Both methods are called with the session lock held.
type Sink interface {
	// Deliver hands over one message. It must not block or modify msg.
	Deliver(msg *MediaMessage)
	// Unpublished reports that the publisher left.
	Unpublished()
}

// Subscriber is a Sink that queues messages for a single writer goroutine.
// With keyframe gating, video is held back until the first keyframe so a
// viewer never starts mid-GOP. Sequence headers, metadata and audio pass.
type Subscriber struct {
	buffer       *RingBuffer
	waitKeyframe bool
	sawKeyframe  bool // session lock

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSubscriber creates a new subscriber with the specified buffer capacity and strategy.
func NewSubscriber(capacity uint32, strategy BackpressureStrategy, waitKeyframe bool) *Subscriber {
	return &Subscriber{
		buffer:       NewRingBuffer(capacity, strategy),
		waitKeyframe: waitKeyframe,
		closed:       make(chan struct{}),
	}
}

// Deliver implements Sink.
func (s *Subscriber) Deliver(msg *MediaMessage) {
	if s.waitKeyframe && !s.sawKeyframe && msg.Type == MessageTypeVideo && !msg.SequenceHeader {
		if !msg.Keyframe {
			return
		}
		s.sawKeyframe = true
	}
	s.buffer.Write(msg)
}

// Unpublished implements Sink. The next keyframe gates video again.
func (s *Subscriber) Unpublished() {
	s.sawKeyframe = false
	s.buffer.Write(&MediaMessage{Type: MessageTypeEndOfStream})
}

// Buffer returns the subscriber's ring buffer.
func (s *Subscriber) Buffer() *RingBuffer {
	return s.buffer
}

// Next blocks until a message is queued, ctx is done, or Close is called.
func (s *Subscriber) Next(ctx context.Context) (*MediaMessage, error) {
	for {
		if msg, ok := s.buffer.Read(); ok {
			return msg, nil
		}
		select {
		case <-s.buffer.Notify():
		case <-s.closed:
			return nil, ErrSubscriberClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close wakes Next. Messages still queued are discarded by the caller.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Dropped returns the number of messages dropped due to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.buffer.Dropped()
}
