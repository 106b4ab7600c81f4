// If you are AI: This file implements the FLV viewer shared by HTTP-FLV and WS-FLV.
// A viewer is a keyframe-gated bus subscriber whose messages are muxed into FLV bytes.

package httpflv

import (
	"context"

	"streamhub/internal/core/bus"
	"streamhub/internal/core/protocol/flv"

	"github.com/pkg/errors"
)

// DefaultQueue is the per-viewer queue length in messages.
const DefaultQueue = 1024

// Subscriber represents one FLV viewer attached to a session.
type Subscriber struct {
	registry *bus.Registry
	key      bus.StreamKey
	token    bus.Token
	sub      *bus.Subscriber
	mux      *flv.Muxer
}

// Subscribe attaches a viewer to key. It fails with bus.ErrStreamNotFound
// unless the session exists and has a publisher.
// Backpressure strategy: DropOldest, so a slow viewer never blocks the publisher.
func Subscribe(registry *bus.Registry, key bus.StreamKey, queue uint32) (*Subscriber, error) {
	session := registry.Get(key)
	if session == nil || !session.HasPublisher() {
		return nil, errors.Wrap(bus.ErrStreamNotFound, key.String())
	}
	if queue == 0 {
		queue = DefaultQueue
	}
	hasAudio, hasVideo := session.Tracks()
	if !hasAudio && !hasVideo {
		hasAudio, hasVideo = true, true
	}

	sub := bus.NewSubscriber(queue, bus.BackpressureDropOldest, true)
	token := registry.Register(sub)
	if _, err := registry.Subscribe(key, token); err != nil {
		registry.Unregister(token)
		return nil, err
	}
	return &Subscriber{
		registry: registry,
		key:      key,
		token:    token,
		sub:      sub,
		mux:      flv.NewMuxer(hasAudio, hasVideo),
	}, nil
}

// Run writes the FLV header, then one tag per message, until ctx is done,
// the publisher leaves or write fails. The header and each tag are separate write calls.
func (s *Subscriber) Run(ctx context.Context, write func([]byte) error) error {
	if err := write(s.mux.Header()); err != nil {
		return err
	}
	for {
		msg, err := s.sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrSubscriberClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msg.Type == bus.MessageTypeEndOfStream {
			return nil
		}
		tagType, ok := flv.TagTypeFor(byte(msg.Type))
		if !ok {
			continue
		}
		if err := write(s.mux.Tag(tagType, msg.Timestamp, msg.Payload)); err != nil {
			return err
		}
	}
}

// Pending returns the number of queued messages.
func (s *Subscriber) Pending() uint32 {
	return s.sub.Buffer().Len()
}

// Dropped returns how many messages were lost to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.sub.Dropped()
}

// Close detaches the viewer from its session.
func (s *Subscriber) Close() {
	s.registry.Unregister(s.token)
	s.registry.Unsubscribe(s.key, s.token)
	s.sub.Close()
}
