// If you are AI: This file implements push relay functionality.
// Push relay subscribes to a local stream and publishes it to a remote RTMP server.

package relay

import (
	"context"
	"time"

	"streamhub/internal/config"
	"streamhub/internal/core/bus"
	"streamhub/internal/core/protocol/flv"
	"streamhub/internal/svc/rtmp"

	"github.com/pkg/errors"
)

// localPollInterval is how often a push relay checks for a local publisher.
const localPollInterval = 250 * time.Millisecond

// errLocalEnded ends an attempt when the local publisher leaves.
var errLocalEnded = errors.New("local stream ended")

// PushTask implements push relay (subscribe local, publish remote).
type PushTask struct {
	*BaseTask
}

// NewPushTask creates a new push relay task.
func NewPushTask(registry *bus.Registry, cfg config.RelayConfig, opts rtmp.Options) *PushTask {
	return &PushTask{
		BaseTask: NewBaseTask(registry, cfg, opts),
	}
}

// Start starts the push relay task.
func (t *PushTask) Start(ctx context.Context) error {
	return t.run(ctx, t.attempt)
}

// waitForPublisher blocks until the local stream has a publisher.
func (t *PushTask) waitForPublisher(ctx context.Context) error {
	ticker := time.NewTicker(localPollInterval)
	defer ticker.Stop()
	for {
		if s := t.registry.Get(t.Key()); s != nil && s.HasPublisher() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *PushTask) attempt(ctx context.Context) error {
	if err := t.waitForPublisher(ctx); err != nil {
		return err
	}

	// Use drop oldest to prevent blocking local publisher
	key := t.Key()
	sub := bus.NewSubscriber(t.opts.WriteQueue, bus.BackpressureDropOldest, true)
	token := t.registry.Register(sub)
	defer func() {
		t.registry.Unregister(token)
		t.registry.Unsubscribe(key, token)
		sub.Close()
	}()
	if _, err := t.registry.Subscribe(key, token); err != nil {
		return errors.Wrap(err, "subscribe locally")
	}

	pub, err := rtmp.NewPublisher(t.RemoteURL(), t.opts)
	if err != nil {
		return err
	}
	openCtx, cancel := t.openContext(ctx)
	err = pub.Open(openCtx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "open remote stream")
	}
	defer pub.Close()
	t.log.Info().Msg("push relay started")

	// Wake Next when the remote side drops the connection.
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-pub.Done():
			stop()
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			select {
			case <-pub.Done():
				if perr := pub.Err(); perr != nil {
					return errors.Wrap(perr, "remote connection closed")
				}
				return errors.New("remote connection closed")
			default:
			}
			return nil
		}
		if msg.Type == bus.MessageTypeEndOfStream {
			return errLocalEnded
		}
		tagType, ok := flv.TagTypeFor(byte(msg.Type))
		if !ok {
			continue
		}
		if err := pub.WriteTag(flv.NewTag(tagType, msg.Timestamp, msg.Payload)); err != nil {
			return errors.Wrap(err, "write remote")
		}
	}
}
