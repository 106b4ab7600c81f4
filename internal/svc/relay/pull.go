// If you are AI: This file implements pull relay functionality.
// Pull relay connects to a remote RTMP server, plays the stream and republishes it locally.

package relay

import (
	"context"

	"streamhub/internal/config"
	"streamhub/internal/core/bus"
	"streamhub/internal/svc/rtmp"

	"github.com/pkg/errors"
)

// errRemoteEnded ends an attempt when the remote publisher or connection goes away.
var errRemoteEnded = errors.New("remote stream ended")

// PullTask implements pull relay (connect to remote, play, republish locally).
type PullTask struct {
	*BaseTask
}

// NewPullTask creates a new pull relay task.
func NewPullTask(registry *bus.Registry, cfg config.RelayConfig, opts rtmp.Options) *PullTask {
	return &PullTask{
		BaseTask: NewBaseTask(registry, cfg, opts),
	}
}

// Start starts the pull relay task.
func (t *PullTask) Start(ctx context.Context) error {
	return t.run(ctx, t.attempt)
}

func (t *PullTask) attempt(ctx context.Context) error {
	client, err := rtmp.NewClient(t.RemoteURL(), t.opts)
	if err != nil {
		return err
	}
	openCtx, cancel := t.openContext(ctx)
	err = client.Open(openCtx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "open remote stream")
	}
	defer client.Close()

	key := t.Key()
	token := t.registry.Register(nil)
	session, err := t.registry.Publish(key, token)
	if err != nil {
		t.registry.Unregister(token)
		return errors.Wrap(err, "publish locally")
	}
	defer func() {
		t.registry.Unpublish(key, token)
		t.registry.Unregister(token)
	}()
	t.log.Info().Msg("pull relay started")

	for {
		msg, err := client.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, bus.ErrSubscriberClosed) {
				if cerr := client.Err(); cerr != nil {
					return errors.Wrap(cerr, errRemoteEnded.Error())
				}
				return errRemoteEnded
			}
			return err
		}
		if msg.Type == bus.MessageTypeEndOfStream {
			return errRemoteEnded
		}
		session.SendMessage(msg)
	}
}
