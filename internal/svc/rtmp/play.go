// If you are AI: This file implements the player writer loop.
// It is the only goroutine writing media to a player's socket.

package rtmp

import (
	"context"

	"streamhub/internal/core/bus"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"

	"github.com/pkg/errors"
)

// playLoop drains sub onto the connection until ctx ends or a write fails.
func playLoop(ctx context.Context, c *Conn, sub *bus.Subscriber, streamID uint32) error {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrSubscriberClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := writeMedia(c, msg, streamID); err != nil {
			return err
		}
	}
}

func writeMedia(c *Conn, msg *bus.MediaMessage, streamID uint32) error {
	switch msg.Type {
	case bus.MessageTypeEndOfStream:
		if err := c.proto.SendUserControl(rtmpprotocol.CreateStreamEOF(streamID)); err != nil {
			return err
		}
		return c.sendStatus(streamID, "status", CodePlayUnpublish, "Stream was unpublished.")
	case bus.MessageTypeVideo:
		return c.proto.WriteMessage(rtmpprotocol.CSIDVideo,
			rtmpprotocol.NewMessage(rtmpprotocol.MessageTypeVideo, msg.Timestamp, streamID, msg.Payload))
	case bus.MessageTypeAudio:
		return c.proto.WriteMessage(rtmpprotocol.CSIDAudio,
			rtmpprotocol.NewMessage(rtmpprotocol.MessageTypeAudio, msg.Timestamp, streamID, msg.Payload))
	case bus.MessageTypeMetadata:
		return c.proto.WriteMessage(rtmpprotocol.CSIDData,
			rtmpprotocol.NewMessage(rtmpprotocol.MessageTypeDataAMF0, msg.Timestamp, streamID, msg.Payload))
	}
	return nil
}
