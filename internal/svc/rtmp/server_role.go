// If you are AI: This file implements the server role: connect, createStream, publish, play, deleteStream.
// Protocol rejections go back to the peer as status objects and keep the connection open.

package rtmp

import (
	"context"

	"streamhub/internal/core/bus"
	"streamhub/internal/core/protocol/amf0"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"

	"github.com/pkg/errors"
)

// errConnectRejected closes a connection whose connect was refused.
var errConnectRejected = errors.New("connect rejected")

// serverRole is an accepted connection. It publishes into or plays from one session.
type serverRole struct {
	registry *bus.Registry
	app      string

	// publishing
	pubKey   bus.StreamKey
	pubToken bus.Token
	session  *bus.Session

	// playing
	playKey   bus.StreamKey
	playToken bus.Token
	player    *bus.Subscriber
	stopPlay  context.CancelFunc
	playDone  chan struct{}
}

func newServerRole(registry *bus.Registry) *serverRole {
	return &serverRole{registry: registry}
}

func (r *serverRole) name() string { return "server" }

func (r *serverRole) start(c *Conn) error { return nil }

func (r *serverRole) onCommand(c *Conn, name string, cmd amf0.Array, msg *rtmpprotocol.Message) error {
	txn := 0.0
	if len(cmd) > 1 {
		txn = number(cmd[1])
	}
	switch name {
	case "connect":
		return r.handleConnect(c, txn, cmd)
	case "releaseStream", "FCPublish":
		return c.sendResult(txn, nil)
	case "createStream":
		c.setState(StateStreamCreated)
		return c.sendResult(txn, nil, float64(mediaStreamID))
	case "publish":
		return r.handlePublish(c, cmd, msg.StreamID)
	case "play":
		return r.handlePlay(c, cmd, msg.StreamID)
	case "deleteStream", "closeStream", "FCUnpublish":
		r.stopPublishing(c)
		r.stopPlaying(c)
		if c.State() != StateClosed {
			c.setState(StateConnected)
		}
		return nil
	default:
		// getStreamLength, _checkbw and anything newer.
		c.log.Debug().Str("command", name).Msg("command ignored")
		return nil
	}
}

func (r *serverRole) handleConnect(c *Conn, txn float64, cmd amf0.Array) error {
	var obj amf0.Object
	if len(cmd) > 2 {
		obj = amf0.AsObject(cmd[2])
	}
	app := obj.String("app")
	if app == "" {
		c.log.Warn().Msg("connect without app")
		_ = c.sendError(txn, statusObject("error", CodeConnectRejected, "Missing app."))
		return errConnectRejected
	}
	r.app = app
	c.log = c.log.With().Str("app", app).Logger()

	if err := c.proto.SendWindowAckSize(c.opts.WindowAckSize); err != nil {
		return err
	}
	if err := c.proto.SendPeerBandwidth(c.opts.PeerBandwidth); err != nil {
		return err
	}
	if err := c.proto.SetOutChunkSize(c.opts.ChunkSize); err != nil {
		return err
	}
	info := statusObject("status", CodeConnectSuccess, "Connection succeeded.")
	info["objectEncoding"] = float64(0)
	if err := c.sendResult(txn, amf0.Object{
		"fmsVer":       "FMS/3,0,1,123",
		"capabilities": float64(31),
	}, info); err != nil {
		return err
	}
	c.setState(StateConnected)
	c.log.Info().Msg("client connected")
	return nil
}

func (r *serverRole) handlePublish(c *Conn, cmd amf0.Array, streamID uint32) error {
	name := streamName(cmd)
	if r.app == "" || name == "" || r.pubToken != 0 {
		return c.sendStatus(streamID, "error", CodePublishBadName, "Invalid stream name.")
	}
	key := bus.NewStreamKey(r.app, name)
	token := r.registry.Register(nil)
	session, err := r.registry.Publish(key, token)
	if err != nil {
		r.registry.Unregister(token)
		c.log.Warn().Str("path", key.String()).Err(err).Msg("publish rejected")
		return c.sendStatus(streamID, "error", CodePublishBadName, "Stream already publishing.")
	}
	r.pubKey, r.pubToken, r.session = key, token, session

	if err := c.proto.SendUserControl(rtmpprotocol.CreateStreamBegin(streamID)); err != nil {
		return err
	}
	c.setState(StatePublishing)
	c.log.Info().Str("path", key.String()).Msg("publish started")
	return c.sendStatus(streamID, "status", CodePublishStart, key.String()+" is now published.")
}

func (r *serverRole) handlePlay(c *Conn, cmd amf0.Array, streamID uint32) error {
	name := streamName(cmd)
	if r.app == "" || name == "" || r.playToken != 0 {
		return c.sendStatus(streamID, "error", CodePlayStreamNotFound, "Invalid stream name.")
	}
	key := bus.NewStreamKey(r.app, name)

	sub := bus.NewSubscriber(c.opts.WriteQueue, bus.BackpressureDropOldest, true)
	token := r.registry.Register(sub)
	// Replay lands in the queue; the writer starts only after the status replies.
	if _, err := r.registry.Subscribe(key, token); err != nil {
		r.registry.Unregister(token)
		c.log.Info().Str("path", key.String()).Err(err).Msg("play rejected")
		return c.sendStatus(streamID, "error", CodePlayStreamNotFound, key.String()+" not found.")
	}
	r.playKey, r.playToken, r.player = key, token, sub

	if err := c.proto.SendUserControl(rtmpprotocol.CreateStreamIsRecorded(streamID)); err != nil {
		return err
	}
	if err := c.proto.SendUserControl(rtmpprotocol.CreateStreamBegin(streamID)); err != nil {
		return err
	}
	if err := c.sendStatus(streamID, "status", CodePlayReset, "Playing and resetting "+key.String()+"."); err != nil {
		return err
	}
	if err := c.sendStatus(streamID, "status", CodePlayStart, "Started playing "+key.String()+"."); err != nil {
		return err
	}
	if err := c.proto.WriteData(rtmpprotocol.CSIDData, streamID, 0, amf0.Array{"|RtmpSampleAccess", true, true}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	r.stopPlay, r.playDone = cancel, done
	c.setState(StatePlaying)
	c.log.Info().Str("path", key.String()).Msg("play started")
	c.goWriter(func(context.Context) error {
		defer close(done)
		return playLoop(ctx, c, sub, streamID)
	})
	return nil
}

func (r *serverRole) onData(c *Conn, values amf0.Array, msg *rtmpprotocol.Message) error {
	if r.session == nil {
		return nil
	}
	name, _ := values[0].(string)
	if name == "@setDataFrame" {
		values = values[1:]
		if len(values) == 0 {
			return nil
		}
		name, _ = values[0].(string)
	}
	if name != "onMetaData" {
		return nil
	}
	body, err := amf0.EncodeCommand(values)
	if err != nil {
		c.log.Warn().Err(err).Msg("metadata re-encode failed")
		return nil
	}
	r.session.SendMediaData(bus.MessageTypeMetadata, msg.Timestamp, body)
	return nil
}

func (r *serverRole) onMedia(c *Conn, msg *rtmpprotocol.Message) error {
	if r.session == nil {
		return nil
	}
	r.session.SendMediaData(bus.MessageType(msg.TypeID), msg.Timestamp, msg.Payload)
	return nil
}

func (r *serverRole) close(c *Conn) {
	r.stopPublishing(c)
	r.stopPlaying(c)
}

func (r *serverRole) stopPublishing(c *Conn) {
	if r.pubToken == 0 {
		return
	}
	r.registry.Unpublish(r.pubKey, r.pubToken)
	r.registry.Unregister(r.pubToken)
	c.log.Info().Str("path", r.pubKey.String()).Msg("publish stopped")
	r.pubToken, r.session = 0, nil
}

func (r *serverRole) stopPlaying(c *Conn) {
	if r.playToken == 0 {
		return
	}
	r.registry.Unregister(r.playToken)
	r.registry.Unsubscribe(r.playKey, r.playToken)
	r.player.Close()
	r.stopPlay()
	<-r.playDone
	c.log.Info().Str("path", r.playKey.String()).Msg("play stopped")
	r.playToken, r.player = 0, nil
}
