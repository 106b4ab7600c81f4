// If you are AI: This file implements the outbound command flow shared by the publisher and player roles.
// connect -> createStream -> publish|play; the first terminal status is reported once on a result channel.

package rtmp

import (
	"strings"
	"sync"

	"streamhub/internal/core/bus"
	"streamhub/internal/core/protocol/amf0"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"

	"github.com/pkg/errors"
)

var (
	// ErrRejected is wrapped with the status code the server refused with.
	ErrRejected = errors.New("rejected by server")
	// ErrConnectionClosed is reported when the socket ends before the stream starts.
	ErrConnectionClosed = errors.New("connection closed before stream started")
)

const (
	txnConnect       = 1
	txnReleaseStream = 2
	txnFCPublish     = 3
	txnCreateStream  = 4
)

const flashVer = "FMLE/3.0 (compatible; streamhub)"

// clientFlow is the state both outbound roles share.
type clientFlow struct {
	target URL

	once   sync.Once
	result chan error

	mu       sync.Mutex
	streamID uint32
	started  bool
}

func newClientFlow(target URL) clientFlow {
	return clientFlow{target: target, result: make(chan error, 1)}
}

// finish reports the outcome of Open exactly once.
func (f *clientFlow) finish(err error) {
	f.once.Do(func() {
		if err == nil {
			f.mu.Lock()
			f.started = true
			f.mu.Unlock()
		}
		f.result <- err
	})
}

func (f *clientFlow) isStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// StreamID returns the id createStream handed out, or zero before that.
func (f *clientFlow) StreamID() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamID
}

func (f *clientFlow) sendConnect(c *Conn) error {
	return c.proto.WriteCommand(rtmpprotocol.CSIDCommand, 0, amf0.Array{
		"connect", float64(txnConnect), amf0.Object{
			"app":            f.target.App,
			"type":           "nonprivate",
			"flashVer":       flashVer,
			"tcUrl":          f.target.TcURL(),
			"fpad":           false,
			"capabilities":   float64(15),
			"audioCodecs":    float64(3191),
			"videoCodecs":    float64(252),
			"videoFunction":  float64(1),
			"objectEncoding": float64(0),
		},
	})
}

func (f *clientFlow) sendCommand(c *Conn, streamID uint32, name string, txn float64, args ...amf0.Value) error {
	cmd := append(amf0.Array{name, txn, nil}, args...)
	return c.proto.WriteCommand(rtmpprotocol.CSIDCommand, streamID, cmd)
}

// onCommand drives the shared flow. beforeCreate runs after a successful connect,
// begin runs once createStream answered, expectStart is the status code that completes Open.
func (f *clientFlow) onCommand(c *Conn, name string, cmd amf0.Array,
	beforeCreate func() error, begin func(streamID uint32) error, expectStart string) error {
	switch name {
	case "_result":
		txn := 0.0
		if len(cmd) > 1 {
			txn = number(cmd[1])
		}
		switch txn {
		case txnConnect:
			_, code := statusCode(cmd)
			if !isSuccessCode(code) {
				return f.reject(c, code)
			}
			c.setState(StateConnected)
			c.log.Debug().Msg("connected")
			if beforeCreate != nil {
				if err := beforeCreate(); err != nil {
					return err
				}
			}
			return f.sendCommand(c, 0, "createStream", txnCreateStream)
		case txnCreateStream:
			id := uint32(0)
			if len(cmd) > 3 {
				id = uint32(number(cmd[3]))
			}
			if id == 0 {
				f.finish(errors.Wrap(ErrRejected, "createStream returned no stream id"))
				return nil
			}
			f.mu.Lock()
			f.streamID = id
			f.mu.Unlock()
			c.setState(StateStreamCreated)
			return begin(id)
		}
		return nil

	case "_error":
		_, code := statusCode(cmd)
		return f.reject(c, code)

	case "onStatus":
		level, code := statusCode(cmd)
		switch {
		case level == "error" || strings.HasSuffix(code, ".Failed") ||
			strings.HasSuffix(code, ".BadName") || strings.HasSuffix(code, ".StreamNotFound") ||
			strings.HasSuffix(code, ".Rejected"):
			return f.reject(c, code)
		case code == expectStart:
			c.log.Info().Str("code", code).Msg("stream started")
			f.finish(nil)
		}
		return nil

	default:
		// onBWDone, _checkbw and friends.
		return nil
	}
}

// reject fails Open, or only logs once the stream is already running.
func (f *clientFlow) reject(c *Conn, code string) error {
	if code == "" {
		code = "unknown"
	}
	c.log.Warn().Str("code", code).Msg("server rejected request")
	if f.isStarted() {
		return nil
	}
	f.finish(errors.Wrap(ErrRejected, code))
	return nil
}

// publisherRole pushes media to a remote server.
type publisherRole struct {
	clientFlow
}

func newPublisherRole(target URL) *publisherRole {
	return &publisherRole{clientFlow: newClientFlow(target)}
}

func (r *publisherRole) name() string { return "publisher" }

func (r *publisherRole) start(c *Conn) error { return r.sendConnect(c) }

func (r *publisherRole) onCommand(c *Conn, name string, cmd amf0.Array, _ *rtmpprotocol.Message) error {
	return r.clientFlow.onCommand(c, name, cmd,
		func() error {
			if err := r.sendCommand(c, 0, "releaseStream", txnReleaseStream, r.target.Name); err != nil {
				return err
			}
			return r.sendCommand(c, 0, "FCPublish", txnFCPublish, r.target.Name)
		},
		func(streamID uint32) error {
			c.setState(StatePublishing)
			return r.sendCommand(c, streamID, "publish", 0, r.target.Name, "live")
		},
		CodePublishStart)
}

func (r *publisherRole) onData(*Conn, amf0.Array, *rtmpprotocol.Message) error { return nil }

func (r *publisherRole) onMedia(*Conn, *rtmpprotocol.Message) error { return nil }

func (r *publisherRole) close(*Conn) { r.finish(ErrConnectionClosed) }

// playerRole pulls media from a remote server into a local sink.
type playerRole struct {
	clientFlow
	sink   bus.Sink
	buffer uint32 // SetBufferLength in milliseconds
}

func newPlayerRole(target URL, sink bus.Sink) *playerRole {
	return &playerRole{clientFlow: newClientFlow(target), sink: sink, buffer: 1000}
}

func (r *playerRole) name() string { return "player" }

func (r *playerRole) start(c *Conn) error { return r.sendConnect(c) }

func (r *playerRole) onCommand(c *Conn, name string, cmd amf0.Array, _ *rtmpprotocol.Message) error {
	if name == "onStatus" {
		if _, code := statusCode(cmd); code == CodePlayUnpublish {
			r.sink.Unpublished()
			return nil
		}
	}
	return r.clientFlow.onCommand(c, name, cmd, nil,
		func(streamID uint32) error {
			c.setState(StatePlaying)
			if err := r.sendCommand(c, streamID, "play", 0, r.target.Name, float64(-2)); err != nil {
				return err
			}
			return c.proto.SendUserControl(rtmpprotocol.CreateSetBufferLength(streamID, r.buffer))
		},
		CodePlayStart)
}

func (r *playerRole) onData(c *Conn, values amf0.Array, msg *rtmpprotocol.Message) error {
	name, _ := values[0].(string)
	if name == "@setDataFrame" && len(values) > 1 {
		values = values[1:]
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
	r.sink.Deliver(bus.NewMediaMessage(bus.MessageTypeMetadata, msg.Timestamp, body))
	return nil
}

func (r *playerRole) onMedia(c *Conn, msg *rtmpprotocol.Message) error {
	r.sink.Deliver(bus.NewMediaMessage(bus.MessageType(msg.TypeID), msg.Timestamp, msg.Payload))
	return nil
}

func (r *playerRole) close(*Conn) { r.finish(ErrConnectionClosed) }
