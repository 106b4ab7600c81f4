// If you are AI: This file implements the RTMP command-layer connection shared by all roles.
// The reader goroutine runs handshake, parse and dispatch; roles only see decoded commands and media.

package rtmp

import (
	"context"
	"io"
	"net"
	"sync"

	"streamhub/internal/core/protocol/amf0"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is the command-level state of a connection.
type State int32

const (
	StateHandshake State = iota
	StateConnecting
	StateConnected
	StateStreamCreated
	StatePublishing
	StatePlaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStreamCreated:
		return "stream_created"
	case StatePublishing:
		return "publishing"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// role is the per-direction behaviour of a connection.
// Every method runs on the connection's reader goroutine except close.
type role interface {
	name() string
	// start runs right after the handshake.
	start(c *Conn) error
	onCommand(c *Conn, name string, cmd amf0.Array, msg *rtmpprotocol.Message) error
	onData(c *Conn, values amf0.Array, msg *rtmpprotocol.Message) error
	onMedia(c *Conn, msg *rtmpprotocol.Message) error
	// close releases role resources once the connection is done.
	close(c *Conn)
}

// Conn is one RTMP connection in the server, publisher or player role.
type Conn struct {
	id    uint64
	proto *rtmpprotocol.Conn
	role  role
	opts  Options
	log   zerolog.Logger

	mu    sync.Mutex
	state State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // background writers
}

func newConn(parent context.Context, id uint64, rw io.ReadWriter, client bool, r role, opts Options, logger zerolog.Logger) *Conn {
	ctx, cancel := context.WithCancel(parent)
	proto := rtmpprotocol.NewConn(rw, client)
	proto.SetReadTimeout(opts.ReadTimeout)
	proto.SetWriteTimeout(opts.ReadTimeout)
	c := &Conn{
		id:     id,
		proto:  proto,
		role:   r,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	lc := logger.With().Uint64("conn", id).Str("role", r.name())
	if remote := proto.RemoteAddr(); remote != "" {
		lc = lc.Str("remote", remote)
	}
	c.log = lc.Logger()
	return c
}

// ID returns the connection id.
func (c *Conn) ID() uint64 {
	return c.id
}

// State returns the current state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debug().Stringer("from", prev).Stringer("to", s).Msg("state change")
	}
}

// Serve runs the connection until the peer leaves or a fatal error occurs.
// It always closes the transport and releases role resources before returning.
func (c *Conn) Serve() error {
	defer c.shutdown()

	if err := c.proto.Handshake(); err != nil {
		return errors.Wrap(err, "handshake")
	}
	c.setState(StateConnecting)
	if err := c.role.start(c); err != nil {
		return err
	}
	return c.proto.ReadLoop(c.dispatch)
}

// Close aborts the connection from any goroutine.
func (c *Conn) Close() error {
	c.cancel()
	return c.proto.Close()
}

func (c *Conn) shutdown() {
	c.setState(StateClosed)
	c.cancel()
	_ = c.proto.Close()
	c.wg.Wait()
	c.role.close(c)
}

// goWriter runs fn as a background writer tied to the connection lifetime.
// A writer error closes the connection.
func (c *Conn) goWriter(fn func(ctx context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := fn(c.ctx); err != nil && c.ctx.Err() == nil {
			c.log.Debug().Err(err).Msg("writer stopped")
			_ = c.Close()
		}
	}()
}

func (c *Conn) dispatch(msg *rtmpprotocol.Message) error {
	switch msg.TypeID {
	case rtmpprotocol.MessageTypeCommandAMF0:
		values, ok, err := c.decodeBody(msg)
		if err != nil || !ok {
			return err
		}
		name, _ := values[0].(string)
		if name == "" {
			return nil
		}
		c.log.Debug().Str("command", name).Msg("command received")
		return c.role.onCommand(c, name, values, msg)

	case rtmpprotocol.MessageTypeDataAMF0:
		values, ok, err := c.decodeBody(msg)
		if err != nil || !ok {
			return err
		}
		return c.role.onData(c, values, msg)

	case rtmpprotocol.MessageTypeAudio, rtmpprotocol.MessageTypeVideo:
		return c.role.onMedia(c, msg)

	default:
		// AMF3, shared objects, aggregate and leftover control messages.
		return nil
	}
}

// decodeBody decodes an AMF0 body. A truncated body or an unsupported type
// marker drops just that message, since chunk framing is still intact.
// Malformed data is fatal for the connection.
func (c *Conn) decodeBody(msg *rtmpprotocol.Message) (amf0.Array, bool, error) {
	values, err := amf0.DecodeCommand(msg.Payload)
	switch {
	case err == nil:
		return values, len(values) > 0, nil
	case errors.Is(err, amf0.ErrShortBuffer), errors.Is(err, amf0.ErrUnexpectedType):
		c.log.Warn().Err(err).Uint8("type", msg.TypeID).Msg("amf0 message skipped")
		return nil, false, nil
	default:
		return nil, false, errors.Wrap(err, "decode amf0 body")
	}
}

// isClosedErr reports errors that mean the peer or we closed the socket.
func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
