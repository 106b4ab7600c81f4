// If you are AI: This file implements the chunk-level RTMP connection.
// Conn owns the handshake, the chunk parser, ack accounting and the single socket writer.

package rtmp

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"streamhub/internal/core/protocol/amf0"

	"github.com/pkg/errors"
)

const readBufferSize = 64 * 1024

// ackResetThreshold is where the received byte counter wraps to zero.
const ackResetThreshold = 0xF0000000

// MessageHandler receives every message the Conn does not consume itself.
type MessageHandler func(msg *Message) error

// Conn is an RTMP connection below the command layer.
// Reads happen on one goroutine; writes may come from any goroutine.
type Conn struct {
	rw          io.ReadWriter
	client      bool
	readTimeout time.Duration

	handshake *Handshake
	parser    *ChunkParser
	pending   []byte // handshake bytes that already belong to the chunk stream

	// inbound ack accounting, reader goroutine only
	inBytes   uint32
	inLastAck uint32
	ackWindow uint32

	wmu          sync.Mutex
	writeTimeout time.Duration
	bw           *bufio.Writer
	outChunkSize uint32
	scratch      []byte
}

// NewConn wraps rw. client selects the handshake direction.
func NewConn(rw io.ReadWriter, client bool) *Conn {
	c := &Conn{
		rw:           rw,
		client:       client,
		parser:       NewChunkParser(),
		outChunkSize: DefaultChunkSize,
	}
	c.bw = bufio.NewWriterSize(deadlineWriter{c}, 16*1024)
	if client {
		c.handshake = NewClientHandshake()
	} else {
		c.handshake = NewServerHandshake()
	}
	return c
}

// SetReadTimeout sets a per-read deadline when rw is a net.Conn. Zero disables it.
func (c *Conn) SetReadTimeout(d time.Duration) {
	c.readTimeout = d
}

// SetWriteTimeout bounds every socket write when rw is a net.Conn. Zero disables it.
// A peer that stops reading then fails the writer instead of blocking it forever.
func (c *Conn) SetWriteTimeout(d time.Duration) {
	c.wmu.Lock()
	c.writeTimeout = d
	c.wmu.Unlock()
}

// Handshake runs the handshake to completion, blocking on reads.
func (c *Conn) Handshake() error {
	if start := c.handshake.Start(); start != nil {
		if err := c.writeRaw(start); err != nil {
			return errors.Wrap(err, "write c0c1")
		}
	}

	buf := make([]byte, 0, HandshakeS0S1S2Size)
	tmp := make([]byte, 4096)
	for !c.handshake.Complete() {
		n, err := c.read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		for len(buf) > 0 && !c.handshake.Complete() {
			consumed, reply, ferr := c.handshake.Feed(buf)
			if ferr != nil {
				return ferr
			}
			if reply != nil {
				if werr := c.writeRaw(reply); werr != nil {
					return errors.Wrap(werr, "write handshake reply")
				}
			}
			if consumed == 0 {
				break
			}
			buf = buf[consumed:]
		}
		if err != nil && !c.handshake.Complete() {
			if err == io.EOF {
				return errors.Wrap(io.ErrUnexpectedEOF, c.handshake.State().String())
			}
			return err
		}
	}
	if len(buf) > 0 {
		c.pending = append([]byte(nil), buf...)
	}
	return nil
}

// ReadLoop parses chunks until the peer closes or an error occurs.
// Protocol control messages are applied here; everything else goes to handle.
// It returns nil on a clean EOF.
func (c *Conn) ReadLoop(handle MessageHandler) error {
	dispatch := func(msg *Message) error {
		consumed, err := c.handleControl(msg)
		if err != nil || consumed {
			return err
		}
		return handle(msg)
	}

	buf := make([]byte, 0, readBufferSize)
	if len(c.pending) > 0 {
		buf = append(buf, c.pending...)
		c.pending = nil
	}
	tmp := make([]byte, readBufferSize)
	for {
		if len(buf) > 0 {
			consumed, err := c.parser.Feed(buf, dispatch)
			if err != nil {
				return err
			}
			// Keep the unparsed tail at the front of buf.
			n := copy(buf, buf[consumed:])
			buf = buf[:n]
		}

		n, err := c.read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			if aerr := c.countReceived(uint32(n)); aerr != nil {
				return aerr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// handleControl applies protocol control messages. It reports whether msg was consumed.
func (c *Conn) handleControl(msg *Message) (bool, error) {
	switch msg.TypeID {
	case MessageTypeSetChunkSize:
		size, err := ParseSetChunkSize(msg.Payload)
		if err != nil {
			return true, err
		}
		return true, c.parser.SetChunkSize(size)

	case MessageTypeAbortMessage:
		csID, err := ParseUint32(msg.Payload)
		if err != nil {
			return true, nil
		}
		c.parser.Abort(csID)
		return true, nil

	case MessageTypeWinAckSize:
		if size, err := ParseUint32(msg.Payload); err == nil {
			c.ackWindow = size
		}
		return true, nil

	case MessageTypeAck, MessageTypeSetPeerBandwidth:
		return true, nil

	case MessageTypeUserCtrl:
		event, data, err := ParseUserControl(msg.Payload)
		if err != nil {
			return true, nil
		}
		if event == ControlPingRequest && len(data) >= 4 {
			ts, _ := ParseUint32(data)
			return true, c.WriteMessage(CSIDControl, NewMessage(MessageTypeUserCtrl, 0, 0, CreatePingResponse(ts)))
		}
		// Stream Begin and friends are informational for the command layer.
		return false, nil
	}
	return false, nil
}

// countReceived sends an Acknowledgement once the peer's window is filled.
func (c *Conn) countReceived(n uint32) error {
	c.inBytes += n
	if c.inBytes >= ackResetThreshold {
		c.inBytes = 0
		c.inLastAck = 0
	}
	if c.ackWindow == 0 || c.inBytes-c.inLastAck < c.ackWindow {
		return nil
	}
	c.inLastAck = c.inBytes
	return c.WriteMessage(CSIDControl, NewMessage(MessageTypeAck, 0, 0, CreateAck(c.inBytes)))
}

// WriteMessage writes msg on csID as one atomic chunk sequence and flushes.
func (c *Conn) WriteMessage(csID uint32, msg *Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.appendLocked(csID, msg); err != nil {
		return err
	}
	return c.flushLocked()
}

// WriteMessages writes a batch without interleaving writes from other goroutines.
func (c *Conn) WriteMessages(csIDs []uint32, msgs []*Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	for i, msg := range msgs {
		if err := c.appendLocked(csIDs[i], msg); err != nil {
			return err
		}
	}
	return c.flushLocked()
}

// WriteCommand encodes values as an AMF0 command on csID.
func (c *Conn) WriteCommand(csID, streamID uint32, values amf0.Array) error {
	body, err := amf0.EncodeCommand(values)
	if err != nil {
		return err
	}
	return c.WriteMessage(csID, NewMessage(MessageTypeCommandAMF0, 0, streamID, body))
}

// WriteData encodes values as an AMF0 data message on csID.
func (c *Conn) WriteData(csID, streamID, timestamp uint32, values amf0.Array) error {
	body, err := amf0.EncodeCommand(values)
	if err != nil {
		return err
	}
	return c.WriteMessage(csID, NewMessage(MessageTypeDataAMF0, timestamp, streamID, body))
}

// SetOutChunkSize announces size to the peer and uses it for every later write.
func (c *Conn) SetOutChunkSize(size uint32) error {
	if size < 1 || size > MaxChunkSize {
		return errors.Wrapf(ErrInvalidChunkSize, "%d", size)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	// The announcement itself still goes out at the old size.
	if err := c.appendLocked(CSIDControl, NewMessage(MessageTypeSetChunkSize, 0, 0, CreateSetChunkSize(size))); err != nil {
		return err
	}
	c.outChunkSize = size
	return c.flushLocked()
}

// OutChunkSize returns the outbound chunk size.
func (c *Conn) OutChunkSize() uint32 {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.outChunkSize
}

// InChunkSize returns the inbound chunk size. Reader goroutine only.
func (c *Conn) InChunkSize() uint32 {
	return c.parser.ChunkSize()
}

// SendWindowAckSize sends Window Acknowledgement Size.
func (c *Conn) SendWindowAckSize(size uint32) error {
	return c.WriteMessage(CSIDControl, NewMessage(MessageTypeWinAckSize, 0, 0, CreateWindowAckSize(size)))
}

// SendPeerBandwidth sends Set Peer Bandwidth with a dynamic limit.
func (c *Conn) SendPeerBandwidth(size uint32) error {
	return c.WriteMessage(CSIDControl, NewMessage(MessageTypeSetPeerBandwidth, 0, 0, CreateSetPeerBandwidth(size, LimitDynamic)))
}

// SendUserControl sends a User Control message.
func (c *Conn) SendUserControl(body []byte) error {
	return c.WriteMessage(CSIDControl, NewMessage(MessageTypeUserCtrl, 0, 0, body))
}

// Close closes the underlying transport if it is closable.
func (c *Conn) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// RemoteAddr returns the peer address when rw is a net.Conn.
func (c *Conn) RemoteAddr() string {
	if nc, ok := c.rw.(net.Conn); ok && nc.RemoteAddr() != nil {
		return nc.RemoteAddr().String()
	}
	return ""
}

func (c *Conn) appendLocked(csID uint32, msg *Message) error {
	var err error
	c.scratch, err = AppendChunks(c.scratch[:0], csID, msg, c.outChunkSize)
	if err != nil {
		return err
	}
	_, err = c.bw.Write(c.scratch)
	return err
}

func (c *Conn) flushLocked() error {
	return c.bw.Flush()
}

func (c *Conn) writeRaw(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.bw.Write(b); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) read(p []byte) (int, error) {
	if nc, ok := c.rw.(net.Conn); ok && c.readTimeout > 0 {
		if err := nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.rw.Read(p)
}

// deadlineWriter arms the write deadline before each flush to the socket.
// It runs under wmu, like every use of bw.
type deadlineWriter struct {
	c *Conn
}

func (w deadlineWriter) Write(p []byte) (int, error) {
	if nc, ok := w.c.rw.(net.Conn); ok && w.c.writeTimeout > 0 {
		if err := nc.SetWriteDeadline(time.Now().Add(w.c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return w.c.rw.Write(p)
}
