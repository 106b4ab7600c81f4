// If you are AI: This file implements the outbound Publisher driver.
// Open blocks until the server answers publish; writers then push FLV-packed media.

package rtmp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"streamhub/internal/core/protocol/amf0"
	"streamhub/internal/core/protocol/flv"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotOpen is returned by writers before Open succeeded or after Close.
var ErrNotOpen = errors.New("rtmp stream not open")

// Outbound connection ids count down from the top of the range.
var outboundID atomic.Uint64

func nextOutboundID() uint64 {
	return ^uint64(0) - outboundID.Add(1) + 1
}

// dialed is the part of an outbound connection both drivers share.
type dialed struct {
	target URL
	opts   Options

	mu   sync.Mutex
	conn *Conn
	done chan struct{}
	err  error // Serve result, valid after done
}

// open dials, starts the connection with r and waits for r's result or ctx.
func (d *dialed) open(ctx context.Context, r role, result <-chan error) error {
	d.mu.Lock()
	if d.conn != nil {
		d.mu.Unlock()
		return errors.New("rtmp stream already open")
	}
	d.mu.Unlock()

	var dialer net.Dialer
	nc, err := dialer.DialContext(ctx, "tcp", d.target.Host)
	if err != nil {
		return errors.Wrapf(err, "dial %s", d.target.Host)
	}
	c := newConn(context.Background(), nextOutboundID(), nc, true, r, d.opts, log.Logger)
	c.log = c.log.With().Str("url", d.target.String()).Logger()
	done := make(chan struct{})

	d.mu.Lock()
	d.conn, d.done = c, done
	d.mu.Unlock()

	go func() {
		err := c.Serve()
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(done)
	}()

	select {
	case err := <-result:
		if err == nil {
			return nil
		}
		d.abort()
		if errors.Is(err, ErrConnectionClosed) {
			if serveErr := d.serveErr(); serveErr != nil {
				return errors.Wrap(serveErr, ErrConnectionClosed.Error())
			}
		}
		return err
	case <-ctx.Done():
		d.abort()
		return errors.Wrap(ctx.Err(), "open "+d.target.String())
	}
}

func (d *dialed) abort() {
	d.mu.Lock()
	c, done := d.conn, d.done
	d.conn = nil
	d.mu.Unlock()
	if c == nil {
		return
	}
	_ = c.Close()
	<-done
}

func (d *dialed) serveErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *dialed) current() (*Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, ErrNotOpen
	}
	return d.conn, nil
}

// Done is closed when the connection ends for any reason.
func (d *dialed) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return d.done
}

// Err returns why the connection ended, nil for a clean close.
func (d *dialed) Err() error {
	return d.serveErr()
}

// Publisher pushes a live stream to a remote RTMP server.
type Publisher struct {
	dialed
	role *publisherRole
}

// NewPublisher creates a publisher for rawURL (rtmp://host[:port]/app/name).
func NewPublisher(rawURL string, opts Options) (*Publisher, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{dialed: dialed{target: target, opts: opts.WithDefaults()}}, nil
}

// Open connects and publishes. It returns once the server answered
// NetStream.Publish.Start, rejected the request, or ctx expired.
func (p *Publisher) Open(ctx context.Context) error {
	p.role = newPublisherRole(p.target)
	return p.open(ctx, p.role, p.role.result)
}

func (p *Publisher) write(typeID byte, csID uint32, timestamp uint32, payload []byte) error {
	c, err := p.current()
	if err != nil {
		return err
	}
	return c.proto.WriteMessage(csID, rtmpprotocol.NewMessage(typeID, timestamp, p.role.StreamID(), payload))
}

// WriteVideoConfig sends the AVC sequence header built from sps and pps.
func (p *Publisher) WriteVideoConfig(sps, pps []byte) error {
	body, err := flv.AVCSequenceHeader(sps, pps)
	if err != nil {
		return err
	}
	return p.write(rtmpprotocol.MessageTypeVideo, rtmpprotocol.CSIDVideo, 0, body)
}

// WriteAudioConfig sends the AAC sequence header carrying asc.
func (p *Publisher) WriteAudioConfig(asc []byte) error {
	return p.write(rtmpprotocol.MessageTypeAudio, rtmpprotocol.CSIDAudio, 0, flv.AACSequenceHeader(asc))
}

// WriteVideo sends one Annex-B access unit at pts milliseconds.
func (p *Publisher) WriteVideo(au []byte, keyframe bool, pts uint32) error {
	return p.write(rtmpprotocol.MessageTypeVideo, rtmpprotocol.CSIDVideo, pts, flv.AVCPacket(au, keyframe, 0))
}

// WriteAudio sends one raw AAC frame at pts milliseconds.
func (p *Publisher) WriteAudio(frame []byte, pts uint32) error {
	return p.write(rtmpprotocol.MessageTypeAudio, rtmpprotocol.CSIDAudio, pts, flv.AACPacket(frame))
}

// WriteMetadata sends onMetaData wrapped in @setDataFrame.
func (p *Publisher) WriteMetadata(meta amf0.Object) error {
	c, err := p.current()
	if err != nil {
		return err
	}
	return c.proto.WriteData(rtmpprotocol.CSIDData, p.role.StreamID(), 0,
		amf0.Array{"@setDataFrame", "onMetaData", meta})
}

// WriteTag forwards an already packed FLV tag.
func (p *Publisher) WriteTag(tag *flv.Tag) error {
	switch tag.Type {
	case flv.TagTypeAudio:
		return p.write(rtmpprotocol.MessageTypeAudio, rtmpprotocol.CSIDAudio, tag.Timestamp, tag.Data)
	case flv.TagTypeVideo:
		return p.write(rtmpprotocol.MessageTypeVideo, rtmpprotocol.CSIDVideo, tag.Timestamp, tag.Data)
	case flv.TagTypeScript:
		values, err := amf0.DecodeCommand(tag.Data)
		if err != nil {
			return errors.Wrap(err, "decode script tag")
		}
		if len(values) == 0 {
			return nil
		}
		if name, _ := values[0].(string); name != "@setDataFrame" {
			values = append(amf0.Array{"@setDataFrame"}, values...)
		}
		c, err := p.current()
		if err != nil {
			return err
		}
		return c.proto.WriteData(rtmpprotocol.CSIDData, p.role.StreamID(), tag.Timestamp, values)
	}
	return nil
}

// Close unpublishes and closes the connection.
func (p *Publisher) Close() error {
	c, err := p.current()
	if err != nil {
		return nil
	}
	if id := p.role.StreamID(); id != 0 {
		_ = p.role.sendCommand(c, 0, "FCUnpublish", 0, p.target.Name)
		_ = p.role.sendCommand(c, 0, "deleteStream", 0, float64(id))
	}
	p.abort()
	return nil
}
