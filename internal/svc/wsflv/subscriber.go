// If you are AI: This file implements the WebSocket-FLV subscriber.
// Every FLV header or tag goes out as one binary WebSocket frame.

package wsflv

import (
	"context"
	"time"

	"streamhub/internal/core/bus"
	"streamhub/internal/svc/httpflv"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// WebSocketConn defines the subset of *websocket.Conn the subscriber uses.
type WebSocketConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Subscriber streams one session to one WebSocket client.
type Subscriber struct {
	conn   WebSocketConn
	viewer *httpflv.Subscriber
}

// NewSubscriber attaches a viewer for key. It fails with bus.ErrStreamNotFound
// when nothing is published there.
func NewSubscriber(conn WebSocketConn, registry *bus.Registry, key bus.StreamKey, queue uint32) (*Subscriber, error) {
	viewer, err := httpflv.Subscribe(registry, key, queue)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, viewer: viewer}, nil
}

// Run streams until the client goes away, the publisher leaves or ctx ends.
func (s *Subscriber) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Client frames are ignored; a read error means the client closed.
	go func() {
		defer cancel()
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err := s.viewer.Run(ctx, func(b []byte) error {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return s.conn.WriteMessage(websocket.BinaryMessage, b)
	})
	if err == nil {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
	}
	return err
}

// Dropped returns how many messages were lost to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.viewer.Dropped()
}

// Close detaches from the session and closes the socket.
func (s *Subscriber) Close() error {
	s.viewer.Close()
	return s.conn.Close()
}
