// If you are AI: This file implements the outbound Client (player) driver.
// Received media is queued on a bus.Subscriber and read back with Next.

package rtmp

import (
	"context"

	"streamhub/internal/core/bus"
)

// Client plays a remote RTMP stream. Each Open starts a fresh queue, so a
// Client can be opened again after Close.
type Client struct {
	dialed
	role *playerRole
	sub  *bus.Subscriber
}

// NewClient creates a player for rawURL (rtmp://host[:port]/app/name).
func NewClient(rawURL string, opts Options) (*Client, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{dialed: dialed{target: target, opts: opts.WithDefaults()}}, nil
}

// Open connects and plays. It returns once the server answered
// NetStream.Play.Start, rejected the request, or ctx expired.
func (c *Client) Open(ctx context.Context) error {
	sub := bus.NewSubscriber(c.opts.WriteQueue, bus.BackpressureDropOldest, false)
	r := newPlayerRole(c.target, sub)
	if err := c.open(ctx, r, r.result); err != nil {
		sub.Close()
		return err
	}
	c.mu.Lock()
	c.role, c.sub = r, sub
	c.mu.Unlock()
	done := c.Done()
	go func() {
		<-done
		sub.Close()
	}()
	return nil
}

func (c *Client) queue() *bus.Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub
}

// Next returns the next received message. A MessageTypeEndOfStream message
// marks the remote publisher leaving. bus.ErrSubscriberClosed means the
// connection ended and nothing is left in the queue.
func (c *Client) Next(ctx context.Context) (*bus.MediaMessage, error) {
	sub := c.queue()
	if sub == nil {
		return nil, ErrNotOpen
	}
	return sub.Next(ctx)
}

// Dropped returns how many messages the current Open lost because Next fell behind.
func (c *Client) Dropped() uint64 {
	sub := c.queue()
	if sub == nil {
		return 0
	}
	return sub.Dropped()
}

// Close stops playing and closes the connection.
func (c *Client) Close() error {
	conn, err := c.current()
	if err != nil {
		return nil
	}
	c.mu.Lock()
	r, sub := c.role, c.sub
	c.mu.Unlock()
	if r != nil {
		if id := r.StreamID(); id != 0 {
			_ = r.sendCommand(conn, 0, "deleteStream", 0, float64(id))
		}
	}
	c.abort()
	if sub != nil {
		sub.Close()
	}
	return nil
}
