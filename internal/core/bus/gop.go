// If you are AI: This file implements the single-GOP cache used for instant-start playback.

package bus

import (
	"sort"
)

// GOPCache retains the messages since the most recent video keyframe.
// A keyframe clears and reseeds it; later frames are appended until the cap is reached.
// Not safe for concurrent use; the owning Session serializes access.
type GOPCache struct {
	max      int
	messages []*MediaMessage
}

// NewGOPCache creates a cache holding at most max messages. max == 0 disables caching.
func NewGOPCache(max int) *GOPCache {
	return &GOPCache{max: max}
}

// Push offers a media message to the cache. Sequence headers and metadata are ignored.
func (c *GOPCache) Push(msg *MediaMessage) {
	if c.max <= 0 || msg.SequenceHeader {
		return
	}
	switch msg.Type {
	case MessageTypeVideo, MessageTypeAudio:
	default:
		return
	}

	if msg.Type == MessageTypeVideo && msg.Keyframe {
		for i := range c.messages {
			c.messages[i] = nil
		}
		c.messages = append(c.messages[:0], msg)
		return
	}
	// Nothing is cached before the first keyframe.
	if len(c.messages) == 0 || len(c.messages) >= c.max {
		return
	}
	c.messages = append(c.messages, msg)
}

// Messages returns the cached messages in increasing timestamp order.
func (c *GOPCache) Messages() []*MediaMessage {
	out := make([]*MediaMessage, len(c.messages))
	copy(out, c.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Len returns the number of cached messages.
func (c *GOPCache) Len() int {
	return len(c.messages)
}

// Reset empties the cache.
func (c *GOPCache) Reset() {
	c.messages = nil
}
