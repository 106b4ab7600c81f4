// If you are AI: This file tests the GOP cache invariant.

package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoFrame(ts uint32, keyframe bool) *MediaMessage {
	frame := byte(0x27)
	if keyframe {
		frame = 0x17
	}
	return NewMediaMessage(MessageTypeVideo, ts, []byte{frame, 0x01, 0, 0, 0})
}

func timestamps(msgs []*MediaMessage) []uint32 {
	out := make([]uint32, len(msgs))
	for i, m := range msgs {
		out[i] = m.Timestamp
	}
	return out
}

func TestGOPCacheKeepsFramesSinceLastKeyframe(t *testing.T) {
	c := NewGOPCache(100)
	const n, k = 20, 13
	for i := uint32(1); i <= n; i++ {
		c.Push(videoFrame(i*40, i == 1 || i == 7 || i == k))
	}
	got := timestamps(c.Messages())
	require.Len(t, got, n-k+1)
	for i, ts := range got {
		assert.Equal(t, uint32(k+i)*40, ts)
	}
}

func TestGOPCacheIgnoresFramesBeforeFirstKeyframe(t *testing.T) {
	c := NewGOPCache(10)
	c.Push(videoFrame(0, false))
	c.Push(NewMediaMessage(MessageTypeAudio, 5, []byte{0xAF, 0x01, 0x00}))
	assert.Zero(t, c.Len())

	c.Push(videoFrame(40, true))
	c.Push(NewMediaMessage(MessageTypeAudio, 45, []byte{0xAF, 0x01, 0x00}))
	assert.Equal(t, 2, c.Len())
}

func TestGOPCacheCapAndDisable(t *testing.T) {
	c := NewGOPCache(3)
	c.Push(videoFrame(0, true))
	for i := uint32(1); i < 10; i++ {
		c.Push(videoFrame(i, false))
	}
	assert.Equal(t, []uint32{0, 1, 2}, timestamps(c.Messages()))

	off := NewGOPCache(0)
	off.Push(videoFrame(0, true))
	assert.Zero(t, off.Len())
}

func TestGOPCacheSkipsSequenceHeaders(t *testing.T) {
	c := NewGOPCache(10)
	c.Push(videoFrame(0, true))
	c.Push(NewMediaMessage(MessageTypeVideo, 1, []byte{0x17, 0x00, 0, 0, 0, 1}))
	c.Push(NewMediaMessage(MessageTypeAudio, 1, []byte{0xAF, 0x00, 0x12, 0x10}))
	assert.Equal(t, 1, c.Len())
}

func TestGOPCacheOrdersByTimestamp(t *testing.T) {
	c := NewGOPCache(10)
	c.Push(videoFrame(100, true))
	c.Push(NewMediaMessage(MessageTypeAudio, 90, []byte{0xAF, 0x01}))
	c.Push(videoFrame(140, false))
	c.Push(NewMediaMessage(MessageTypeAudio, 120, []byte{0xAF, 0x01}))
	assert.Equal(t, []uint32{90, 100, 120, 140}, timestamps(c.Messages()))
}
