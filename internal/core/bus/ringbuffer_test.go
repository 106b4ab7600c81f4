// If you are AI: This file contains unit tests for the ring buffer.

package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(ts uint32) *MediaMessage {
	return &MediaMessage{Type: MessageTypeVideo, Timestamp: ts}
}

func TestRingBufferWriteRead(t *testing.T) {
	rb := NewRingBuffer(8, BackpressureDropOldest)
	msg := testMessage(1)

	require.True(t, rb.Write(msg))
	select {
	case <-rb.Notify():
	default:
		t.Fatal("write should signal notify")
	}

	read, ok := rb.Read()
	require.True(t, ok)
	assert.Same(t, msg, read)

	_, ok = rb.Read()
	assert.False(t, ok)
}

func TestRingBufferCapacityRoundsUp(t *testing.T) {
	rb := NewRingBuffer(5, BackpressureDropNewest)
	assert.Equal(t, uint32(8), rb.Available())
	assert.False(t, rb.Write(nil))
}

func TestRingBufferDropOldest(t *testing.T) {
	rb := NewRingBuffer(4, BackpressureDropOldest)
	for i := uint32(0); i < 6; i++ {
		require.True(t, rb.Write(testMessage(i)))
	}
	assert.Equal(t, uint64(2), rb.Dropped())
	assert.Equal(t, uint32(4), rb.Len())

	for want := uint32(2); want < 6; want++ {
		msg, ok := rb.Read()
		require.True(t, ok)
		assert.Equal(t, want, msg.Timestamp)
	}
}

func TestRingBufferDropNewest(t *testing.T) {
	rb := NewRingBuffer(4, BackpressureDropNewest)
	for i := uint32(0); i < 4; i++ {
		require.True(t, rb.Write(testMessage(i)))
	}
	assert.False(t, rb.Write(testMessage(99)))
	assert.Equal(t, uint64(1), rb.Dropped())
	assert.Equal(t, uint32(0), rb.Available())

	msg, ok := rb.Read()
	require.True(t, ok)
	assert.Equal(t, uint32(0), msg.Timestamp)
}

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(4, BackpressureDropNewest)
	for i := uint32(0); i < 100; i++ {
		require.True(t, rb.Write(testMessage(i)))
		msg, ok := rb.Read()
		require.True(t, ok)
		require.Equal(t, i, msg.Timestamp)
	}
	assert.Equal(t, uint32(4), rb.Available())
}

func TestRingBufferKeepsPinnedMessages(t *testing.T) {
	rb := NewRingBuffer(4, BackpressureDropOldest)
	seq := &MediaMessage{Type: MessageTypeVideo, SequenceHeader: true}
	meta := &MediaMessage{Type: MessageTypeMetadata}
	require.True(t, rb.Write(meta))
	require.True(t, rb.Write(seq))
	for i := uint32(1); i <= 4; i++ {
		require.True(t, rb.Write(testMessage(i)))
	}
	assert.Equal(t, uint64(2), rb.Dropped())

	var got []*MediaMessage
	for {
		msg, ok := rb.Read()
		if !ok {
			break
		}
		got = append(got, msg)
	}
	require.Len(t, got, 4)
	assert.Same(t, meta, got[0])
	assert.Same(t, seq, got[1])
	assert.Equal(t, uint32(3), got[2].Timestamp)
	assert.Equal(t, uint32(4), got[3].Timestamp)
}

func TestRingBufferDropNewestAcceptsPinned(t *testing.T) {
	rb := NewRingBuffer(2, BackpressureDropNewest)
	require.True(t, rb.Write(testMessage(1)))
	require.True(t, rb.Write(testMessage(2)))
	assert.False(t, rb.Write(testMessage(3)))

	eos := &MediaMessage{Type: MessageTypeEndOfStream}
	require.True(t, rb.Write(eos))
	first, _ := rb.Read()
	second, _ := rb.Read()
	assert.Equal(t, uint32(2), first.Timestamp)
	assert.Same(t, eos, second)
}

func TestRingBufferAllPinnedDropsOldest(t *testing.T) {
	rb := NewRingBuffer(2, BackpressureDropOldest)
	a := &MediaMessage{Type: MessageTypeMetadata, Timestamp: 1}
	b := &MediaMessage{Type: MessageTypeMetadata, Timestamp: 2}
	c := &MediaMessage{Type: MessageTypeMetadata, Timestamp: 3}
	require.True(t, rb.Write(a))
	require.True(t, rb.Write(b))
	require.True(t, rb.Write(c))
	first, _ := rb.Read()
	second, _ := rb.Read()
	assert.Same(t, b, first)
	assert.Same(t, c, second)
}
