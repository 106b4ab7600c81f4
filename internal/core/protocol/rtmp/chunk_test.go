// If you are AI: This file tests chunk building and reassembly.

package rtmp

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, p *ChunkParser, data []byte) []*Message {
	t.Helper()
	var out []*Message
	n, err := p.Feed(data, func(m *Message) error {
		out = append(out, m)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	return out
}

func payload(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestChunkRoundTrip(t *testing.T) {
	const size = 10000
	for _, chunkSize := range []uint32{1, 128, 4096, size} {
		msg := NewMessage(MessageTypeVideo, 123456, 1, payload(size))
		wire, err := BuildChunks(CSIDVideo, msg, chunkSize)
		require.NoError(t, err)

		p := NewChunkParser()
		require.NoError(t, p.SetChunkSize(chunkSize))
		got := collect(t, p, wire)
		require.Len(t, got, 1, "chunk size %d", chunkSize)
		assert.Equal(t, msg.TypeID, got[0].TypeID)
		assert.Equal(t, msg.Timestamp, got[0].Timestamp)
		assert.Equal(t, msg.StreamID, got[0].StreamID)
		assert.Equal(t, msg.Payload, got[0].Payload)
	}
}

func TestChunkRoundTripByteByByte(t *testing.T) {
	msg := NewMessage(MessageTypeAudio, 42, 7, payload(300))
	wire, err := BuildChunks(CSIDAudio, msg, 128)
	require.NoError(t, err)

	p := NewChunkParser()
	var got []*Message
	var pending []byte
	for _, b := range wire {
		pending = append(pending, b)
		n, err := p.Feed(pending, func(m *Message) error {
			got = append(got, m)
			return nil
		})
		require.NoError(t, err)
		pending = pending[n:]
	}
	require.Empty(t, pending)
	require.Len(t, got, 1)
	assert.Equal(t, msg.Payload, got[0].Payload)
	assert.Equal(t, uint32(7), got[0].StreamID)
}

func TestChunkExtendedTimestamp(t *testing.T) {
	msg := NewMessage(MessageTypeVideo, 0x01000000, 1, payload(500))
	wire, err := BuildChunks(CSIDVideo, msg, 128)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, wire[1:4])

	p := NewChunkParser()
	got := collect(t, p, wire)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(0x01000000), got[0].Timestamp)
	assert.Equal(t, msg.Payload, got[0].Payload)
}

func TestChunkInterleavedStreams(t *testing.T) {
	video := NewMessage(MessageTypeVideo, 40, 1, payload(256))
	audio := NewMessage(MessageTypeAudio, 23, 1, bytes.Repeat([]byte{0xAF}, 200))
	vw, err := BuildChunks(CSIDVideo, video, 128)
	require.NoError(t, err)
	aw, err := BuildChunks(CSIDAudio, audio, 128)
	require.NoError(t, err)

	// Split both at their first chunk boundary and interleave.
	vFirst := 12 + 128
	aFirst := 12 + 128
	var wire []byte
	wire = append(wire, vw[:vFirst]...)
	wire = append(wire, aw[:aFirst]...)
	wire = append(wire, vw[vFirst:]...)
	wire = append(wire, aw[aFirst:]...)

	got := collect(t, NewChunkParser(), wire)
	require.Len(t, got, 2)
	assert.Equal(t, video.Payload, got[0].Payload)
	assert.Equal(t, audio.Payload, got[1].Payload)
	assert.Equal(t, uint32(23), got[1].Timestamp)
}

func TestChunkDeltaHeaders(t *testing.T) {
	// fmt 0 at ts=100, then fmt 2 delta 20, then fmt 3 repeating the delta.
	wire := []byte{
		0x04, 0, 0, 100, 0, 0, 2, MessageTypeAudio, 1, 0, 0, 0, 0xAA, 0xBB,
		0x84, 0, 0, 20, 0xCC, 0xDD,
		0xC4, 0xEE, 0xFF,
	}
	got := collect(t, NewChunkParser(), wire)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(100), got[0].Timestamp)
	assert.Equal(t, uint32(120), got[1].Timestamp)
	assert.Equal(t, uint32(140), got[2].Timestamp)
	assert.Equal(t, []byte{0xEE, 0xFF}, got[2].Payload)
	assert.Equal(t, uint32(1), got[2].StreamID)
}

func TestChunkFmt1ReusesStreamID(t *testing.T) {
	wire := []byte{
		0x06, 0, 0, 10, 0, 0, 1, MessageTypeDataAMF0, 5, 0, 0, 0, 0x01,
		0x46, 0, 0, 5, 0, 0, 2, MessageTypeVideo, 0x02, 0x03,
	}
	got := collect(t, NewChunkParser(), wire)
	require.Len(t, got, 2)
	assert.Equal(t, byte(MessageTypeVideo), got[1].TypeID)
	assert.Equal(t, uint32(5), got[1].StreamID)
	assert.Equal(t, uint32(15), got[1].Timestamp)
}

func TestChunkFmt1OnUnknownStream(t *testing.T) {
	// fmt 1 declaring length 1000 on a csid never opened by fmt 0.
	wire := []byte{0x47, 0, 0, 0, 0, 0x03, 0xE8, MessageTypeVideo}
	p := NewChunkParser()
	n, err := p.Feed(wire, func(*Message) error {
		t.Fatal("no message expected")
		return nil
	})
	assert.True(t, errors.Is(err, ErrUnknownChunkStream))
	assert.Equal(t, 0, n)
}

func TestChunkFmt3OnUnknownStream(t *testing.T) {
	_, err := NewChunkParser().Feed([]byte{0xC9}, func(*Message) error { return nil })
	assert.True(t, errors.Is(err, ErrUnknownChunkStream))
}

func TestChunkInterruptedMessage(t *testing.T) {
	msg := NewMessage(MessageTypeVideo, 0, 1, payload(300))
	wire, err := BuildChunks(CSIDVideo, msg, 128)
	require.NoError(t, err)
	first := wire[:12+128]
	interrupt := []byte{0x45, 0, 0, 0, 0, 0, 4, MessageTypeVideo}

	p := NewChunkParser()
	_, err = p.Feed(append(append([]byte{}, first...), interrupt...), func(*Message) error { return nil })
	assert.True(t, errors.Is(err, ErrMessageInterrupted))
}

func TestChunkLargeStreamIDs(t *testing.T) {
	for _, csID := range []uint32{64, 319, 320, MaxChunkStreamID} {
		msg := NewMessage(MessageTypeCommandAMF0, 1, 0, payload(10))
		wire, err := BuildChunks(csID, msg, 128)
		require.NoError(t, err)
		got := collect(t, NewChunkParser(), wire)
		require.Len(t, got, 1, "csid %d", csID)
		assert.Equal(t, msg.Payload, got[0].Payload)
	}

	// 3-byte form is little-endian: csid 64+0x0102.
	wire := []byte{0x01, 0x02, 0x01, 0, 0, 0, 0, 0, 1, MessageTypeAudio, 0, 0, 0, 0, 0x55}
	p := NewChunkParser()
	collect(t, p, wire)
	_, ok := p.chunkStreams[64+0x0102]
	assert.True(t, ok)
}

func TestBuildChunksRejectsBadArguments(t *testing.T) {
	msg := NewMessage(MessageTypeAudio, 0, 0, payload(4))
	_, err := BuildChunks(1, msg, 128)
	assert.True(t, errors.Is(err, ErrInvalidChunkStreamID))
	_, err = BuildChunks(CSIDAudio, msg, 0)
	assert.True(t, errors.Is(err, ErrInvalidChunkSize))
}

func TestZeroLengthMessage(t *testing.T) {
	msg := NewMessage(MessageTypeDataAMF0, 5, 1, nil)
	wire, err := BuildChunks(CSIDData, msg, 128)
	require.NoError(t, err)
	assert.Len(t, wire, 12)
	got := collect(t, NewChunkParser(), wire)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Payload)
}

func TestAbortDropsPartialMessage(t *testing.T) {
	msg := NewMessage(MessageTypeVideo, 0, 1, payload(300))
	wire, err := BuildChunks(CSIDVideo, msg, 128)
	require.NoError(t, err)

	p := NewChunkParser()
	collect(t, p, wire[:12+128])
	p.Abort(CSIDVideo)

	// A fresh fmt 0 message on the same csid parses cleanly.
	next := NewMessage(MessageTypeVideo, 10, 1, payload(5))
	wire2, err := BuildChunks(CSIDVideo, next, 128)
	require.NoError(t, err)
	got := collect(t, p, wire2)
	require.Len(t, got, 1)
	assert.Equal(t, next.Payload, got[0].Payload)
}

func TestSetChunkSizeBounds(t *testing.T) {
	p := NewChunkParser()
	assert.Error(t, p.SetChunkSize(0))
	assert.Error(t, p.SetChunkSize(MaxChunkSize+1))
	assert.NoError(t, p.SetChunkSize(MaxChunkSize))

	_, err := ParseSetChunkSize([]byte{0x80, 0, 0x10, 0})
	assert.NoError(t, err, "reserved top bit is masked")
	_, err = ParseSetChunkSize([]byte{0, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrInvalidChunkSize))
}
