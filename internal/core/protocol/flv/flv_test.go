// If you are AI: This file tests FLV framing, codec packing and file round trips.

package flv

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSPS = []byte{0x67, 0x64, 0x00, 0x1F, 0xAC, 0xD9}
	testPPS = []byte{0x68, 0xEB, 0xE3, 0xCB}
)

func TestHeaderFlags(t *testing.T) {
	assert.Equal(t, []byte{'F', 'L', 'V', 1, 0x05, 0, 0, 0, 9}, NewHeader(true, true).Bytes())
	assert.Equal(t, byte(0x01), NewHeader(false, true).Bytes()[4])
	assert.Equal(t, byte(0x04), NewHeader(true, false).Bytes()[4])
	assert.Len(t, NewHeader(true, true).FileHeader(), 13)

	h, offset, err := ParseHeader(NewHeader(false, true).Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(9), offset)
	assert.False(t, h.HasAudio)
	assert.True(t, h.HasVideo)

	_, _, err = ParseHeader([]byte("NOTFLV123"))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestTagBytes(t *testing.T) {
	tag := NewTag(TagTypeVideo, 0x01020304, []byte{0xAA, 0xBB})
	b := tag.Bytes()
	require.Len(t, b, 11+2+4)
	assert.Equal(t, byte(TagTypeVideo), b[0])
	assert.Equal(t, []byte{0, 0, 2}, b[1:4])
	assert.Equal(t, []byte{0x02, 0x03, 0x04, 0x01}, b[4:8], "extended byte carries the top 8 bits")
	assert.Equal(t, []byte{0, 0, 0}, b[8:11])
	assert.Equal(t, []byte{0, 0, 0, 13}, b[13:17])
}

func TestAVCSequenceHeader(t *testing.T) {
	body, err := AVCSequenceHeader(append([]byte{0, 0, 0, 1}, testSPS...), testPPS)
	require.NoError(t, err)
	assert.True(t, IsAVCSequenceHeader(body))
	assert.True(t, IsVideoKeyframe(body))
	assert.Equal(t, byte(0x17), body[0])
	assert.Equal(t, []byte{0x01, 0x64, 0x00, 0x1F, 0xFF, 0xE1}, body[5:11])
	assert.Equal(t, []byte{0, byte(len(testSPS))}, body[11:13])
	assert.Equal(t, testSPS, body[13:13+len(testSPS)])

	_, err = AVCSequenceHeader([]byte{0x67}, testPPS)
	assert.ErrorIs(t, err, ErrInvalidParameterSet)
}

func TestAVCPacketFromAnnexB(t *testing.T) {
	idr := []byte{0x65, 0x88, 0x84, 0x00}
	au := []byte{0, 0, 0, 1, 0x09, 0xF0}
	au = append(au, 0, 0, 0, 1)
	au = append(au, testSPS...)
	au = append(au, 0, 0, 1)
	au = append(au, idr...)
	assert.True(t, HasIDR(au))

	body := AVCPacket(au, true, 0)
	assert.Equal(t, []byte{0x17, 0x01, 0, 0, 0}, body[:5])
	assert.Equal(t, []byte{0, 0, 0, byte(len(idr))}, body[5:9], "only the slice remains")
	assert.Equal(t, idr, body[9:])
	assert.False(t, IsAVCSequenceHeader(body))
}

func TestAVCPacketWithoutStartCode(t *testing.T) {
	slice := []byte{0x41, 0x9A, 0x02}
	body := AVCPacket(slice, false, 40)
	assert.Equal(t, []byte{0x27, 0x01, 0, 0, 40, 0, 0, 0, 3, 0x41, 0x9A, 0x02}, body)
	assert.False(t, IsVideoKeyframe(body))
}

func TestSplitAnnexB(t *testing.T) {
	au := []byte{0, 0, 1, 0x67, 0x01, 0, 0, 0, 1, 0x68, 0x02, 0, 0, 1, 0x65}
	nalus := SplitAnnexB(au)
	require.Len(t, nalus, 3)
	assert.Equal(t, []byte{0x67, 0x01}, nalus[0])
	assert.Equal(t, []byte{0x68, 0x02}, nalus[1])
	assert.Equal(t, []byte{0x65}, nalus[2])
	assert.Nil(t, SplitAnnexB(nil))
}

func TestAACPackets(t *testing.T) {
	asc := []byte{0x12, 0x10}
	seq := AACSequenceHeader(asc)
	assert.Equal(t, []byte{0xAF, 0x00, 0x12, 0x10}, seq)
	assert.True(t, IsAACSequenceHeader(seq))

	raw := AACPacket([]byte{0x21, 0x00})
	assert.Equal(t, []byte{0xAF, 0x01, 0x21, 0x00}, raw)
	assert.False(t, IsAACSequenceHeader(raw))
	assert.True(t, IsSequenceHeader(TagTypeAudio, seq))
	assert.False(t, IsSequenceHeader(TagTypeScript, seq))
}

func TestFileRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader(true, true))
	tags := []*Tag{
		NewTag(TagTypeScript, 0, []byte{0x02, 0x00, 0x01, 'x'}),
		NewTag(TagTypeVideo, 0, []byte{0x17, 0x00, 0, 0, 0}),
		NewTag(TagTypeAudio, 23, []byte{0xAF, 0x01, 0x01}),
		NewTag(TagTypeVideo, 0x01000000, []byte{0x27, 0x01, 0, 0, 0}),
	}
	for _, tag := range tags {
		require.NoError(t, w.WriteTag(tag))
	}

	r := NewReader(&buf)
	h, err := r.ReadHeader()
	require.NoError(t, err)
	assert.True(t, h.HasAudio && h.HasVideo)
	for _, want := range tags {
		got, err := r.ReadTag()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = r.ReadTag()
	assert.Equal(t, io.EOF, err)
}

func TestMuxerRebasesTimestamps(t *testing.T) {
	m := NewMuxer(true, true)
	require.Len(t, m.Header(), 13)
	assert.Nil(t, m.Header())

	seq := m.Tag(TagTypeVideo, 5000, []byte{0x17, 0x00, 0, 0, 0})
	first := m.Tag(TagTypeVideo, 5000, []byte{0x17, 0x01, 0, 0, 0})
	later := m.Tag(TagTypeAudio, 5040, []byte{0xAF, 0x01})
	assert.Equal(t, []byte{0, 0, 0, 0}, seq[4:8])
	assert.Equal(t, []byte{0, 0, 0, 0}, first[4:8])
	assert.Equal(t, []byte{0, 0, 40, 0}, later[4:8])
}
