// If you are AI: This file implements FLV tag creation and encoding.

package flv

import (
	"encoding/binary"
)

// Tag represents an FLV tag (audio, video, or script).
type Tag struct {
	Type      byte
	Timestamp uint32
	Data      []byte
}

// NewTag creates a new FLV tag from type, timestamp, and data.
func NewTag(tagType byte, timestamp uint32, data []byte) *Tag {
	return &Tag{
		Type:      tagType,
		Timestamp: timestamp,
		Data:      data,
	}
}

// Bytes encodes the tag followed by its PreviousTagSize trailer.
func (t *Tag) Bytes() []byte {
	return t.AppendTo(make([]byte, 0, TagHeaderSize+len(t.Data)+4))
}

// AppendTo appends the encoded tag and trailer to dst.
func (t *Tag) AppendTo(dst []byte) []byte {
	size := uint32(len(t.Data))
	dst = append(dst,
		t.Type,
		byte(size>>16), byte(size>>8), byte(size),
		// lower 24 bits, then the extended upper 8 bits
		byte(t.Timestamp>>16), byte(t.Timestamp>>8), byte(t.Timestamp), byte(t.Timestamp>>24),
		0, 0, 0)
	dst = append(dst, t.Data...)
	return binary.BigEndian.AppendUint32(dst, TagHeaderSize+size)
}

// TagTypeFor maps an RTMP message type id to its FLV tag type; they share numbering.
func TagTypeFor(messageType byte) (byte, bool) {
	switch messageType {
	case TagTypeAudio, TagTypeVideo, TagTypeScript:
		return messageType, true
	}
	return 0, false
}
