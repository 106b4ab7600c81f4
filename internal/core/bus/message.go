// If you are AI: This file defines MediaMessage, the unit of media flowing through the bus.
// Messages are immutable once published: the GOP cache and every subscriber share them.

package bus

import (
	"streamhub/internal/core/protocol/flv"
)

// MessageType represents the type of media message.
// Values match the RTMP message type ids and FLV tag types.
type MessageType uint8

const (
	// MessageTypeAudio represents an audio frame.
	MessageTypeAudio MessageType = flv.TagTypeAudio
	// MessageTypeVideo represents a video frame.
	MessageTypeVideo MessageType = flv.TagTypeVideo
	// MessageTypeMetadata represents onMetaData script data.
	MessageTypeMetadata MessageType = flv.TagTypeScript
	// MessageTypeEndOfStream marks the publisher leaving; it never reaches the wire.
	MessageTypeEndOfStream MessageType = 0xFF
)

// MediaMessage represents a unit of media flowing through the bus.
type MediaMessage struct {
	Type           MessageType
	Timestamp      uint32 // milliseconds, publisher clock
	Payload        []byte // FLV tag body
	Keyframe       bool
	SequenceHeader bool
}

// NewMediaMessage creates a message and classifies its payload.
// The payload is retained, not copied.
func NewMediaMessage(typ MessageType, timestamp uint32, payload []byte) *MediaMessage {
	msg := &MediaMessage{
		Type:      typ,
		Timestamp: timestamp,
		Payload:   payload,
	}
	switch typ {
	case MessageTypeVideo:
		msg.SequenceHeader = flv.IsAVCSequenceHeader(payload)
		msg.Keyframe = !msg.SequenceHeader && flv.IsVideoKeyframe(payload)
	case MessageTypeAudio:
		msg.SequenceHeader = flv.IsAACSequenceHeader(payload)
	}
	return msg
}

// pinned reports whether a queue must keep msg under backpressure. A viewer
// that loses a sequence header or metadata cannot decode what follows, and
// one that loses the end-of-stream marker never finishes.
func (m *MediaMessage) pinned() bool {
	return m.SequenceHeader || m.Type == MessageTypeMetadata || m.Type == MessageTypeEndOfStream
}

// Clone creates a deep copy of the message.
func (m *MediaMessage) Clone() *MediaMessage {
	clone := *m
	clone.Payload = append([]byte(nil), m.Payload...)
	return &clone
}

// String returns a human-readable representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeAudio:
		return "audio"
	case MessageTypeVideo:
		return "video"
	case MessageTypeMetadata:
		return "metadata"
	case MessageTypeEndOfStream:
		return "eos"
	default:
		return "unknown"
	}
}
