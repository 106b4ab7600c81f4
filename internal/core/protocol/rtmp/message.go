// If you are AI: This file defines the reassembled RTMP message and protocol control bodies.

package rtmp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrShortControl     = errors.New("control message too short")
	ErrInvalidChunkSize = errors.New("chunk size out of range")
)

// Message is one reassembled RTMP message.
// Payload is sized to Length; index is the reassembly cursor.
type Message struct {
	TypeID    byte
	Timestamp uint32
	StreamID  uint32
	Length    uint32
	Payload   []byte
	index     uint32
}

// NewMessage creates a complete message around payload.
func NewMessage(typeID byte, timestamp, streamID uint32, payload []byte) *Message {
	return &Message{
		TypeID:    typeID,
		Timestamp: timestamp,
		StreamID:  streamID,
		Length:    uint32(len(payload)),
		Payload:   payload,
		index:     uint32(len(payload)),
	}
}

// Complete reports whether every payload byte has arrived.
func (m *Message) Complete() bool {
	return m.index == m.Length
}

// ParseSetChunkSize parses a Set Chunk Size message.
// The top bit is reserved and must be zero.
func ParseSetChunkSize(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControl
	}
	size := binary.BigEndian.Uint32(body[0:4]) & 0x7FFFFFFF
	if size < 1 || size > MaxChunkSize {
		return 0, errors.Wrapf(ErrInvalidChunkSize, "%d", size)
	}
	return size, nil
}

// ParseUint32 parses the 4-byte body of Ack, Window Ack Size and Abort messages.
func ParseUint32(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControl
	}
	return binary.BigEndian.Uint32(body[0:4]), nil
}

// ParseUserControl splits a User Control message into event type and event data.
func ParseUserControl(body []byte) (uint16, []byte, error) {
	if len(body) < 2 {
		return 0, nil, ErrShortControl
	}
	return binary.BigEndian.Uint16(body[0:2]), body[2:], nil
}

// CreateSetChunkSize creates a Set Chunk Size message body.
func CreateSetChunkSize(size uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, size)
}

// CreateAck creates an Acknowledgement message body.
func CreateAck(sequence uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, sequence)
}

// CreateWindowAckSize creates a Window Acknowledgement Size message body.
func CreateWindowAckSize(size uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, size)
}

// CreateSetPeerBandwidth creates a Set Peer Bandwidth message body.
func CreateSetPeerBandwidth(size uint32, limitType byte) []byte {
	body := binary.BigEndian.AppendUint32(make([]byte, 0, 5), size)
	return append(body, limitType)
}

// CreateStreamBegin creates a Stream Begin control message.
func CreateStreamBegin(streamID uint32) []byte {
	return createUserControl(ControlStreamBegin, streamID)
}

// CreateStreamEOF creates a Stream EOF control message.
func CreateStreamEOF(streamID uint32) []byte {
	return createUserControl(ControlStreamEOF, streamID)
}

// CreateStreamIsRecorded creates a Stream Is Recorded control message.
func CreateStreamIsRecorded(streamID uint32) []byte {
	return createUserControl(ControlStreamIsRecorded, streamID)
}

// CreatePingResponse echoes the timestamp of a Ping Request.
func CreatePingResponse(timestamp uint32) []byte {
	return createUserControl(ControlPingResponse, timestamp)
}

// CreateSetBufferLength creates a Set Buffer Length control message.
func CreateSetBufferLength(streamID, millis uint32) []byte {
	body := createUserControl(ControlSetBufferLength, streamID)
	return binary.BigEndian.AppendUint32(body, millis)
}

func createUserControl(event uint16, value uint32) []byte {
	body := binary.BigEndian.AppendUint16(make([]byte, 0, 10), event)
	return binary.BigEndian.AppendUint32(body, value)
}
