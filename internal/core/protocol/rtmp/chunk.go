// If you are AI: This file implements RTMP chunk parsing and reassembly over byte buffers.
// Parsing alternates between a header phase and a body phase until input runs out.

package rtmp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrInvalidChunkHeader = errors.New("invalid chunk header")
	// ErrUnknownChunkStream is returned when a fmt 1/2/3 chunk references a
	// chunk stream that was never opened by a fmt 0 chunk.
	ErrUnknownChunkStream = errors.New("chunk references uninitialized chunk stream")
	// ErrMessageInterrupted is returned when a fmt 1/2 header arrives while the
	// chunk stream still has a partially received message.
	ErrMessageInterrupted = errors.New("chunk header interrupts message in progress")
)

// chunkStream is the per-csid parse state.
type chunkStream struct {
	id        uint32
	started   bool // a fmt 0 header has been seen
	timestamp uint32
	delta     uint32
	extended  bool // last header carried an extended timestamp
	length    uint32
	typeID    byte
	streamID  uint32
	msg       *Message // message in progress, nil between messages
}

// ChunkParser reassembles messages from an inbound chunk stream.
// It is owned by a single connection and is not safe for concurrent use.
type ChunkParser struct {
	chunkStreams map[uint32]*chunkStream
	chunkSize    uint32
	cur          *chunkStream // body phase target, nil in header phase
	chunkLeft    uint32       // body bytes left in the current chunk
}

// NewChunkParser creates a new chunk parser.
func NewChunkParser() *ChunkParser {
	return &ChunkParser{
		chunkStreams: make(map[uint32]*chunkStream),
		chunkSize:    DefaultChunkSize,
	}
}

// SetChunkSize sets the chunk size used by the peer for subsequent chunks.
func (p *ChunkParser) SetChunkSize(size uint32) error {
	if size < 1 || size > MaxChunkSize {
		return errors.Wrapf(ErrInvalidChunkSize, "%d", size)
	}
	p.chunkSize = size
	return nil
}

// ChunkSize returns the inbound chunk size.
func (p *ChunkParser) ChunkSize() uint32 {
	return p.chunkSize
}

// Abort drops the partially received message on csID.
func (p *ChunkParser) Abort(csID uint32) {
	cs, ok := p.chunkStreams[csID]
	if !ok || cs.msg == nil {
		return
	}
	cs.msg = nil
	if p.cur == cs {
		p.cur = nil
		p.chunkLeft = 0
	}
}

// Feed parses as much of data as possible, calling handle for every completed message.
// It returns the number of bytes consumed; unconsumed bytes must be fed again with more input.
// Running out of input is never an error. Errors are fatal for the connection.
func (p *ChunkParser) Feed(data []byte, handle func(*Message) error) (int, error) {
	offset := 0
	for {
		if p.cur == nil {
			n, err := p.readHeader(data[offset:])
			if err != nil {
				return offset, err
			}
			if n == 0 {
				return offset, nil
			}
			offset += n
		}

		cs := p.cur
		msg := cs.msg
		if p.chunkLeft > 0 {
			avail := len(data) - offset
			if avail == 0 {
				return offset, nil
			}
			n := int(p.chunkLeft)
			if avail < n {
				n = avail
			}
			copy(msg.Payload[msg.index:], data[offset:offset+n])
			msg.index += uint32(n)
			p.chunkLeft -= uint32(n)
			offset += n
			if p.chunkLeft > 0 {
				return offset, nil
			}
		}

		// Chunk boundary: back to the header phase for the next chunk.
		p.cur = nil
		if msg.Complete() {
			cs.msg = nil
			if err := handle(msg); err != nil {
				return offset, err
			}
		}
	}
}

// readHeader parses one basic + message header. It returns 0 when data is too short,
// leaving all state untouched.
func (p *ChunkParser) readHeader(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, nil
	}
	format := data[0] >> 6
	if format > ChunkFmt3 {
		return 0, ErrInvalidChunkHeader
	}
	csID := uint32(data[0] & 0x3F)
	offset := 1
	switch csID {
	case 0:
		if len(data) < 2 {
			return 0, nil
		}
		csID = uint32(data[1]) + 64
		offset = 2
	case 1:
		if len(data) < 3 {
			return 0, nil
		}
		csID = uint32(binary.LittleEndian.Uint16(data[1:3])) + 64
		offset = 3
	}

	cs, exists := p.chunkStreams[csID]
	if format != ChunkFmt0 && (!exists || !cs.started) {
		return 0, errors.Wrapf(ErrUnknownChunkStream, "csid %d fmt %d", csID, format)
	}
	if !exists {
		cs = &chunkStream{id: csID}
	}

	headerSize := [4]int{11, 7, 3, 0}[format]
	if len(data) < offset+headerSize {
		return 0, nil
	}
	hdr := data[offset : offset+headerSize]
	offset += headerSize

	var tsField uint32
	if format != ChunkFmt3 {
		tsField = uint24(hdr[0:3])
	}
	extended := tsField == extendedTimestampMarker
	if format == ChunkFmt3 {
		extended = cs.extended
	}
	var extTS uint32
	if extended {
		if len(data) < offset+4 {
			return 0, nil
		}
		extTS = binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
	}
	if extended && format != ChunkFmt3 {
		tsField = extTS
	}

	inProgress := cs.msg != nil && cs.msg.index > 0
	switch format {
	case ChunkFmt0:
		cs.started = true
		cs.timestamp = tsField
		cs.delta = 0
		cs.length = uint24(hdr[3:6])
		cs.typeID = hdr[6]
		cs.streamID = binary.LittleEndian.Uint32(hdr[7:11])
		cs.msg = nil
	case ChunkFmt1:
		if inProgress {
			return 0, errors.Wrapf(ErrMessageInterrupted, "csid %d", csID)
		}
		cs.delta = tsField
		cs.timestamp += tsField
		cs.length = uint24(hdr[3:6])
		cs.typeID = hdr[6]
		cs.msg = nil
	case ChunkFmt2:
		if inProgress {
			return 0, errors.Wrapf(ErrMessageInterrupted, "csid %d", csID)
		}
		cs.delta = tsField
		cs.timestamp += tsField
		cs.msg = nil
	case ChunkFmt3:
		if cs.msg == nil {
			// New message repeating the previous header.
			cs.timestamp += cs.delta
		}
	}
	cs.extended = extended

	if cs.msg == nil {
		cs.msg = &Message{
			TypeID:    cs.typeID,
			Timestamp: cs.timestamp,
			StreamID:  cs.streamID,
			Length:    cs.length,
			Payload:   make([]byte, cs.length),
		}
	}
	if !exists {
		p.chunkStreams[csID] = cs
	}

	left := cs.msg.Length - cs.msg.index
	if left > p.chunkSize {
		left = p.chunkSize
	}
	p.cur = cs
	p.chunkLeft = left
	return offset, nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
