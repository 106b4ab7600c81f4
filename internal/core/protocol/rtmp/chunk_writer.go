// If you are AI: This file implements RTMP chunk building for outbound messages.
// Every message is written with one fmt 0 header followed by fmt 3 continuations.

package rtmp

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

var ErrInvalidChunkStreamID = errors.New("chunk stream id out of range")

// AppendChunks appends msg to dst as a chunk sequence on csID.
func AppendChunks(dst []byte, csID uint32, msg *Message, chunkSize uint32) ([]byte, error) {
	if csID < MinChunkStreamID || csID > MaxChunkStreamID {
		return dst, errors.Wrapf(ErrInvalidChunkStreamID, "%d", csID)
	}
	if chunkSize < 1 || chunkSize > MaxChunkSize {
		return dst, errors.Wrapf(ErrInvalidChunkSize, "%d", chunkSize)
	}

	payload := msg.Payload
	extended := msg.Timestamp >= extendedTimestampMarker
	tsField := msg.Timestamp
	if extended {
		tsField = extendedTimestampMarker
	}

	dst = appendBasicHeader(dst, ChunkFmt0, csID)
	dst = append(dst,
		byte(tsField>>16), byte(tsField>>8), byte(tsField),
		byte(len(payload)>>16), byte(len(payload)>>8), byte(len(payload)),
		msg.TypeID)
	dst = binary.LittleEndian.AppendUint32(dst, msg.StreamID)
	if extended {
		dst = binary.BigEndian.AppendUint32(dst, msg.Timestamp)
	}

	for offset := 0; ; {
		n := len(payload) - offset
		if n > int(chunkSize) {
			n = int(chunkSize)
		}
		dst = append(dst, payload[offset:offset+n]...)
		offset += n
		if offset >= len(payload) {
			break
		}
		dst = appendBasicHeader(dst, ChunkFmt3, csID)
		if extended {
			dst = binary.BigEndian.AppendUint32(dst, msg.Timestamp)
		}
	}
	return dst, nil
}

// BuildChunks returns msg encoded as a chunk sequence on csID.
func BuildChunks(csID uint32, msg *Message, chunkSize uint32) ([]byte, error) {
	headers := 1 + len(msg.Payload)/int(max(chunkSize, 1))
	return AppendChunks(make([]byte, 0, len(msg.Payload)+headers*16), csID, msg, chunkSize)
}

// WriteChunk writes msg to w as a chunk sequence on csID.
func WriteChunk(w io.Writer, csID uint32, msg *Message, chunkSize uint32) error {
	buf, err := BuildChunks(csID, msg, chunkSize)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func appendBasicHeader(dst []byte, format byte, csID uint32) []byte {
	switch {
	case csID < 64:
		return append(dst, format<<6|byte(csID))
	case csID < 64+256:
		return append(dst, format<<6, byte(csID-64))
	default:
		v := csID - 64
		return append(dst, format<<6|1, byte(v), byte(v>>8))
	}
}
