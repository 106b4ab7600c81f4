// If you are AI: This file implements FLV file header generation and parsing.
// FLV header is written once at the start of the stream.

package flv

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrInvalidHeader = errors.New("invalid FLV header")

// Header represents an FLV file header.
type Header struct {
	HasAudio bool
	HasVideo bool
}

// NewHeader creates a new FLV header with specified audio/video flags.
func NewHeader(hasAudio, hasVideo bool) *Header {
	return &Header{
		HasAudio: hasAudio,
		HasVideo: hasVideo,
	}
}

// Bytes returns the 9-byte FLV header.
func (h *Header) Bytes() []byte {
	header := make([]byte, FLVHeaderSize)
	copy(header[0:3], FLVSignature)
	header[3] = FLVVersion

	flags := byte(0)
	if h.HasAudio {
		flags |= flagAudio
	}
	if h.HasVideo {
		flags |= flagVideo
	}
	header[4] = flags

	// Data offset points at the first PreviousTagSize field.
	binary.BigEndian.PutUint32(header[5:9], FLVHeaderSize)
	return header
}

// FileHeader returns the header followed by the zero PreviousTagSize0.
func (h *Header) FileHeader() []byte {
	return append(h.Bytes(), 0, 0, 0, 0)
}

// ParseHeader parses a 9-byte FLV header and returns it with its data offset.
func ParseHeader(b []byte) (*Header, uint32, error) {
	if len(b) < FLVHeaderSize || string(b[0:3]) != FLVSignature {
		return nil, 0, ErrInvalidHeader
	}
	offset := binary.BigEndian.Uint32(b[5:9])
	if offset < FLVHeaderSize {
		return nil, 0, errors.Wrapf(ErrInvalidHeader, "data offset %d", offset)
	}
	return &Header{
		HasAudio: b[4]&flagAudio != 0,
		HasVideo: b[4]&flagVideo != 0,
	}, offset, nil
}
