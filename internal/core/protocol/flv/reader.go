// If you are AI: This file implements a streaming FLV file reader.

package flv

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader reads an FLV header and then tags from an io.Reader.
type Reader struct {
	r      *bufio.Reader
	header *Header
	hdr    [TagHeaderSize]byte
}

// NewReader creates a reader. ReadHeader must be called before ReadTag.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadHeader reads the file header and skips to the first tag.
func (r *Reader) ReadHeader() (*Header, error) {
	buf := make([]byte, FLVHeaderSize)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, errors.Wrap(err, "read flv header")
	}
	h, offset, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	// Extra header bytes, then PreviousTagSize0.
	if _, err := r.r.Discard(int(offset-FLVHeaderSize) + 4); err != nil {
		return nil, errors.Wrap(err, "skip flv header")
	}
	r.header = h
	return h, nil
}

// ReadTag returns the next tag. It returns io.EOF at a clean end of file.
func (r *Reader) ReadTag() (*Tag, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read tag header")
	}
	size := uint32(r.hdr[1])<<16 | uint32(r.hdr[2])<<8 | uint32(r.hdr[3])
	ts := uint32(r.hdr[4])<<16 | uint32(r.hdr[5])<<8 | uint32(r.hdr[6]) | uint32(r.hdr[7])<<24

	data := make([]byte, size)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, errors.Wrap(err, "read tag data")
	}
	var trailer [4]byte
	if _, err := io.ReadFull(r.r, trailer[:]); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read previous tag size")
	}
	if prev := binary.BigEndian.Uint32(trailer[:]); prev != 0 && prev != TagHeaderSize+size {
		return nil, errors.Errorf("previous tag size %d does not match tag size %d", prev, TagHeaderSize+size)
	}
	return NewTag(r.hdr[0]&0x1F, ts, data), nil
}
