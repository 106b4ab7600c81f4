// If you are AI: This file implements an FLV file writer.

package flv

import (
	"io"
)

// Writer writes an FLV header followed by tags.
type Writer struct {
	w           io.Writer
	wroteHeader bool
	buf         []byte
}

// NewWriter creates a writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the file header and PreviousTagSize0. Only the first call writes.
func (w *Writer) WriteHeader(hasAudio, hasVideo bool) error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	_, err := w.w.Write(NewHeader(hasAudio, hasVideo).FileHeader())
	return err
}

// WriteTag writes one tag with its trailer, writing a default header first if needed.
func (w *Writer) WriteTag(tag *Tag) error {
	if err := w.WriteHeader(true, true); err != nil {
		return err
	}
	w.buf = tag.AppendTo(w.buf[:0])
	_, err := w.w.Write(w.buf)
	return err
}
