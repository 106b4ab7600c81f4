// If you are AI: This file turns a live message stream into FLV viewer output.
// Muxing preserves original payloads without transcoding.

package flv

// Muxer produces the FLV byte stream for one viewer: the file header on first use,
// then tags with timestamps rebased so the viewer starts near zero.
type Muxer struct {
	hasAudio    bool
	hasVideo    bool
	wroteHeader bool
	baseSet     bool
	base        uint32
}

// NewMuxer creates a muxer announcing the given tracks in the file header.
func NewMuxer(hasAudio, hasVideo bool) *Muxer {
	return &Muxer{hasAudio: hasAudio, hasVideo: hasVideo}
}

// Header returns the file header the first time it is called and nil afterwards.
func (m *Muxer) Header() []byte {
	if m.wroteHeader {
		return nil
	}
	m.wroteHeader = true
	return NewHeader(m.hasAudio, m.hasVideo).FileHeader()
}

// Tag encodes one message as a tag. Sequence headers and metadata keep timestamp 0
// and do not set the rebase point.
func (m *Muxer) Tag(tagType byte, timestamp uint32, data []byte) []byte {
	ts := uint32(0)
	if tagType != TagTypeScript && !IsSequenceHeader(tagType, data) {
		if !m.baseSet {
			m.baseSet = true
			m.base = timestamp
		}
		if timestamp > m.base {
			ts = timestamp - m.base
		}
	}
	return NewTag(tagType, ts, data).Bytes()
}
