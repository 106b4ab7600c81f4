// If you are AI: This file packs H.264/AAC elementary streams into FLV tag bodies
// and classifies tag bodies (keyframes, sequence headers).

package flv

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrInvalidParameterSet = errors.New("invalid parameter set")

// H.264 NAL unit types used here.
const (
	naluTypeIDR = 5
	naluTypeSPS = 7
	naluTypePPS = 8
	naluTypeAUD = 9
)

// IsVideoKeyframe reports whether a video tag body is a keyframe.
func IsVideoKeyframe(body []byte) bool {
	return len(body) >= 1 && body[0]>>4 == VideoFrameKeyFrame
}

// IsAVCSequenceHeader reports whether a video tag body carries an AVCDecoderConfigurationRecord.
func IsAVCSequenceHeader(body []byte) bool {
	return len(body) >= 2 && body[0]&0x0F == VideoCodecAVC && body[1] == AVCPacketTypeSequenceHeader
}

// IsAACSequenceHeader reports whether an audio tag body carries an AudioSpecificConfig.
func IsAACSequenceHeader(body []byte) bool {
	return len(body) >= 2 && body[0]>>4 == AudioFormatAAC && body[1] == AACPacketTypeSequenceHeader
}

// IsSequenceHeader reports whether a tag body of the given type is a codec sequence header.
func IsSequenceHeader(tagType byte, body []byte) bool {
	switch tagType {
	case TagTypeVideo:
		return IsAVCSequenceHeader(body)
	case TagTypeAudio:
		return IsAACSequenceHeader(body)
	}
	return false
}

// AVCSequenceHeader builds a keyframe video tag body holding an
// AVCDecoderConfigurationRecord with one SPS and one PPS.
// Start codes on sps/pps are stripped.
func AVCSequenceHeader(sps, pps []byte) ([]byte, error) {
	sps = StripStartCode(sps)
	pps = StripStartCode(pps)
	if len(sps) < 4 || len(pps) < 1 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "sps %d bytes, pps %d bytes", len(sps), len(pps))
	}
	body := make([]byte, 0, 16+len(sps)+len(pps))
	body = append(body,
		VideoFrameKeyFrame<<4|VideoCodecAVC,
		AVCPacketTypeSequenceHeader,
		0, 0, 0, // composition time
		0x01,   // configurationVersion
		sps[1], // AVCProfileIndication
		sps[2], // profile_compatibility
		sps[3], // AVCLevelIndication
		0xFF,   // 4-byte NALU lengths
		0xE1,   // one SPS
	)
	body = binary.BigEndian.AppendUint16(body, uint16(len(sps)))
	body = append(body, sps...)
	body = append(body, 0x01)
	body = binary.BigEndian.AppendUint16(body, uint16(len(pps)))
	return append(body, pps...), nil
}

// AVCPacket builds a video tag body from one access unit.
// Annex-B start codes are replaced with 4-byte lengths; a unit without start codes is one NALU.
// Access unit delimiters and in-band parameter sets are dropped.
func AVCPacket(au []byte, keyframe bool, compositionTime uint32) []byte {
	nalus := SplitAnnexB(au)
	size := 5
	for _, n := range nalus {
		size += 4 + len(n)
	}
	frame := byte(VideoFrameInterFrame)
	if keyframe {
		frame = VideoFrameKeyFrame
	}
	body := make([]byte, 0, size)
	body = append(body,
		frame<<4|VideoCodecAVC,
		AVCPacketTypeNALU,
		byte(compositionTime>>16), byte(compositionTime>>8), byte(compositionTime))
	for _, n := range nalus {
		switch n[0] & 0x1F {
		case naluTypeAUD, naluTypeSPS, naluTypePPS:
			continue
		}
		body = binary.BigEndian.AppendUint32(body, uint32(len(n)))
		body = append(body, n...)
	}
	return body
}

// AACSequenceHeader builds an audio tag body holding an AudioSpecificConfig.
func AACSequenceHeader(asc []byte) []byte {
	body := make([]byte, 0, 2+len(asc))
	body = append(body, AACAudioHeader, AACPacketTypeSequenceHeader)
	return append(body, asc...)
}

// AACPacket builds an audio tag body from one raw AAC frame.
func AACPacket(frame []byte) []byte {
	body := make([]byte, 0, 2+len(frame))
	body = append(body, AACAudioHeader, AACPacketTypeRaw)
	return append(body, frame...)
}

// HasIDR reports whether an Annex-B access unit contains an IDR slice.
func HasIDR(au []byte) bool {
	for _, n := range SplitAnnexB(au) {
		if n[0]&0x1F == naluTypeIDR {
			return true
		}
	}
	return false
}

// StripStartCode removes one leading 3- or 4-byte Annex-B start code.
func StripStartCode(b []byte) []byte {
	switch {
	case len(b) >= 4 && b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 1:
		return b[4:]
	case len(b) >= 3 && b[0] == 0 && b[1] == 0 && b[2] == 1:
		return b[3:]
	}
	return b
}

// SplitAnnexB splits an access unit on 3- and 4-byte start codes.
// Input without any start code is returned as a single NALU. Empty NALUs are skipped.
func SplitAnnexB(au []byte) [][]byte {
	var nalus [][]byte
	start := -1
	for i := 0; i+2 < len(au); {
		if au[i] == 0 && au[i+1] == 0 && au[i+2] == 1 {
			if start >= 0 {
				end := i
				if end > start && au[end-1] == 0 {
					end-- // 4-byte start code
				}
				if end > start {
					nalus = append(nalus, au[start:end])
				}
			}
			i += 3
			start = i
			continue
		}
		i++
	}
	if start < 0 {
		if len(au) == 0 {
			return nil
		}
		return [][]byte{au}
	}
	if start < len(au) {
		nalus = append(nalus, au[start:])
	}
	return nalus
}
