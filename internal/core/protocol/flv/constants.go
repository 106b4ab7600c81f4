// If you are AI: This file defines FLV protocol constants and tag types.

package flv

// FLV file signature
const FLVSignature = "FLV"

// FLV version
const FLVVersion = 1

// FLV header size
const FLVHeaderSize = 9

// Tag header size: type, data size, timestamp, extended timestamp, stream id.
const TagHeaderSize = 11

// Tag types
const (
	TagTypeAudio  = 8
	TagTypeVideo  = 9
	TagTypeScript = 18
)

// Header flags
const (
	flagVideo = 0x01
	flagAudio = 0x04
)

// Audio tag header fields
const (
	AudioFormatAAC = 10

	SoundRate44Khz  = 3
	SoundSize16Bit  = 1
	SoundTypeStereo = 1

	// AACAudioHeader is format AAC, 44 kHz, 16 bit, stereo; AAC ignores the last three.
	AACAudioHeader = AudioFormatAAC<<4 | SoundRate44Khz<<2 | SoundSize16Bit<<1 | SoundTypeStereo
)

// AACPacketType constants
const (
	AACPacketTypeSequenceHeader = 0
	AACPacketTypeRaw            = 1
)

// Video codec constants
const (
	VideoCodecAVC = 7
)

// Video frame types
const (
	VideoFrameKeyFrame   = 1
	VideoFrameInterFrame = 2
)

// AVCPacketType constants
const (
	AVCPacketTypeSequenceHeader = 0
	AVCPacketTypeNALU           = 1
	AVCPacketTypeEndOfSequence  = 2
)
