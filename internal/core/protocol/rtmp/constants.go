// If you are AI: This file defines RTMP protocol constants and message types.

package rtmp

// RTMP version constant
const RTMPVersion = 3

// Handshake sizes
const (
	HandshakeBlockSize  = 1536                     // C1/S1/C2/S2
	HandshakeC0C1Size   = 1 + HandshakeBlockSize   // C0 + C1
	HandshakeS0S1S2Size = 1 + 2*HandshakeBlockSize // S0 + S1 + S2
	HandshakeC2Size     = HandshakeBlockSize
)

// Chunk size bounds
const (
	DefaultChunkSize = 128
	MaxChunkSize     = 60000
)

// Default flow control window, used for both Window Ack Size and Set Peer Bandwidth.
const DefaultWindowAckSize = 2500000

// Peer bandwidth limit types
const (
	LimitHard    = 0
	LimitSoft    = 1
	LimitDynamic = 2
)

// Message type IDs
const (
	MessageTypeSetChunkSize     = 1
	MessageTypeAbortMessage     = 2
	MessageTypeAck              = 3
	MessageTypeUserCtrl         = 4
	MessageTypeWinAckSize       = 5
	MessageTypeSetPeerBandwidth = 6
	MessageTypeAudio            = 8
	MessageTypeVideo            = 9
	MessageTypeDataAMF3         = 15
	MessageTypeSharedObjectAMF3 = 16
	MessageTypeCommandAMF3      = 17
	MessageTypeDataAMF0         = 18
	MessageTypeSharedObjectAMF0 = 19
	MessageTypeCommandAMF0      = 20
	MessageTypeAggregate        = 22
)

// Chunk basic header format types
const (
	ChunkFmt0 = 0 // 11-byte header
	ChunkFmt1 = 1 // 7-byte header
	ChunkFmt2 = 2 // 3-byte header
	ChunkFmt3 = 3 // 0-byte header
)

// Chunk stream IDs used when sending.
const (
	CSIDControl = 2
	CSIDCommand = 3
	CSIDAudio   = 4
	CSIDVideo   = 5
	CSIDData    = 6
)

// Chunk stream ID encodable range.
const (
	MinChunkStreamID = 2
	MaxChunkStreamID = 65599
)

// extendedTimestampMarker in a 24-bit timestamp field means a 4-byte timestamp follows.
const extendedTimestampMarker = 0xFFFFFF

// Control message types
const (
	ControlStreamBegin      = 0
	ControlStreamEOF        = 1
	ControlStreamDry        = 2
	ControlSetBufferLength  = 3
	ControlStreamIsRecorded = 4
	ControlPingRequest      = 6
	ControlPingResponse     = 7
)
