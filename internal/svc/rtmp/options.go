// If you are AI: This file defines per-connection RTMP tuning shared by server and drivers.

package rtmp

import (
	"time"

	rtmpprotocol "streamhub/internal/core/protocol/rtmp"
)

// Options tunes RTMP connections.
type Options struct {
	ChunkSize     uint32        // outbound chunk size announced after connect
	WindowAckSize uint32        // Window Acknowledgement Size sent to peers
	PeerBandwidth uint32        // Set Peer Bandwidth sent to peers
	ReadTimeout   time.Duration // read and write deadline, zero disables both
	WriteQueue    uint32        // per-player queue length in messages
}

// DefaultOptions returns the defaults used when configuration leaves a field unset.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     4096,
		WindowAckSize: rtmpprotocol.DefaultWindowAckSize,
		PeerBandwidth: rtmpprotocol.DefaultWindowAckSize,
		ReadTimeout:   30 * time.Second,
		WriteQueue:    1024,
	}
}

// WithDefaults fills unset fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.ChunkSize == 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.WindowAckSize == 0 {
		o.WindowAckSize = d.WindowAckSize
	}
	if o.PeerBandwidth == 0 {
		o.PeerBandwidth = d.PeerBandwidth
	}
	if o.WriteQueue == 0 {
		o.WriteQueue = d.WriteQueue
	}
	return o
}
