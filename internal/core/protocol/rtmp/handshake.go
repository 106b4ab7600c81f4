// If you are AI: This file implements the RTMP handshake as a buffer-driven state machine.
// The server consumes C0C1 then C2; the client sends C0C1 then consumes S0S1S2.

package rtmp

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrInvalidVersion  = errors.New("invalid RTMP version")
	ErrHandshakeFailed = errors.New("handshake failed")
)

// HandshakeState is the block the handshake expects next.
type HandshakeState int

const (
	HandshakeC0C1 HandshakeState = iota
	HandshakeC2
	HandshakeS0S1S2
	HandshakeComplete
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeC0C1:
		return "c0c1"
	case HandshakeC2:
		return "c2"
	case HandshakeS0S1S2:
		return "s0s1s2"
	case HandshakeComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Handshake tracks one side of the simple (non-digest) RTMP handshake.
type Handshake struct {
	state  HandshakeState
	client bool
	rnd    *rand.Rand
	local  []byte // C1 or S1 we generated
	peer   []byte // C1 or S1 we received
}

// NewServerHandshake creates the server side, waiting for C0C1.
func NewServerHandshake() *Handshake {
	return NewHandshakeWithSource(false, rand.NewSource(time.Now().UnixNano()))
}

// NewClientHandshake creates the client side. Start must be sent before feeding input.
func NewClientHandshake() *Handshake {
	return NewHandshakeWithSource(true, rand.NewSource(time.Now().UnixNano()))
}

// NewHandshakeWithSource creates a handshake whose random block comes from src.
// The random payload carries no security property; any source will do.
func NewHandshakeWithSource(client bool, src rand.Source) *Handshake {
	h := &Handshake{client: client, rnd: rand.New(src)}
	if client {
		h.state = HandshakeS0S1S2
	} else {
		h.state = HandshakeC0C1
	}
	return h
}

// State returns the current state.
func (h *Handshake) State() HandshakeState {
	return h.state
}

// Complete reports whether the handshake has finished.
func (h *Handshake) Complete() bool {
	return h.state == HandshakeComplete
}

// Start returns C0C1 for the client side and nil for the server side.
func (h *Handshake) Start() []byte {
	if !h.client {
		return nil
	}
	h.local = h.randomBlock()
	out := make([]byte, 0, HandshakeC0C1Size)
	out = append(out, RTMPVersion)
	return append(out, h.local...)
}

// Feed consumes handshake input. It returns the bytes consumed and any reply to send.
// consumed == 0 with a nil error means more input is needed.
// Bytes after the final block belong to the chunk stream and are not consumed.
func (h *Handshake) Feed(data []byte) (int, []byte, error) {
	switch h.state {
	case HandshakeC0C1:
		if len(data) < HandshakeC0C1Size {
			return 0, nil, nil
		}
		if data[0] != RTMPVersion {
			return 0, nil, errors.Wrapf(ErrInvalidVersion, "c0 %d", data[0])
		}
		h.peer = append([]byte(nil), data[1:HandshakeC0C1Size]...)
		h.local = h.randomBlock()
		reply := make([]byte, 0, HandshakeS0S1S2Size)
		reply = append(reply, RTMPVersion)
		reply = append(reply, h.local...)
		reply = append(reply, h.peer...)
		h.state = HandshakeC2
		return HandshakeC0C1Size, reply, nil

	case HandshakeC2:
		if len(data) < HandshakeC2Size {
			return 0, nil, nil
		}
		h.state = HandshakeComplete
		return HandshakeC2Size, nil, nil

	case HandshakeS0S1S2:
		if h.local == nil {
			return 0, nil, errors.Wrap(ErrHandshakeFailed, "c0c1 not sent")
		}
		if len(data) < 1 {
			return 0, nil, nil
		}
		if data[0] != RTMPVersion {
			return 0, nil, errors.Wrapf(ErrInvalidVersion, "s0 %d", data[0])
		}
		if len(data) < HandshakeS0S1S2Size {
			return 0, nil, nil
		}
		h.peer = append([]byte(nil), data[1:1+HandshakeBlockSize]...)
		h.state = HandshakeComplete
		return HandshakeS0S1S2Size, append([]byte(nil), h.peer...), nil

	default:
		return 0, nil, nil
	}
}

// randomBlock builds C1/S1: 4-byte time and 4-byte version, both zero, then random bytes.
func (h *Handshake) randomBlock() []byte {
	block := make([]byte, HandshakeBlockSize)
	h.rnd.Read(block[8:])
	return block
}
