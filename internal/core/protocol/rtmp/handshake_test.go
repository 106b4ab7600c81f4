// If you are AI: This file tests the handshake state machine and the Conn read loop.

package rtmp

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"streamhub/internal/core/protocol/amf0"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBlock(seed byte) []byte {
	b := make([]byte, HandshakeBlockSize)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestServerHandshakeEchoesC1(t *testing.T) {
	h := NewHandshakeWithSource(false, rand.NewSource(1))
	assert.Nil(t, h.Start())

	c1 := fixedBlock(3)
	in := append([]byte{RTMPVersion}, c1...)
	in = append(in, 0xAB) // first byte of C2

	n, reply, err := h.Feed(in)
	require.NoError(t, err)
	assert.Equal(t, HandshakeC0C1Size, n)
	require.Len(t, reply, HandshakeS0S1S2Size)
	assert.Equal(t, byte(RTMPVersion), reply[0])
	assert.Equal(t, make([]byte, 8), reply[1:9], "s1 time and version are zero")
	assert.Equal(t, c1, reply[1+HandshakeBlockSize:], "s2 is c1 verbatim")
	assert.Equal(t, HandshakeC2, h.State())

	n, _, err = h.Feed(in[n:])
	require.NoError(t, err)
	assert.Zero(t, n, "partial c2 waits")

	n, reply, err = h.Feed(make([]byte, HandshakeC2Size+5))
	require.NoError(t, err)
	assert.Equal(t, HandshakeC2Size, n)
	assert.Nil(t, reply)
	assert.True(t, h.Complete())
}

func TestClientHandshakeEchoesS1(t *testing.T) {
	h := NewHandshakeWithSource(true, rand.NewSource(2))
	c0c1 := h.Start()
	require.Len(t, c0c1, HandshakeC0C1Size)
	assert.Equal(t, byte(RTMPVersion), c0c1[0])

	s1 := fixedBlock(9)
	in := append([]byte{RTMPVersion}, s1...)
	in = append(in, c0c1[1:]...)

	n, _, err := h.Feed(in[:100])
	require.NoError(t, err)
	assert.Zero(t, n)

	n, c2, err := h.Feed(in)
	require.NoError(t, err)
	assert.Equal(t, HandshakeS0S1S2Size, n)
	assert.Equal(t, s1, c2, "c2 is s1 verbatim")
	assert.True(t, h.Complete())
}

func TestHandshakeRejectsWrongVersion(t *testing.T) {
	srv := NewServerHandshake()
	in := append([]byte{6}, fixedBlock(0)...)
	_, _, err := srv.Feed(in)
	assert.True(t, errors.Is(err, ErrInvalidVersion))

	cli := NewClientHandshake()
	cli.Start()
	_, _, err = cli.Feed([]byte{9})
	assert.True(t, errors.Is(err, ErrInvalidVersion))
}

func TestHandshakeDeterministicWithSeed(t *testing.T) {
	a := NewHandshakeWithSource(true, rand.NewSource(7)).Start()
	b := NewHandshakeWithSource(true, rand.NewSource(7)).Start()
	assert.Equal(t, a, b)
}

func TestConnHandshakeAndCommand(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	server := NewConn(serverSide, false)
	client := NewConn(clientSide, true)

	got := make(chan *Message, 4)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Handshake(); err != nil {
			serverErr <- err
			return
		}
		serverErr <- server.ReadLoop(func(m *Message) error {
			got <- m
			return nil
		})
	}()

	require.NoError(t, client.Handshake())
	require.NoError(t, client.SetOutChunkSize(4096))
	require.NoError(t, client.WriteCommand(CSIDCommand, 0, amf0.Array{"connect", float64(1), amf0.Object{"app": "live"}}))

	select {
	case m := <-got:
		assert.Equal(t, byte(MessageTypeCommandAMF0), m.TypeID)
		cmd, err := amf0.DecodeCommand(m.Payload)
		require.NoError(t, err)
		assert.Equal(t, "connect", cmd[0])
		assert.Equal(t, "live", amf0.AsObject(cmd[2]).String("app"))
	case err := <-serverErr:
		t.Fatalf("server stopped: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connect")
	}
	assert.Equal(t, uint32(4096), server.InChunkSize())
}

func TestConnAnswersPing(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	server := NewConn(serverSide, false)
	client := NewConn(clientSide, true)
	go func() {
		if server.Handshake() == nil {
			_ = server.ReadLoop(func(*Message) error { return nil })
		}
	}()
	require.NoError(t, client.Handshake())

	pongs := make(chan uint32, 1)
	go func() {
		_ = client.ReadLoop(func(m *Message) error {
			if m.TypeID == MessageTypeUserCtrl {
				event, data, err := ParseUserControl(m.Payload)
				if err == nil && event == ControlPingResponse {
					ts, _ := ParseUint32(data)
					pongs <- ts
				}
			}
			return nil
		})
	}()

	ping := createUserControl(ControlPingRequest, 777)
	require.NoError(t, client.SendUserControl(ping))
	select {
	case ts := <-pongs:
		assert.Equal(t, uint32(777), ts)
	case <-time.After(2 * time.Second):
		t.Fatal("no ping response")
	}
}

func TestConnWriteTimeoutOnStalledPeer(t *testing.T) {
	local, peer := net.Pipe()
	defer local.Close()
	defer peer.Close()

	// the peer never reads
	c := NewConn(local, false)
	c.SetWriteTimeout(50 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- c.WriteMessage(CSIDVideo, NewMessage(MessageTypeVideo, 0, 1, make([]byte, 64*1024)))
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		var ne net.Error
		require.True(t, errors.As(err, &ne))
		assert.True(t, ne.Timeout())
	case <-time.After(2 * time.Second):
		t.Fatal("write blocked past its deadline")
	}
}
