package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSendDroppedUntilPeerKnown(t *testing.T) {
	sock, err := Listen(0)
	assert.NoError(t, err)
	defer sock.Close()

	assert.False(t, sock.PeerKnown())
	// Send before any peer is known must not error, and must not panic
	// on a nil peer address.
	assert.NoError(t, sock.Send([]byte{0x01}))
}

func TestSendRecvLearnsPeer(t *testing.T) {
	server, err := Listen(0)
	assert.NoError(t, err)
	defer server.Close()

	done := make(chan struct{})
	var got []byte
	go func() {
		defer close(done)
		payload, _, recvErr := server.Recv()
		assert.NoError(t, recvErr)
		got = payload
	}()

	// Bootstrap with a raw UDP client dialed at the server's bound address,
	// simulating the peer's first inbound datagram.
	raw, err := net.Dial("udp4", server.LocalAddr().String())
	assert.NoError(t, err)
	defer raw.Close()
	_, err = raw.Write([]byte{0x0A})
	assert.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server never received datagram")
	}
	assert.Equal(t, []byte{0x0A}, got)
	assert.True(t, server.PeerKnown())

	// Now that a peer is known, Send should reach it.
	clientConn := raw.(*net.UDPConn)
	assert.NoError(t, server.Send([]byte{0x0B}))
	reply := make([]byte, 8)
	clientConn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := clientConn.Read(reply)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x0B}, reply[:n])
}
