// Package transport implements the UDP datagram socket the bridge uses to
// talk to the FujiNet-PC peer: bind, learn the peer's return address from
// the first inbound datagram, and send/receive raw NetSIO datagrams.
package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// maxDatagram is comfortably larger than the largest NetSIO packet
// (DATA_BLOCK: 1 opcode + 512 payload + 1 pad).
const maxDatagram = 2048

// Socket binds a UDP endpoint and tracks the single peer it has heard from.
// Send and Recv are both safe to call concurrently with each other; Recv is
// expected to be driven from a single dedicated goroutine (the bridge's
// receive loop, started by netsio.Init).
type Socket struct {
	conn *net.UDPConn

	mu   sync.Mutex
	peer *net.UDPAddr

	peerKnown atomic.Bool
}

// Listen binds to 0.0.0.0:port.
func Listen(port uint16) (*Socket, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: int(port)}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind %d: %w", port, err)
	}
	log.Infof("netsio: bound UDP socket on port %d", port)
	return &Socket{conn: conn}, nil
}

// LocalAddr returns the bound local address.
func (s *Socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the underlying socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// PeerKnown reports whether a peer address has been learned yet.
func (s *Socket) PeerKnown() bool {
	return s.peerKnown.Load()
}

func (s *Socket) setPeer(addr *net.UDPAddr) {
	s.mu.Lock()
	s.peer = addr
	s.mu.Unlock()
	s.peerKnown.Store(true)
}

func (s *Socket) currentPeer() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Send transmits payload to the learned peer. If no peer is known yet, the
// send is dropped and logged rather than returning an error — per the
// invariant that outbound sends are only attempted once a peer is known.
func (s *Socket) Send(payload []byte) error {
	if !s.peerKnown.Load() {
		log.Debug("netsio: dropping send, no peer known yet")
		return nil
	}
	peer := s.currentPeer()

	n, err := s.conn.WriteToUDP(payload, peer)
	if err != nil && isEINTR(err) {
		// Transient EINTR: retry exactly once.
		n, err = s.conn.WriteToUDP(payload, peer)
	}
	if err != nil {
		log.Warnf("netsio: sendto %s failed: %v", peer, err)
		return nil
	}
	if n != len(payload) {
		log.Warnf("netsio: partial send to %s (%d of %d bytes)", peer, n, len(payload))
	}
	return nil
}

// Recv blocks until a datagram arrives, learns the peer's address from it,
// and returns a copy of the payload. A transient EINTR retries exactly
// once before the error is surfaced to the caller.
func (s *Socket) Recv() ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, maxDatagram)

	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil && isEINTR(err) {
		n, addr, err = s.conn.ReadFromUDP(buf)
	}
	if err != nil {
		return nil, nil, err
	}
	s.setPeer(addr)
	return buf[:n], addr, nil
}
