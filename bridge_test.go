package netsio

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fujinet-community/netsio-bridge/pkg/config"
	"github.com/fujinet-community/netsio-bridge/pkg/wire"
)

// fakePeer is a minimal FujiNet-PC stand-in: a connected UDP socket talking
// to a Bridge bound to loopback.
type fakePeer struct {
	t    *testing.T
	conn *net.UDPConn
}

func newFakePeer(t *testing.T, b *Bridge) *fakePeer {
	t.Helper()
	conn, err := net.Dial("udp4", b.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &fakePeer{t: t, conn: conn.(*net.UDPConn)}
}

func (p *fakePeer) send(buf []byte) {
	p.t.Helper()
	_, err := p.conn.Write(buf)
	require.NoError(p.t, err)
}

func (p *fakePeer) recv() []byte {
	p.t.Helper()
	buf := make([]byte, 2048)
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := p.conn.Read(buf)
	require.NoError(p.t, err)
	return buf[:n]
}

// register has the peer send a PING_REQUEST so the bridge learns its
// return address, and asserts the PING_RESPONSE comes back.
func (p *fakePeer) register() {
	p.send(wire.Encode(wire.Packet{Opcode: wire.PingRequest}))
	pkt, err := wire.Decode(p.recv())
	require.NoError(p.t, err)
	assert.Equal(p.t, wire.PingResponse, pkt.Opcode)
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b, err := Init(config.Config{Port: 0, CreditGrant: 3})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPingRoundTrip(t *testing.T) {
	b := newTestBridge(t)
	peer := newFakePeer(t, b)

	peer.send(wire.Encode(wire.Packet{Opcode: wire.PingRequest}))
	pkt, err := wire.Decode(peer.recv())
	require.NoError(t, err)
	assert.Equal(t, wire.PingResponse, pkt.Opcode)
}

func TestDeviceConnectDisconnect(t *testing.T) {
	b := newTestBridge(t)
	peer := newFakePeer(t, b)

	var seen []bool
	b.SetOnEnabledChanged(func(enabled bool) { seen = append(seen, enabled) })

	peer.send(wire.Encode(wire.Packet{Opcode: wire.DeviceConnected}))
	require.Eventually(t, b.IsEnabled, time.Second, time.Millisecond)

	peer.send(wire.Encode(wire.Packet{Opcode: wire.DeviceDisconnected}))
	require.Eventually(t, func() bool { return !b.IsEnabled() }, time.Second, time.Millisecond)

	assert.Equal(t, []bool{true, false}, seen)
}

func TestCreditNegotiation(t *testing.T) {
	b := newTestBridge(t)
	peer := newFakePeer(t, b)

	peer.send(wire.Encode(wire.Packet{Opcode: wire.CreditStatus, Byte: 0}))
	pkt, err := wire.Decode(peer.recv())
	require.NoError(t, err)
	assert.Equal(t, wire.CreditUpdate, pkt.Opcode)
	assert.Equal(t, uint8(3), pkt.Byte)
}

// TestStatusCommandFlow drives the emulator side through a full SIO status
// command (ToggleCmd/PutByte x5/ToggleCmd), then plays the peer's side of
// the sync handshake and a status response frame, and checks the bytes the
// emulator reads back via GetByte.
func TestStatusCommandFlow(t *testing.T) {
	b := newTestBridge(t)
	peer := newFakePeer(t, b)
	peer.register()

	b.ToggleCmd(true)
	_ = peer.recv() // COMMAND_ON

	frame := []byte{0x31, cmdStatus, 0x00, 0x00, 0x00}
	for _, by := range frame {
		b.PutByte(by)
	}

	b.ToggleCmd(false)
	block, err := wire.Decode(peer.recv()) // DATA_BLOCK carrying the command frame
	require.NoError(t, err)
	assert.Equal(t, wire.DataBlock, block.Opcode)

	offSync, err := wire.Decode(peer.recv()) // COMMAND_OFF_SYNC with the sync tag
	require.NoError(t, err)
	require.Equal(t, wire.CommandOffSync, offSync.Opcode)
	tag := offSync.Byte

	require.True(t, b.IsSyncWait())

	peer.send(wire.Encode(wire.Packet{Opcode: wire.SyncResponse, Sync: wire.SyncAck{
		SyncNum: tag,
		AckType: 1,
		AckByte: sioAck,
	}}))
	require.Eventually(t, func() bool { return !b.IsSyncWait() }, time.Second, time.Millisecond)

	// Sent without Encode's automatic outbound pad byte: the peer's status
	// response frame is exactly Complete + 4 data bytes + checksum.
	peer.send(append([]byte{byte(wire.DataBlock)}, sioComplete, 0x01, 0x02, 0x03, 0x04, 0x0A))
	require.Eventually(t, func() bool { return b.Available() >= 6 }, time.Second, time.Millisecond)

	assert.Equal(t, sioAck, b.GetByte())

	var got []byte
	for i := 0; i < 6; i++ {
		got = append(got, b.GetByte())
	}
	assert.Equal(t, []byte{sioComplete, 0x01, 0x02, 0x03, 0x04, 0x0A}, got)
}

func TestSyncNak(t *testing.T) {
	b := newTestBridge(t)
	peer := newFakePeer(t, b)
	peer.register()

	b.ToggleCmd(true)
	_ = peer.recv()
	for _, by := range [5]byte{0x31, cmdStatus, 0, 0, 0} {
		b.PutByte(by)
	}
	b.ToggleCmd(false)
	_ = peer.recv()
	offSync, err := wire.Decode(peer.recv())
	require.NoError(t, err)
	tag := offSync.Byte

	peer.send(wire.Encode(wire.Packet{Opcode: wire.SyncResponse, Sync: wire.SyncAck{
		SyncNum: tag,
		AckType: 0,
	}}))
	require.Eventually(t, func() bool { return !b.IsSyncWait() }, time.Second, time.Millisecond)

	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	assert.Equal(t, StIdle, state)
}

func TestSyncTagMismatch(t *testing.T) {
	b := newTestBridge(t)
	peer := newFakePeer(t, b)
	peer.register()

	b.ToggleCmd(true)
	_ = peer.recv()
	for _, by := range [5]byte{0x31, cmdStatus, 0, 0, 0} {
		b.PutByte(by)
	}
	b.ToggleCmd(false)
	_ = peer.recv()
	_, err := wire.Decode(peer.recv())
	require.NoError(t, err)

	peer.send(wire.Encode(wire.Packet{Opcode: wire.SyncResponse, Sync: wire.SyncAck{
		SyncNum: 0xFF, // doesn't match the outstanding tag
		AckType: 1,
		AckByte: sioAck,
	}}))
	require.Eventually(t, func() bool { return !b.IsSyncWait() }, time.Second, time.Millisecond)

	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	assert.Equal(t, StIdle, state)
}
