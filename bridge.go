// Package netsio implements the NetSIO bridge: a bidirectional adapter that
// tunnels an Atari 8-bit emulator's SIO bus over UDP to a FujiNet-PC peer.
// A Bridge is driven from two sides: the emulator calls PutByte/GetByte/
// ToggleCmd/SendByte/SendBlock synchronously as it executes SIO bus cycles,
// while Bridge's own goroutine (started by Init) drives the NetSIO
// protocol engine off the UDP socket.
package netsio

import (
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fujinet-community/netsio-bridge/internal/fifo"
	"github.com/fujinet-community/netsio-bridge/pkg/config"
	"github.com/fujinet-community/netsio-bridge/pkg/transport"
	"github.com/fujinet-community/netsio-bridge/pkg/wire"
)

// respBufferCap is sized for the largest synthesized response the state
// machine assembles (status replies top out at 6 bytes; the larger
// headroom leaves room for longer responses without changing the wire
// contract).
const respBufferCap = 260

// defaultAudfChan3 is the POKEY channel-3 divisor assumed until the
// emulator reports otherwise via SetAudfChan3; it corresponds to the
// standard Atari SIO baud rate.
const defaultAudfChan3 = 0x28

// Bridge is the SIO bridge state machine plus the NetSIO protocol engine
// that feeds it. Construct with Init.
type Bridge struct {
	sock *transport.Socket
	rx   *fifo.Queue

	creditGrant uint8
	syncTimeout time.Duration

	flags flags

	mu            sync.Mutex
	state         State
	cmdFrame      [5]byte
	cmdIndex      int
	respBuffer    [respBufferCap]byte
	dataIndex     int
	expectedBytes int
	audfChan3     uint8

	watchdogMu sync.Mutex
	watchdog   *time.Timer

	onEnabledChanged func(bool)
	onProceed        func(bool)
	onInterrupt      func(bool)
	onSerinDelay     func(delayUnits uint32)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Init binds the UDP socket per cfg and starts the network receive loop.
// Call Close to stop it.
func Init(cfg config.Config) (*Bridge, error) {
	sock, err := transport.Listen(cfg.Port)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		sock:        sock,
		rx:          fifo.New(0),
		creditGrant: cfg.CreditGrant,
		syncTimeout: cfg.SyncTimeout,
		audfChan3:   defaultAudfChan3,
		stopCh:      make(chan struct{}),
	}
	b.wg.Add(1)
	go b.receiveLoop()
	return b, nil
}

// LocalAddr returns the bridge's bound UDP address, mainly useful in tests
// that bind to port 0 and need to learn the assigned port.
func (b *Bridge) LocalAddr() net.Addr {
	return b.sock.LocalAddr()
}

// Close stops the receive loop and releases the socket.
func (b *Bridge) Close() error {
	close(b.stopCh)
	err := b.sock.Close()
	b.wg.Wait()
	b.cancelWatchdog()
	return err
}

// Available reports the number of bytes buffered from the peer, waiting
// to be delivered to the emulator via GetByte.
func (b *Bridge) Available() int {
	return b.rx.Available()
}

// IsEnabled reflects the peer's most recent DEVICE_CONNECTED/
// DEVICE_DISCONNECTED.
func (b *Bridge) IsEnabled() bool {
	return b.flags.isEnabled()
}

// IsSyncWait reports whether the emulator must halt pending a
// SYNC_RESPONSE. The emulator's scheduler is expected to poll this and not
// advance CPU cycles while it is true.
func (b *Bridge) IsSyncWait() bool {
	return b.flags.isSyncWait()
}

// SetAudfChan3 records the emulator's current POKEY channel-3 audio
// frequency divisor, used by the ST_FRAME pacing formula. The emulator
// owns this register; the bridge only reads the value it last reported.
func (b *Bridge) SetAudfChan3(v uint8) {
	b.mu.Lock()
	b.audfChan3 = v
	b.mu.Unlock()
}

// LastBaud returns the most recently requested SPEED_CHANGE baud rate, or
// 0 if none has been received. Informational only — see DESIGN.md.
func (b *Bridge) LastBaud() uint32 {
	return b.flags.lastBaud.Load()
}

// SetOnEnabledChanged registers a callback invoked whenever IsEnabled's
// value flips, from the network receive goroutine.
func (b *Bridge) SetOnEnabledChanged(fn func(enabled bool)) {
	b.onEnabledChanged = fn
}

// SetSerinDelayHandler registers the callback the bridge uses to schedule
// the emulator's next serial-in interrupt (POKEY_DELAYED_SERIN_IRQ in the
// source emulator). Units are POKEY cycle counts, not wall-clock time.
func (b *Bridge) SetSerinDelayHandler(fn func(delayUnits uint32)) {
	b.onSerinDelay = fn
}

// SetProceedHandler and SetInterruptHandler register reserved hooks for
// toggling the emulator's PIA CA1/CB1 lines on PROCEED_ON/OFF and
// INTERRUPT_ON/OFF. Left unwired by default — see DESIGN.md Open
// Questions on signal polarity.
func (b *Bridge) SetProceedHandler(fn func(asserted bool))   { b.onProceed = fn }
func (b *Bridge) SetInterruptHandler(fn func(asserted bool)) { b.onInterrupt = fn }

func (b *Bridge) scheduleSerinDelay(delayUnits uint32) {
	if b.onSerinDelay != nil {
		b.onSerinDelay(delayUnits)
	}
}

// SendByte sends an unconditional DATA_BYTE to the peer, independent of the
// bridge's state machine.
func (b *Bridge) SendByte(data byte) error {
	log.Debugf("netsio: send byte: %02X", data)
	return b.sock.Send(wire.Encode(wire.Packet{Opcode: wire.DataByte, Byte: data}))
}

// SendBlock sends an unconditional DATA_BLOCK to the peer. block must be
// 1..512 bytes.
func (b *Bridge) SendBlock(block []byte) error {
	if len(block) == 0 {
		return ErrBlockEmpty
	}
	if len(block) > wire.MaxBlockLen {
		return ErrBlockTooLarge
	}
	log.Debugf("netsio: send block, %d bytes: %s", len(block), hexDump(block))
	return b.sock.Send(wire.EncodeDataBlock(block))
}

// PutByte is called when the emulator transmits a byte on the SIO command
// frame. Only meaningful in ST_CMD; any other state is a self-loop.
func (b *Bridge) PutByte(out byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StCmd {
		return
	}
	if b.cmdIndex < 5 {
		b.cmdFrame[b.cmdIndex] = out
		b.cmdIndex++
	}
	if b.cmdIndex == 5 {
		b.state = StAck
		b.scheduleSerinDelay(SerinInterval + AckInterval)
	}
}

// GetByte is called when the emulator reads a byte from the SIO bus. It
// drives ST_ACK/ST_FRAME delivery and, via the registered serin-delay
// handler, schedules the emulator's next serial-in interrupt.
func (b *Bridge) GetByte() byte {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()

	switch state {
	case StAck:
		return b.getByteAck()
	case StFrame:
		return b.getByteFrame()
	case StData:
		// Streaming payload bytes directly from the RX queue — reserved
		// for a future raw-passthrough mode; not reached by the
		// documented command flows in spec.md.
		return b.rx.PopBlocking()
	default:
		return 0
	}
}

func (b *Bridge) getByteAck() byte {
	ack := b.rx.PopBlocking()
	if ack != sioAck {
		b.mu.Lock()
		b.state = StIdle
		b.mu.Unlock()
		log.Debug("netsio: state ACK: unexpected byte, resetting to idle")
		return 0
	}

	b.mu.Lock()
	cmdOp := b.cmdFrame[1]
	b.mu.Unlock()

	switch cmdOp {
	case cmdReadPercom:
		b.scheduleSerinDelay(SerinInterval)
		return 0
	case cmdReadSector:
		b.scheduleSerinDelay(SerinInterval << 2)
		return 0
	case cmdStatus, cmdStatusHiSpeed:
		return b.getByteStatusResponse()
	default:
		log.Debugf("netsio: ACK for command 0x%02X has no response shaping", cmdOp)
		return 0
	}
}

// getByteStatusResponse implements the Status/XF551-hispeed response
// shaping: synchronously consume 6 bytes from the peer (Complete + 4 data
// bytes + checksum), buffer them for replay, and return ACK immediately.
func (b *Bridge) getByteStatusResponse() byte {
	complete := b.rx.PopBlocking()
	if complete != sioComplete {
		b.mu.Lock()
		b.state = StIdle
		b.mu.Unlock()
		log.Debug("netsio: state ACK: no Complete after status command")
		return 0
	}

	var payload [6]byte
	payload[0] = complete
	for i := 1; i < 6; i++ {
		payload[i] = b.rx.PopBlocking()
	}

	b.mu.Lock()
	b.respBuffer[0] = sioComplete
	copy(b.respBuffer[1:6], payload[1:6])
	b.dataIndex = 0
	b.expectedBytes = 6
	b.state = StFrame
	b.mu.Unlock()

	b.scheduleSerinDelay(SerinInterval)
	return sioAck
}

func (b *Bridge) getByteFrame() byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dataIndex >= b.expectedBytes {
		log.Warn("netsio: invalid read frame, overrun in ST_FRAME")
		b.state = StIdle
		return 0
	}

	out := b.respBuffer[b.dataIndex]
	b.dataIndex++

	if b.dataIndex >= b.expectedBytes {
		b.state = StIdle
		return out
	}

	if b.dataIndex == 1 {
		b.scheduleSerinDelay(SerinInterval)
	} else {
		delay := (SerinInterval*uint32(b.audfChan3) - 1) / pokeyAudfDivisor
		b.scheduleSerinDelay(delay + 1)
	}
	return out
}
