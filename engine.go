package netsio

import (
	"errors"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/fujinet-community/netsio-bridge/pkg/wire"
)

// receiveLoop is the dedicated network receive goroutine: one inbound
// datagram in, one dispatch out. It owns enabled, the RX queue's tail, and
// the syncWait-clearing side of every sync handshake.
func (b *Bridge) receiveLoop() {
	defer b.wg.Done()
	for {
		payload, _, err := b.sock.Recv()
		if err != nil {
			select {
			case <-b.stopCh:
				return
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				log.Warnf("netsio: recv: %v", err)
				continue
			}
			log.Errorf("netsio: recv failed, stopping receive loop: %v", err)
			return
		}
		b.handleDatagram(payload)
	}
}

func (b *Bridge) handleDatagram(payload []byte) {
	pkt, err := wire.Decode(payload)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownOpcode) {
			log.Warnf("netsio: recv: unknown opcode 0x%02X, length %d", payload[0], len(payload))
		} else {
			log.Warnf("netsio: recv: %v (length %d)", err, len(payload))
		}
		return
	}

	switch pkt.Opcode {
	case wire.PingRequest:
		log.Debug("netsio: recv: PING -> PONG")
		_ = b.sock.Send(wire.Encode(wire.Packet{Opcode: wire.PingResponse}))

	case wire.AliveRequest:
		log.Debug("netsio: recv: alive request -> alive response")
		_ = b.sock.Send(wire.Encode(wire.Packet{Opcode: wire.AliveResponse}))

	case wire.DeviceConnected:
		log.Info("netsio: recv: device connected")
		b.setEnabled(true)

	case wire.DeviceDisconnected:
		log.Info("netsio: recv: device disconnected")
		b.setEnabled(false)

	case wire.CreditStatus:
		log.Debug("netsio: recv: credit status -> credit update")
		_ = b.sock.Send(wire.Encode(wire.Packet{Opcode: wire.CreditUpdate, Byte: b.creditGrant}))

	case wire.SpeedChange:
		log.Infof("netsio: recv: requested baud rate %d", pkt.Baud)
		b.flags.lastBaud.Store(pkt.Baud)

	case wire.DataByte:
		log.Debugf("netsio: recv: data byte: %02X", pkt.Byte)
		b.rx.Push([]byte{pkt.Byte})

	case wire.DataBlock:
		log.Debugf("netsio: recv: data block %d bytes: %s", len(pkt.Block), hexDump(pkt.Block))
		b.rx.Push(pkt.Block)

	case wire.SyncResponse:
		b.handleSyncResponse(pkt.Sync)

	case wire.ProceedOn:
		if b.onProceed != nil {
			b.onProceed(true)
		}
	case wire.ProceedOff:
		if b.onProceed != nil {
			b.onProceed(false)
		}
	case wire.InterruptOn:
		if b.onInterrupt != nil {
			b.onInterrupt(true)
		}
	case wire.InterruptOff:
		if b.onInterrupt != nil {
			b.onInterrupt(false)
		}

	default:
		log.Warnf("netsio: recv: unhandled opcode %v", pkt.Opcode)
	}
}

func (b *Bridge) handleSyncResponse(ack wire.SyncAck) {
	b.flags.nextWriteSize.Store(uint32(ack.WriteSize))

	expected := b.flags.currentSyncNum() - 1
	if ack.SyncNum != expected {
		log.Warnf("netsio: recv: sync-response: got %d, want %d", ack.SyncNum, expected)
		b.setState(StIdle)
		b.flags.setSyncWait(false)
		b.disarmWatchdog()
		return
	}

	switch ack.AckType {
	case 0:
		log.Debugf("netsio: recv: sync %d NAK, dropping", ack.SyncNum)
		b.setState(StIdle)
	case 1:
		log.Debugf("netsio: recv: sync %d ACK byte=0x%02X", ack.SyncNum, ack.AckByte)
		b.rx.Push([]byte{ack.AckByte})
		b.setState(StAck)
	default:
		log.Warnf("netsio: recv: sync %d unknown ack_type %d", ack.SyncNum, ack.AckType)
		b.setState(StIdle)
	}

	b.flags.setSyncWait(false)
	b.disarmWatchdog()
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *Bridge) setEnabled(v bool) {
	changed := b.flags.isEnabled() != v
	b.flags.setEnabled(v)
	if changed && b.onEnabledChanged != nil {
		b.onEnabledChanged(v)
	}
}
