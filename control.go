package netsio

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fujinet-community/netsio-bridge/pkg/wire"
)

// testProbe is the canned device-probe frame (fujidev get adapter config
// request) used for bring-up diagnostics by TestCmd.
var testProbe = [5]byte{0x70, 0xE8, 0x00, 0x00, 0x59}

// ToggleCmd asserts or deasserts the virtual SIO command line: v=true
// sends COMMAND_ON and enters ST_CMD; v=false sends the accumulated
// command frame and a synced COMMAND_OFF_SYNC.
func (b *Bridge) ToggleCmd(v bool) {
	if v {
		b.cmdOn()
	} else {
		b.cmdOffSync()
	}
}

func (b *Bridge) cmdOn() {
	b.mu.Lock()
	b.cmdIndex = 0
	b.state = StCmd
	b.mu.Unlock()

	b.flags.setCmdLine(true)
	log.Debug("netsio: CMD ON")
	_ = b.sock.Send(wire.Encode(wire.Packet{Opcode: wire.CommandOn}))
}

func (b *Bridge) cmdOffSync() {
	b.mu.Lock()
	frame := b.cmdFrame
	b.state = StAck
	b.mu.Unlock()

	b.flags.setCmdLine(false)
	log.Debug("netsio: CMD OFF SYNC")
	_ = b.sock.Send(wire.EncodeDataBlock(frame[:]))

	tag := b.flags.nextSyncNum()
	_ = b.sock.Send(wire.Encode(wire.Packet{Opcode: wire.CommandOffSync, Byte: tag}))

	b.flags.setSyncWait(true)
	b.armWatchdog()
}

// TestCmd sends a canned device-probe frame bracketed by CMD-on/off, used
// for bring-up diagnostics.
func (b *Bridge) TestCmd() {
	b.cmdOn()
	b.mu.Lock()
	b.cmdFrame = testProbe
	b.cmdIndex = 5
	b.mu.Unlock()
	b.cmdOffSync()
}

// armWatchdog starts the optional sync-wait watchdog. A zero SyncTimeout
// (the default, matching spec.md's "no timeout exists at this layer")
// disables it entirely.
func (b *Bridge) armWatchdog() {
	if b.syncTimeout <= 0 {
		return
	}
	b.watchdogMu.Lock()
	defer b.watchdogMu.Unlock()
	if b.watchdog != nil {
		b.watchdog.Stop()
	}
	b.watchdog = time.AfterFunc(b.syncTimeout, func() {
		if !b.flags.isSyncWait() {
			return
		}
		log.Warnf("netsio: sync-wait watchdog fired after %s, no SYNC_RESPONSE", b.syncTimeout)
		b.flags.setSyncWait(false)
		b.mu.Lock()
		b.state = StIdle
		b.mu.Unlock()
	})
}

func (b *Bridge) cancelWatchdog() {
	b.watchdogMu.Lock()
	defer b.watchdogMu.Unlock()
	if b.watchdog != nil {
		b.watchdog.Stop()
	}
}

func (b *Bridge) disarmWatchdog() {
	b.watchdogMu.Lock()
	defer b.watchdogMu.Unlock()
	if b.watchdog != nil {
		b.watchdog.Stop()
		b.watchdog = nil
	}
}
