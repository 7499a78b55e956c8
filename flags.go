package netsio

import "sync/atomic"

// flags holds the process-wide bridge state documented in the data model:
// each field has exactly one writer goroutine (noted per field) and is
// read racily elsewhere via atomic loads, which is sufficient because the
// reader only observes transitions at polling points.
type flags struct {
	// enabled is set by DEVICE_CONNECTED and cleared by
	// DEVICE_DISCONNECTED; written only by the network receive loop.
	enabled atomic.Bool

	// syncWait is set by the emulator-facing goroutine when issuing a
	// sync handshake, and cleared by the network receive loop on
	// SYNC_RESPONSE. While true, the emulator is expected to halt.
	syncWait atomic.Bool

	// cmdLine mirrors the virtual SIO command line; written only by the
	// emulator-facing goroutine via ToggleCmd.
	cmdLine atomic.Bool

	// syncNum is the tag the next COMMAND_OFF_SYNC will carry, so the last
	// tag issued is syncNum-1; written only by the emulator-facing goroutine.
	syncNum atomic.Uint32

	// nextWriteSize is reported by SYNC_RESPONSE; written only by the
	// network receive loop.
	nextWriteSize atomic.Uint32

	// lastBaud records the most recently requested SPEED_CHANGE baud.
	// Informational only — see DESIGN.md on why it is not applied.
	lastBaud atomic.Uint32
}

func (f *flags) setEnabled(v bool)   { f.enabled.Store(v) }
func (f *flags) isEnabled() bool     { return f.enabled.Load() }
func (f *flags) setSyncWait(v bool)  { f.syncWait.Store(v) }
func (f *flags) isSyncWait() bool    { return f.syncWait.Load() }
func (f *flags) setCmdLine(v bool)   { f.cmdLine.Store(v) }
func (f *flags) isCmdLine() bool     { return f.cmdLine.Load() }
func (f *flags) currentSyncNum() uint8 {
	return uint8(f.syncNum.Load())
}
func (f *flags) nextSyncNum() uint8 {
	return uint8(f.syncNum.Add(1) - 1)
}
