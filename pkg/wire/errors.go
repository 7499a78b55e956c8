package wire

import "errors"

var (
	// ErrShortPacket is returned when a packet is shorter than the
	// per-opcode minimum length required to decode it.
	ErrShortPacket = errors.New("wire: packet shorter than opcode minimum")
	// ErrUnknownOpcode is returned when the leading byte does not match
	// any known opcode.
	ErrUnknownOpcode = errors.New("wire: unknown opcode")
)
