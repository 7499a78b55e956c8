// Package wire implements the NetSIO packet codec: pure encode/decode
// functions between opcode-tagged byte buffers and typed Packet values.
// Encoding and decoding never perform I/O.
package wire

import "fmt"

// Opcode identifies a NetSIO packet type. Values are part of the bridge's
// external ABI — see DESIGN.md for the resolution of the opcode numbering
// left unspecified by the distilled specification.
type Opcode byte

const (
	DataByte           Opcode = 0x01
	DataBlock          Opcode = 0x02
	DeviceDisconnected Opcode = 0x03
	DeviceConnected    Opcode = 0x04
	CommandOff         Opcode = 0x05
	CommandOn          Opcode = 0x06
	CommandOffSync     Opcode = 0x07
	SyncResponse       Opcode = 0x09
	PingRequest        Opcode = 0x0A
	PingResponse       Opcode = 0x0B
	AliveRequest       Opcode = 0x0C
	AliveResponse      Opcode = 0x0D
	CreditStatus       Opcode = 0x11
	CreditUpdate       Opcode = 0x12
	SpeedChange        Opcode = 0x80
	ProceedOn          Opcode = 0x81
	ProceedOff         Opcode = 0x82
	InterruptOn        Opcode = 0x83
	InterruptOff       Opcode = 0x84
)

var opcodeNames = map[Opcode]string{
	DataByte:           "DATA_BYTE",
	DataBlock:          "DATA_BLOCK",
	DeviceDisconnected: "DEVICE_DISCONNECTED",
	DeviceConnected:    "DEVICE_CONNECTED",
	CommandOff:         "COMMAND_OFF",
	CommandOn:          "COMMAND_ON",
	CommandOffSync:     "COMMAND_OFF_SYNC",
	SyncResponse:       "SYNC_RESPONSE",
	PingRequest:        "PING_REQUEST",
	PingResponse:       "PING_RESPONSE",
	AliveRequest:       "ALIVE_REQUEST",
	AliveResponse:      "ALIVE_RESPONSE",
	CreditStatus:       "CREDIT_STATUS",
	CreditUpdate:       "CREDIT_UPDATE",
	SpeedChange:        "SPEED_CHANGE",
	ProceedOn:          "PROCEED_ON",
	ProceedOff:         "PROCEED_OFF",
	InterruptOn:        "INTERRUPT_ON",
	InterruptOff:       "INTERRUPT_OFF",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(o))
}

// DataBlockPad is appended to an outbound DATA_BLOCK payload; FujiNet-PC
// rejects the packet otherwise. Inbound DATA_BLOCKs are not assumed to
// carry it.
const DataBlockPad byte = 0xFF

// MaxBlockLen is the largest payload send_block will accept.
const MaxBlockLen = 512
