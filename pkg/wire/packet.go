package wire

import "encoding/binary"

// SyncAck payload carried by a SYNC_RESPONSE packet.
type SyncAck struct {
	SyncNum   uint8
	AckType   uint8 // 0 = NAK, 1 = ACK
	AckByte   uint8
	WriteSize uint16
}

// Packet is the decoded form of a single NetSIO datagram. Only the fields
// relevant to Opcode are meaningful; the rest are zero.
type Packet struct {
	Opcode Opcode
	Byte   byte    // DATA_BYTE payload / CREDIT_STATUS status / CREDIT_UPDATE grant / COMMAND_OFF_SYNC tag
	Block  []byte  // DATA_BLOCK payload, exactly as received after the opcode byte
	Sync   SyncAck // SYNC_RESPONSE payload
	Baud   uint32  // SPEED_CHANGE payload
}

// minLen is the minimum datagram length (including the opcode byte)
// required to decode each opcode.
var minLen = map[Opcode]int{
	DataByte:           2,
	DataBlock:          2,
	CommandOn:          1,
	CommandOff:         1,
	CommandOffSync:     2,
	SyncResponse:       6,
	PingRequest:        1,
	PingResponse:       1,
	AliveRequest:       1,
	AliveResponse:      1,
	CreditStatus:       2,
	CreditUpdate:       2,
	DeviceConnected:    1,
	DeviceDisconnected: 1,
	SpeedChange:        5,
	ProceedOn:          1,
	ProceedOff:         1,
	InterruptOn:        1,
	InterruptOff:       1,
}

// Decode parses a single inbound datagram into a Packet. It returns
// ErrUnknownOpcode for an unrecognized leading byte, and ErrShortPacket when
// the buffer is below the per-opcode minimum length.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < 1 {
		return Packet{}, ErrShortPacket
	}
	op := Opcode(buf[0])
	want, known := minLen[op]
	if !known {
		return Packet{}, ErrUnknownOpcode
	}
	if len(buf) < want {
		return Packet{}, ErrShortPacket
	}

	p := Packet{Opcode: op}
	switch op {
	case DataByte:
		p.Byte = buf[1]
	case DataBlock:
		p.Block = append([]byte(nil), buf[1:]...)
	case CommandOffSync:
		p.Byte = buf[1]
	case SyncResponse:
		p.Sync = SyncAck{
			SyncNum:   buf[1],
			AckType:   buf[2],
			AckByte:   buf[3],
			WriteSize: binary.LittleEndian.Uint16(buf[4:6]),
		}
	case CreditStatus, CreditUpdate:
		p.Byte = buf[1]
	case SpeedChange:
		p.Baud = binary.LittleEndian.Uint32(buf[1:5])
	}
	return p, nil
}

// Encode renders a Packet to its wire form. DATA_BLOCK always gets the
// trailing pad byte appended, per the outbound contract.
func Encode(p Packet) []byte {
	switch p.Opcode {
	case DataByte:
		return []byte{byte(DataByte), p.Byte}
	case DataBlock:
		out := make([]byte, 0, len(p.Block)+2)
		out = append(out, byte(DataBlock))
		out = append(out, p.Block...)
		out = append(out, DataBlockPad)
		return out
	case CommandOn, CommandOff:
		return []byte{byte(p.Opcode)}
	case CommandOffSync:
		return []byte{byte(CommandOffSync), p.Byte}
	case SyncResponse:
		buf := make([]byte, 6)
		buf[0] = byte(SyncResponse)
		buf[1] = p.Sync.SyncNum
		buf[2] = p.Sync.AckType
		buf[3] = p.Sync.AckByte
		binary.LittleEndian.PutUint16(buf[4:6], p.Sync.WriteSize)
		return buf
	case PingRequest, PingResponse, AliveRequest, AliveResponse,
		DeviceConnected, DeviceDisconnected,
		ProceedOn, ProceedOff, InterruptOn, InterruptOff:
		return []byte{byte(p.Opcode)}
	case CreditStatus, CreditUpdate:
		return []byte{byte(p.Opcode), p.Byte}
	case SpeedChange:
		buf := make([]byte, 5)
		buf[0] = byte(SpeedChange)
		binary.LittleEndian.PutUint32(buf[1:5], p.Baud)
		return buf
	default:
		return []byte{byte(p.Opcode)}
	}
}

// EncodeDataBlock builds the wire bytes for a DATA_BLOCK packet carrying
// block, without round-tripping through a Packet value. len(block) must be
// in [1, MaxBlockLen]; callers are expected to validate bounds before
// calling (see bridge SendBlock).
func EncodeDataBlock(block []byte) []byte {
	return Encode(Packet{Opcode: DataBlock, Block: block})
}
