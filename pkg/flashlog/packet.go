package flashlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// PacketType identifies the payload of a packet.
type PacketType uint8

// Packet types. 0x00 and 0xFF are reserved so a zeroed or erased byte is
// never a valid type.
const (
	TypeIMU    PacketType = 0x01 // bmi323.Sample
	TypeAccel  PacketType = 0x02 // bmi323.Accel
	TypeGyro   PacketType = 0x03 // bmi323.Gyro
	TypeText   PacketType = 0x04 // UTF-8 text
	TypeMarker PacketType = 0x05 // Marker
)

var typeNames = map[PacketType]string{
	TypeIMU:    "imu",
	TypeAccel:  "accel",
	TypeGyro:   "gyro",
	TypeText:   "text",
	TypeMarker: "marker",
}

// Valid reports whether t is a known type.
func (t PacketType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// String implements fmt.Stringer.
func (t PacketType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(0x%02x)", uint8(t))
}

// ParsePacketType looks up a type by name.
func ParsePacketType(name string) (PacketType, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Record layout, little endian:
//
//	magic(1) type(1) length(2) payload(length) crc32(4)
//
// The CRC (IEEE) covers type, length and payload.
const (
	packetMagic = 0xF1
	headerSize  = 4
	crcSize     = 4
	// Overhead is the number of bytes a packet adds to its payload.
	Overhead = headerSize + crcSize
	// MaxPayload is the largest payload a packet can carry.
	MaxPayload = 0xFFFF
)

// Packet is a record read from the log.
type Packet struct {
	Addr    uint64 // device address of the record
	Type    PacketType
	Payload []byte
}

// Size is the number of bytes the packet occupies.
func (p Packet) Size() uint64 {
	return uint64(Overhead + len(p.Payload))
}

// EncodePacket frames payload.
func EncodePacket(typ PacketType, payload []byte) ([]byte, error) {
	if !typ.Valid() {
		return nil, ErrType
	}
	if len(payload) > MaxPayload {
		return nil, ErrBounds
	}
	b := make([]byte, headerSize+len(payload)+crcSize)
	b[0], b[1] = packetMagic, byte(typ)
	binary.LittleEndian.PutUint16(b[2:], uint16(len(payload)))
	copy(b[headerSize:], payload)
	n := headerSize + len(payload)
	binary.LittleEndian.PutUint32(b[n:], crc32.ChecksumIEEE(b[1:n]))
	return b, nil
}

// decodeHeader validates a header and returns the payload length.
func decodeHeader(h []byte) (PacketType, int, error) {
	if h[0] != packetMagic {
		return 0, 0, ErrChecksum
	}
	typ := PacketType(h[1])
	if !typ.Valid() {
		return typ, 0, ErrType
	}
	return typ, int(binary.LittleEndian.Uint16(h[2:])), nil
}

// checkRecord verifies the CRC of a complete record.
func checkRecord(rec []byte) error {
	n := len(rec) - crcSize
	if crc32.ChecksumIEEE(rec[1:n]) != binary.LittleEndian.Uint32(rec[n:]) {
		return ErrChecksum
	}
	return nil
}

// DecodePacket decodes the record at the start of b. Packet.Addr is left 0.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrBounds
	}
	typ, n, err := decodeHeader(b)
	if err != nil {
		return Packet{}, err
	}
	if len(b) < Overhead+n {
		return Packet{}, ErrBounds
	}
	if err := checkRecord(b[:Overhead+n]); err != nil {
		return Packet{}, err
	}
	return Packet{Type: typ, Payload: b[headerSize : headerSize+n]}, nil
}
