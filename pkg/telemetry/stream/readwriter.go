// Package stream frames packets over a byte stream such as a TCP
// connection or a serial port.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// DefaultMaxPacket bounds the size of a received packet.
const DefaultMaxPacket = 64 * 1024

// ErrPacketTooLarge is returned when a length prefix exceeds MaxPacket.
var ErrPacketTooLarge = errors.New("stream: packet too large")

// ReadWriter prefixes each packet with its length in 4 little-endian bytes.
type ReadWriter struct {
	io.ReadWriter
	MaxPacket uint32
}

// New creates a ReadWriter with DefaultMaxPacket.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s, MaxPacket: DefaultMaxPacket}
}

// ReadPacket implements PacketReader. A stream ending between packets
// returns io.EOF, inside a packet io.ErrUnexpectedEOF.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(p.ReadWriter, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if max := p.MaxPacket; max > 0 && size > max {
		return nil, ErrPacketTooLarge
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.ReadWriter, pkt); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if max := p.MaxPacket; max > 0 && uint64(len(pkt)) > uint64(max) {
		return ErrPacketTooLarge
	}
	buf := make([]byte, 4, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	_, err := p.Write(append(buf, pkt...))
	return err
}
