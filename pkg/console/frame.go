package console

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Seq is a frame sequence number, valid from 0x01 to 0xEF. Values from 0xF0
// are control bytes.
type Seq byte

// Next returns the sequence number after s.
func (s Seq) Next() Seq {
	if n := byte(s) + 1; n > 0 && n < seqLimit {
		return Seq(n)
	}
	return 1
}

// Valid reports whether s can lead a frame.
func (s Seq) Valid() bool {
	return s > 0 && s < seqLimit
}

const (
	seqLimit  = 0xF0
	syncByte  = 0xFF
	codeMask  = 0x8F
	lenShift  = 4
	lenInline = 7

	// MaxData is the largest frame payload.
	MaxData = 0x7F
)

// Code is the frame type.
type Code byte

// Frame codes.
const (
	CodeBegin Code = 0x01 // start(4) size(4)
	CodeData  Code = 0x02 // image bytes
	CodeEnd   Code = 0x03 // crc32(4)
	CodeText  Code = 0x04 // console text, ignored by the receiver
)

func (c Code) String() string {
	switch c {
	case CodeBegin:
		return "begin"
	case CodeData:
		return "data"
	case CodeEnd:
		return "end"
	case CodeText:
		return "text"
	}
	return fmt.Sprintf("code(0x%02x)", byte(c))
}

// ErrFrameTooLarge is returned for a payload over MaxData.
var ErrFrameTooLarge = errors.New("console: frame data too large")

// Frame is one unit of the stream.
type Frame struct {
	Seq  Seq
	Code Code
	Data []byte
}

// AppendTo appends the encoded frame to dst.
func (f Frame) AppendTo(dst []byte) ([]byte, error) {
	n := len(f.Data)
	if n > MaxData {
		return dst, ErrFrameTooLarge
	}
	head := byte(f.Code) & codeMask
	if n < lenInline {
		dst = append(dst, byte(f.Seq), head|byte(n)<<lenShift)
	} else {
		dst = append(dst, byte(f.Seq), head|lenInline<<lenShift, byte(n))
	}
	return append(dst, f.Data...), nil
}

// WriteFrame encodes and writes f in one Write.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := f.AppendTo(make([]byte, 0, 3+len(f.Data)))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteSync writes the sync marker announcing seq as the next frame.
func WriteSync(w io.Writer, seq Seq) error {
	_, err := w.Write([]byte{syncByte, byte(seq)})
	return err
}

// Begin describes the image that follows.
type Begin struct {
	Start uint32
	Size  uint32
}

func (b Begin) encode() []byte {
	d := make([]byte, 8)
	binary.LittleEndian.PutUint32(d, b.Start)
	binary.LittleEndian.PutUint32(d[4:], b.Size)
	return d
}

func decodeBegin(d []byte) (b Begin, ok bool) {
	if len(d) != 8 {
		return b, false
	}
	b.Start = binary.LittleEndian.Uint32(d)
	b.Size = binary.LittleEndian.Uint32(d[4:])
	return b, true
}
