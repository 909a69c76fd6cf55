package flashlog

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robotalks/hamster/pkg/bmi323"
)

// Payload sizes of the fixed-layout types.
const (
	SampleSize = 18
	AxesSize   = 10
	MarkerSize = 24
)

// EncodeSample lays out a sample as accel xyz, gyro xyz, temperature and
// sensor time, the same order as the device registers.
func EncodeSample(s bmi323.Sample) []byte {
	b := make([]byte, SampleSize)
	putAxes(b, s.Accel.X, s.Accel.Y, s.Accel.Z)
	putAxes(b[6:], s.Gyro.X, s.Gyro.Y, s.Gyro.Z)
	binary.LittleEndian.PutUint16(b[12:], uint16(s.Temperature))
	binary.LittleEndian.PutUint32(b[14:], s.Timestamp)
	return b
}

// DecodeSample reverses EncodeSample.
func DecodeSample(b []byte) (s bmi323.Sample, err error) {
	if len(b) != SampleSize {
		return s, sizeError(TypeIMU, len(b))
	}
	s.Accel.X, s.Accel.Y, s.Accel.Z = axes(b)
	s.Gyro.X, s.Gyro.Y, s.Gyro.Z = axes(b[6:])
	s.Temperature = int16(binary.LittleEndian.Uint16(b[12:]))
	s.Timestamp = binary.LittleEndian.Uint32(b[14:])
	s.Accel.Timestamp, s.Gyro.Timestamp = s.Timestamp, s.Timestamp
	return s, nil
}

// EncodeAccel lays out axes then sensor time.
func EncodeAccel(a bmi323.Accel) []byte {
	b := make([]byte, AxesSize)
	putAxes(b, a.X, a.Y, a.Z)
	binary.LittleEndian.PutUint32(b[6:], a.Timestamp)
	return b
}

// DecodeAccel reverses EncodeAccel.
func DecodeAccel(b []byte) (a bmi323.Accel, err error) {
	if len(b) != AxesSize {
		return a, sizeError(TypeAccel, len(b))
	}
	a.X, a.Y, a.Z = axes(b)
	a.Timestamp = binary.LittleEndian.Uint32(b[6:])
	return a, nil
}

// EncodeGyro lays out axes then sensor time.
func EncodeGyro(g bmi323.Gyro) []byte {
	b := make([]byte, AxesSize)
	putAxes(b, g.X, g.Y, g.Z)
	binary.LittleEndian.PutUint32(b[6:], g.Timestamp)
	return b
}

// DecodeGyro reverses EncodeGyro.
func DecodeGyro(b []byte) (g bmi323.Gyro, err error) {
	if len(b) != AxesSize {
		return g, sizeError(TypeGyro, len(b))
	}
	g.X, g.Y, g.Z = axes(b)
	g.Timestamp = binary.LittleEndian.Uint32(b[6:])
	return g, nil
}

// Marker separates recording sessions.
type Marker struct {
	Session uuid.UUID
	Time    time.Time
}

// NewMarker starts a new session at now.
func NewMarker(now time.Time) Marker {
	return Marker{Session: uuid.New(), Time: now}
}

// Encode lays out the session ID then Unix nanoseconds.
func (m Marker) Encode() []byte {
	b := make([]byte, MarkerSize)
	copy(b, m.Session[:])
	binary.LittleEndian.PutUint64(b[16:], uint64(m.Time.UnixNano()))
	return b
}

// DecodeMarker reverses Marker.Encode.
func DecodeMarker(b []byte) (m Marker, err error) {
	if len(b) != MarkerSize {
		return m, sizeError(TypeMarker, len(b))
	}
	copy(m.Session[:], b)
	m.Time = time.Unix(0, int64(binary.LittleEndian.Uint64(b[16:])))
	return m, nil
}

// Describe renders a packet payload for humans.
func Describe(p Packet) string {
	switch p.Type {
	case TypeIMU:
		if s, err := DecodeSample(p.Payload); err == nil {
			return fmt.Sprintf("%v %v temp=%d", s.Accel, s.Gyro, s.Temperature)
		}
	case TypeAccel:
		if a, err := DecodeAccel(p.Payload); err == nil {
			return a.String()
		}
	case TypeGyro:
		if g, err := DecodeGyro(p.Payload); err == nil {
			return g.String()
		}
	case TypeText:
		return fmt.Sprintf("%q", p.Payload)
	case TypeMarker:
		if m, err := DecodeMarker(p.Payload); err == nil {
			return fmt.Sprintf("session %s at %s", m.Session, m.Time.UTC().Format(time.RFC3339Nano))
		}
	}
	return fmt.Sprintf("% x", p.Payload)
}

func sizeError(typ PacketType, n int) error {
	return fmt.Errorf("%w: %v payload of %d bytes", ErrBounds, typ, n)
}

func putAxes(b []byte, x, y, z int16) {
	binary.LittleEndian.PutUint16(b, uint16(x))
	binary.LittleEndian.PutUint16(b[2:], uint16(y))
	binary.LittleEndian.PutUint16(b[4:], uint16(z))
}

func axes(b []byte) (x, y, z int16) {
	return int16(binary.LittleEndian.Uint16(b)),
		int16(binary.LittleEndian.Uint16(b[2:])),
		int16(binary.LittleEndian.Uint16(b[4:]))
}
