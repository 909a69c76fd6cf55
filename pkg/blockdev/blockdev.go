// Package blockdev provides byte-addressed block devices for flash storage.
//
// Devices follow NOR flash rules: erased bytes read as Erased, programming
// only clears bits, and a region must be erased before it's reprogrammed.
// Reads and programs are aligned to ReadSize and ProgramSize, erases to
// EraseSize.
package blockdev

import (
	"errors"
	"fmt"
)

// Erased is the value of an erased byte.
const Erased byte = 0xFF

var (
	// ErrInvalidParams indicates a misaligned request or a bad geometry.
	ErrInvalidParams = errors.New("blockdev: invalid parameters")
	// ErrOutOfRange indicates a request past the end of the device.
	ErrOutOfRange = errors.New("blockdev: address out of range")
	// ErrNotInitialized is returned when Init hasn't succeeded.
	ErrNotInitialized = errors.New("blockdev: not initialized")
)

// Device is a block device.
type Device interface {
	Init() error
	Deinit() error
	// Read fills buf from addr. addr and len(buf) must be multiples of ReadSize.
	Read(buf []byte, addr uint64) error
	// Program writes buf at addr. addr and len(buf) must be multiples of
	// ProgramSize and the region must be erased.
	Program(buf []byte, addr uint64) error
	// Erase erases size bytes at addr, both multiples of EraseSize.
	Erase(addr, size uint64) error
	// Sync flushes cached writes.
	Sync() error

	ReadSize() uint64
	ProgramSize() uint64
	EraseSize() uint64
	Size() uint64
}

// Geometry describes the granularity and capacity of a device.
type Geometry struct {
	ReadSize    uint64
	ProgramSize uint64
	EraseSize   uint64
	Size        uint64
}

// Validate checks the sizes nest: read in program, program in erase, erase in size.
func (g Geometry) Validate() error {
	if g.ReadSize == 0 || g.ProgramSize == 0 || g.EraseSize == 0 || g.Size == 0 {
		return fmt.Errorf("%w: zero size in %+v", ErrInvalidParams, g)
	}
	if g.ProgramSize%g.ReadSize != 0 || g.EraseSize%g.ProgramSize != 0 || g.Size%g.EraseSize != 0 {
		return fmt.Errorf("%w: sizes don't nest in %+v", ErrInvalidParams, g)
	}
	return nil
}

// GeometryOf returns the geometry reported by dev.
func GeometryOf(dev Device) Geometry {
	return Geometry{
		ReadSize:    dev.ReadSize(),
		ProgramSize: dev.ProgramSize(),
		EraseSize:   dev.EraseSize(),
		Size:        dev.Size(),
	}
}

// CheckRange validates a request of size bytes at addr against a device of
// capacity total and alignment unit.
func CheckRange(addr, size, unit, total uint64) error {
	if unit == 0 || addr%unit != 0 || size%unit != 0 {
		return ErrInvalidParams
	}
	if end := addr + size; end < addr || end > total {
		return ErrOutOfRange
	}
	return nil
}

// IsErased reports whether every byte in buf is Erased.
func IsErased(buf []byte) bool {
	for _, b := range buf {
		if b != Erased {
			return false
		}
	}
	return true
}

// AlignUp rounds n up to a multiple of unit.
func AlignUp(n, unit uint64) uint64 {
	return (n + unit - 1) / unit * unit
}

// AlignDown rounds n down to a multiple of unit.
func AlignDown(n, unit uint64) uint64 {
	return n / unit * unit
}

func fill(buf []byte, v byte) {
	for i := range buf {
		buf[i] = v
	}
}
