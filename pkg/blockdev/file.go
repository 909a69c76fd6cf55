package blockdev

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// File is a Device backed by an image file on the host, e.g. a log dumped
// over the console.
type File struct {
	f   *os.File
	geo Geometry
}

// CreateFile creates an erased image of geo.Size bytes at path.
func CreateFile(path string, geo Geometry) (*File, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	blank := make([]byte, geo.EraseSize)
	fill(blank, Erased)
	for addr := uint64(0); addr < geo.Size; addr += geo.EraseSize {
		if _, err := f.WriteAt(blank, int64(addr)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &File{f: f, geo: geo}, nil
}

// OpenFile opens an existing image. A zero geo.Size takes the file size,
// which must then be a multiple of geo.EraseSize.
func OpenFile(path string, geo Geometry) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if geo.Size == 0 {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		geo.Size = uint64(info.Size())
	}
	if err := geo.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{f: f, geo: geo}, nil
}

// Close closes the image file.
func (d *File) Close() error {
	return d.f.Close()
}

// Init implements Device.
func (d *File) Init() error { return nil }

// Deinit implements Device.
func (d *File) Deinit() error { return d.f.Sync() }

// Sync implements Device.
func (d *File) Sync() error { return d.f.Sync() }

// Read implements Device. Bytes past the end of a short file read as erased.
func (d *File) Read(buf []byte, addr uint64) error {
	if err := CheckRange(addr, uint64(len(buf)), d.geo.ReadSize, d.geo.Size); err != nil {
		return err
	}
	n, err := d.f.ReadAt(buf, int64(addr))
	if n == len(buf) {
		return nil
	}
	if errors.Is(err, io.EOF) {
		fill(buf[n:], Erased)
		return nil
	}
	return err
}

// Program implements Device.
func (d *File) Program(buf []byte, addr uint64) error {
	if err := CheckRange(addr, uint64(len(buf)), d.geo.ProgramSize, d.geo.Size); err != nil {
		return err
	}
	cur := make([]byte, len(buf))
	if err := d.Read(cur, addr); err != nil {
		return err
	}
	for i, b := range buf {
		cur[i] &= b
	}
	_, err := d.f.WriteAt(cur, int64(addr))
	return err
}

// Erase implements Device.
func (d *File) Erase(addr, size uint64) error {
	if err := CheckRange(addr, size, d.geo.EraseSize, d.geo.Size); err != nil {
		return err
	}
	blank := make([]byte, d.geo.EraseSize)
	fill(blank, Erased)
	for off := addr; off < addr+size; off += d.geo.EraseSize {
		if _, err := d.f.WriteAt(blank, int64(off)); err != nil {
			return err
		}
	}
	return nil
}

// ReadSize implements Device.
func (d *File) ReadSize() uint64 { return d.geo.ReadSize }

// ProgramSize implements Device.
func (d *File) ProgramSize() uint64 { return d.geo.ProgramSize }

// EraseSize implements Device.
func (d *File) EraseSize() uint64 { return d.geo.EraseSize }

// Size implements Device.
func (d *File) Size() uint64 { return d.geo.Size }
