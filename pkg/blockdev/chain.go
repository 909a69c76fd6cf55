package blockdev

import (
	"fmt"

	"github.com/golang/glog"
)

// Chain concatenates devices into one address space. Its read, program and
// erase sizes are the largest of its members; each member must be a whole
// number of erase blocks.
type Chain struct {
	devs []Device
	geo  Geometry
	init bool
}

// NewChain creates a Chain. Member geometry is read on Init.
func NewChain(devs ...Device) *Chain {
	return &Chain{devs: devs}
}

// Init initializes every member and computes the combined geometry.
func (c *Chain) Init() error {
	if len(c.devs) == 0 {
		return fmt.Errorf("%w: empty chain", ErrInvalidParams)
	}
	var geo Geometry
	for n, dev := range c.devs {
		if err := dev.Init(); err != nil {
			deinitAll(c.devs[:n])
			return fmt.Errorf("chain member %d: %w", n, err)
		}
		g := GeometryOf(dev)
		geo.ReadSize = max64(geo.ReadSize, g.ReadSize)
		geo.ProgramSize = max64(geo.ProgramSize, g.ProgramSize)
		geo.EraseSize = max64(geo.EraseSize, g.EraseSize)
	}
	for n, dev := range c.devs {
		if dev.Size()%geo.EraseSize != 0 {
			deinitAll(c.devs)
			return fmt.Errorf("%w: chain member %d size %d not a multiple of %d",
				ErrInvalidParams, n, dev.Size(), geo.EraseSize)
		}
		geo.Size += dev.Size()
	}
	if err := geo.Validate(); err != nil {
		deinitAll(c.devs)
		return err
	}
	c.geo, c.init = geo, true
	glog.V(2).Infof("blockdev: chain of %d devices, %+v", len(c.devs), geo)
	return nil
}

// Deinit deinitializes every member and returns the first error.
func (c *Chain) Deinit() error {
	c.init = false
	return deinitAll(c.devs)
}

func deinitAll(devs []Device) error {
	var first error
	for _, dev := range devs {
		if err := dev.Deinit(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Sync implements Device.
func (c *Chain) Sync() error {
	for _, dev := range c.devs {
		if err := dev.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// each calls fn for every member the range [addr, addr+size) touches, with
// the member-relative address and the offset into the range.
func (c *Chain) each(addr, size, unit uint64, fn func(dev Device, devAddr, off, n uint64) error) error {
	if !c.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, size, unit, c.geo.Size); err != nil {
		return err
	}
	var base, off uint64
	for _, dev := range c.devs {
		end := base + dev.Size()
		if size > 0 && addr < end {
			n := end - addr
			if n > size {
				n = size
			}
			if err := fn(dev, addr-base, off, n); err != nil {
				return err
			}
			addr, off, size = addr+n, off+n, size-n
		}
		base = end
	}
	return nil
}

// Read implements Device.
func (c *Chain) Read(buf []byte, addr uint64) error {
	return c.each(addr, uint64(len(buf)), c.geo.ReadSize, func(dev Device, devAddr, off, n uint64) error {
		return dev.Read(buf[off:off+n], devAddr)
	})
}

// Program implements Device.
func (c *Chain) Program(buf []byte, addr uint64) error {
	return c.each(addr, uint64(len(buf)), c.geo.ProgramSize, func(dev Device, devAddr, off, n uint64) error {
		return dev.Program(buf[off:off+n], devAddr)
	})
}

// Erase implements Device.
func (c *Chain) Erase(addr, size uint64) error {
	return c.each(addr, size, c.geo.EraseSize, func(dev Device, devAddr, _, n uint64) error {
		return dev.Erase(devAddr, n)
	})
}

// ReadSize implements Device.
func (c *Chain) ReadSize() uint64 { return c.geo.ReadSize }

// ProgramSize implements Device.
func (c *Chain) ProgramSize() uint64 { return c.geo.ProgramSize }

// EraseSize implements Device.
func (c *Chain) EraseSize() uint64 { return c.geo.EraseSize }

// Size implements Device.
func (c *Chain) Size() uint64 { return c.geo.Size }

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
