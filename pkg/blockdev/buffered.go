package blockdev

import "github.com/golang/glog"

// Buffered lets callers read and program single bytes on a device with
// larger read and program sizes. One program block is cached; it's written
// back on Sync, on Deinit, and when a program moves to another block.
type Buffered struct {
	dev   Device
	cache []byte
	addr  uint64 // start of the cached block
	valid bool
	dirty bool
	init  bool
}

// NewBuffered wraps dev.
func NewBuffered(dev Device) *Buffered {
	return &Buffered{dev: dev}
}

// Init initializes the underlying device and allocates the cache.
func (b *Buffered) Init() error {
	if err := b.dev.Init(); err != nil {
		return err
	}
	if err := GeometryOf(b.dev).Validate(); err != nil {
		b.dev.Deinit()
		return err
	}
	b.cache = make([]byte, b.dev.ProgramSize())
	b.valid, b.dirty, b.init = false, false, true
	return nil
}

// Deinit flushes the cache and deinitializes the device.
func (b *Buffered) Deinit() error {
	if !b.init {
		return b.dev.Deinit()
	}
	err := b.flush()
	if derr := b.dev.Deinit(); err == nil {
		err = derr
	}
	b.init = false
	return err
}

// Sync flushes the cache and syncs the device.
func (b *Buffered) Sync() error {
	if !b.init {
		return ErrNotInitialized
	}
	if err := b.flush(); err != nil {
		return err
	}
	return b.dev.Sync()
}

func (b *Buffered) flush() error {
	if !b.valid || !b.dirty {
		return nil
	}
	glog.V(4).Infof("blockdev: flush block 0x%x", b.addr)
	if err := b.dev.Program(b.cache, b.addr); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// load makes the block at addr the cached one.
func (b *Buffered) load(addr uint64) error {
	if b.valid && b.addr == addr {
		return nil
	}
	if err := b.flush(); err != nil {
		return err
	}
	b.valid = false
	if err := b.dev.Read(b.cache, addr); err != nil {
		return err
	}
	b.addr, b.valid = addr, true
	return nil
}

// Read implements Device. The cached block is served from memory.
func (b *Buffered) Read(buf []byte, addr uint64) error {
	if !b.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, uint64(len(buf)), 1, b.dev.Size()); err != nil {
		return err
	}
	bs := b.dev.ProgramSize()
	scratch := make([]byte, bs)
	for len(buf) > 0 {
		blk := AlignDown(addr, bs)
		off := addr - blk
		src := b.cache
		if !b.valid || b.addr != blk {
			if err := b.dev.Read(scratch, blk); err != nil {
				return err
			}
			src = scratch
		}
		n := copy(buf, src[off:])
		buf, addr = buf[n:], addr+uint64(n)
	}
	return nil
}

// Program implements Device.
func (b *Buffered) Program(buf []byte, addr uint64) error {
	if !b.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, uint64(len(buf)), 1, b.dev.Size()); err != nil {
		return err
	}
	bs := b.dev.ProgramSize()
	for len(buf) > 0 {
		blk := AlignDown(addr, bs)
		if err := b.load(blk); err != nil {
			return err
		}
		n := copy(b.cache[addr-blk:], buf)
		b.dirty = true
		buf, addr = buf[n:], addr+uint64(n)
	}
	return nil
}

// Erase implements Device. A cached block inside the range is dropped.
func (b *Buffered) Erase(addr, size uint64) error {
	if !b.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, size, b.dev.EraseSize(), b.dev.Size()); err != nil {
		return err
	}
	if b.valid && b.addr >= addr && b.addr < addr+size {
		b.valid, b.dirty = false, false
	}
	return b.dev.Erase(addr, size)
}

// ReadSize implements Device.
func (b *Buffered) ReadSize() uint64 { return 1 }

// ProgramSize implements Device.
func (b *Buffered) ProgramSize() uint64 { return 1 }

// EraseSize implements Device.
func (b *Buffered) EraseSize() uint64 { return b.dev.EraseSize() }

// Size implements Device.
func (b *Buffered) Size() uint64 { return b.dev.Size() }
