package blockdev

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPI NOR commands.
const (
	cmdReadID      = 0x9F
	cmdReadStatus  = 0x05
	cmdWriteEnable = 0x06
	cmdRead3       = 0x03
	cmdRead4       = 0x13
	cmdProgram3    = 0x02
	cmdProgram4    = 0x12
	cmdErase4K3    = 0x20
	cmdErase4K4    = 0x21
	cmdResetEnable = 0x66
	cmdReset       = 0x99

	statusWIP = 0x01
)

// SPIF geometry.
const (
	SPIFPageSize   = 256
	SPIFSectorSize = 4096
	// SPIFMaxFreq is the clock used when none is given.
	SPIFMaxFreq = 40 * physic.MegaHertz

	spifAddr3Limit = 1 << 24
	spifReadChunk  = 2048
	spifResetDelay = 50 * time.Microsecond
)

// ErrTimeout is returned when the flash stays busy past the timeout.
var ErrTimeout = errors.New("blockdev: flash busy timeout")

// SPIFOpts are optional settings of a SPIF.
type SPIFOpts struct {
	// Size overrides the capacity derived from the JEDEC ID.
	Size uint64
	// Timeout bounds each program or erase. Defaults to 500ms.
	Timeout time.Duration
	// Poll is the status polling interval. Defaults to 100µs.
	Poll time.Duration
}

// SPIF is a SPI NOR flash chip. Reads are byte granular, programs use
// 256-byte pages and erases 4 KiB sectors. Chips above 16 MiB are driven
// with 4-byte address commands.
type SPIF struct {
	conn    spi.Conn
	opts    SPIFOpts
	id      [3]byte
	size    uint64
	addr4   bool
	init    bool
	timeNow func() time.Time
}

// ConnectSPIF connects the port in mode 0 at freq, SPIFMaxFreq when 0.
func ConnectSPIF(port spi.Port, freq physic.Frequency) (spi.Conn, error) {
	if freq == 0 {
		freq = SPIFMaxFreq
	}
	return port.Connect(freq, spi.Mode0, 8)
}

// NewSPIF creates a SPIF on conn.
func NewSPIF(conn spi.Conn, opts *SPIFOpts) *SPIF {
	f := &SPIF{conn: conn, timeNow: time.Now}
	if opts != nil {
		f.opts = *opts
	}
	if f.opts.Timeout == 0 {
		f.opts.Timeout = 500 * time.Millisecond
	}
	if f.opts.Poll == 0 {
		f.opts.Poll = 100 * time.Microsecond
	}
	return f
}

// ID returns the JEDEC manufacturer, memory type and capacity bytes.
func (f *SPIF) ID() [3]byte {
	return f.id
}

// Init resets the chip and reads its JEDEC ID.
func (f *SPIF) Init() error {
	if err := f.conn.Tx([]byte{cmdResetEnable}, nil); err != nil {
		return err
	}
	if err := f.conn.Tx([]byte{cmdReset}, nil); err != nil {
		return err
	}
	time.Sleep(spifResetDelay)

	var r [4]byte
	if err := f.conn.Tx([]byte{cmdReadID, 0, 0, 0}, r[:]); err != nil {
		return err
	}
	copy(f.id[:], r[1:])
	size := f.opts.Size
	if size == 0 {
		// capacity byte is log2 of the size on most parts.
		if c := f.id[2]; c >= 0x10 && c < 0x40 {
			size = 1 << c
		}
	}
	if size == 0 || size%SPIFSectorSize != 0 {
		return fmt.Errorf("%w: unknown flash % x", ErrInvalidParams, f.id)
	}
	f.size, f.addr4, f.init = size, size > spifAddr3Limit, true
	glog.Infof("blockdev: SPI flash % x, %d bytes", f.id, f.size)
	return nil
}

// Deinit implements Device.
func (f *SPIF) Deinit() error {
	f.init = false
	return nil
}

// Sync implements Device.
func (f *SPIF) Sync() error { return nil }

func (f *SPIF) command(cmd3, cmd4 byte, addr uint64, data int) []byte {
	if !f.addr4 {
		b := make([]byte, 4, 4+data)
		b[0], b[1], b[2], b[3] = cmd3, byte(addr>>16), byte(addr>>8), byte(addr)
		return b
	}
	b := make([]byte, 5, 5+data)
	b[0], b[1], b[2], b[3], b[4] = cmd4, byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr)
	return b
}

// Read implements Device.
func (f *SPIF) Read(buf []byte, addr uint64) error {
	if !f.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, uint64(len(buf)), 1, f.size); err != nil {
		return err
	}
	for len(buf) > 0 {
		n := len(buf)
		if n > spifReadChunk {
			n = spifReadChunk
		}
		w := f.command(cmdRead3, cmdRead4, addr, n)
		hdr := len(w)
		w = w[:hdr+n]
		r := make([]byte, len(w))
		if err := f.conn.Tx(w, r); err != nil {
			return err
		}
		copy(buf, r[hdr:])
		buf, addr = buf[n:], addr+uint64(n)
	}
	return nil
}

// Program implements Device.
func (f *SPIF) Program(buf []byte, addr uint64) error {
	if !f.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, uint64(len(buf)), SPIFPageSize, f.size); err != nil {
		return err
	}
	for ; len(buf) > 0; buf, addr = buf[SPIFPageSize:], addr+SPIFPageSize {
		w := append(f.command(cmdProgram3, cmdProgram4, addr, SPIFPageSize), buf[:SPIFPageSize]...)
		if err := f.write(w); err != nil {
			return fmt.Errorf("program 0x%x: %w", addr, err)
		}
	}
	return nil
}

// Erase implements Device.
func (f *SPIF) Erase(addr, size uint64) error {
	if !f.init {
		return ErrNotInitialized
	}
	if err := CheckRange(addr, size, SPIFSectorSize, f.size); err != nil {
		return err
	}
	for end := addr + size; addr < end; addr += SPIFSectorSize {
		if err := f.write(f.command(cmdErase4K3, cmdErase4K4, addr, 0)); err != nil {
			return fmt.Errorf("erase 0x%x: %w", addr, err)
		}
	}
	return nil
}

// write sends a write-enabled command and waits for it to complete.
func (f *SPIF) write(w []byte) error {
	if err := f.conn.Tx([]byte{cmdWriteEnable}, nil); err != nil {
		return err
	}
	if err := f.conn.Tx(w, nil); err != nil {
		return err
	}
	return f.wait()
}

func (f *SPIF) wait() error {
	deadline := f.timeNow().Add(f.opts.Timeout)
	var r [2]byte
	for {
		if err := f.conn.Tx([]byte{cmdReadStatus, 0}, r[:]); err != nil {
			return err
		}
		if r[1]&statusWIP == 0 {
			return nil
		}
		if f.timeNow().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(f.opts.Poll)
	}
}

// ReadSize implements Device.
func (f *SPIF) ReadSize() uint64 { return 1 }

// ProgramSize implements Device.
func (f *SPIF) ProgramSize() uint64 { return SPIFPageSize }

// EraseSize implements Device.
func (f *SPIF) EraseSize() uint64 { return SPIFSectorSize }

// Size implements Device.
func (f *SPIF) Size() uint64 { return f.size }
