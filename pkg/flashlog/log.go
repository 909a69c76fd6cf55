// Package flashlog implements an append-only packet log over a block device.
//
// The log occupies [Start, End) of the device. Packets are appended at the
// tail; on Init the tail is found again by scanning the packets from Start.
// A Log isn't safe for concurrent use.
package flashlog

import (
	"github.com/golang/glog"

	"github.com/robotalks/hamster/pkg/blockdev"
)

// Config defines the log region.
type Config struct {
	// Start is the first address of the log, a multiple of the erase size.
	Start uint64
	// End is one past the last address, a multiple of the erase size.
	// 0 selects the device size.
	End uint64
	// Restore resumes an existing log. Without it a non-empty region fails
	// Init with ErrLogExists.
	Restore bool
}

type logState int

const (
	stateUninit logState = iota
	// device is up but the tail is unknown.
	stateNoTail
	stateReady
)

// Log is an append-only packet log.
type Log struct {
	dev   blockdev.Device
	conf  Config
	start uint64
	end   uint64
	tail  uint64
	state logState
}

// New creates a Log. Init must be called before use.
func New(dev blockdev.Device, conf Config) *Log {
	return &Log{dev: dev, conf: conf}
}

// Device returns the underlying block device.
func (l *Log) Device() blockdev.Device {
	return l.dev
}

// Init initializes the device, validates the region and restores the tail.
// When restoring fails, raw access and Wipe remain available.
func (l *Log) Init() error {
	if err := l.dev.Init(); err != nil {
		glog.Errorf("flashlog: init block device: %v", err)
		return deviceError(ErrBDInit, err)
	}
	start, end := l.conf.Start, l.conf.End
	if end == 0 {
		end = l.dev.Size()
	}
	erase := l.dev.EraseSize()
	if start >= end || end > l.dev.Size() || erase == 0 || start%erase != 0 || end%erase != 0 {
		glog.Errorf("flashlog: region [0x%x, 0x%x) invalid for device of %d bytes, erase size %d",
			start, end, l.dev.Size(), erase)
		l.dev.Deinit()
		return ErrBDParams
	}
	l.start, l.end, l.tail = start, end, start
	l.state = stateNoTail

	if !l.conf.Restore {
		if err := l.checkEmpty(); err != nil {
			return err
		}
		l.state = stateReady
		return nil
	}

	tail, err := l.scan()
	if err != nil {
		return err
	}
	l.tail, l.state = tail, stateReady
	glog.Infof("flashlog: restored, %d bytes used, %d remaining", l.Size(), l.Remaining())
	return nil
}

// scan walks the packets from start and returns the address after the last.
func (l *Log) scan() (uint64, error) {
	addr, count := l.start, 0
	for addr < l.end {
		empty, err := l.isErased(addr)
		if err != nil {
			return 0, err
		}
		if empty {
			break
		}
		p, err := l.readPacket(addr, l.end)
		if err != nil {
			if Code(err) == ErrBDIO {
				return 0, err
			}
			if count == 0 {
				glog.Warningf("flashlog: no valid packet at 0x%x: %v", addr, err)
				return 0, ErrFSMNotRestored
			}
			glog.Warningf("flashlog: invalid record at 0x%x after %d packets: %v", addr, count, err)
			return 0, ErrNoTail
		}
		addr += p.Size()
		count++
	}
	glog.V(1).Infof("flashlog: found %d packets, tail at 0x%x", count, addr)
	return addr, nil
}

// checkEmpty verifies the whole region is erased, one erase block at a time.
func (l *Log) checkEmpty() error {
	buf := make([]byte, l.dev.EraseSize())
	for addr := l.start; addr < l.end; addr += uint64(len(buf)) {
		if err := l.read(buf, addr); err != nil {
			return err
		}
		if !blockdev.IsErased(buf) {
			glog.Warningf("flashlog: region at 0x%x isn't empty, data in block 0x%x", l.start, addr)
			return ErrLogExists
		}
	}
	return nil
}

func (l *Log) isErased(addr uint64) (bool, error) {
	var b [1]byte
	if err := l.read(b[:], addr); err != nil {
		return false, err
	}
	return b[0] == blockdev.Erased, nil
}

// readPacket reads and verifies the record at addr, which must end by limit.
func (l *Log) readPacket(addr, limit uint64) (Packet, error) {
	if addr+headerSize > limit {
		return Packet{}, ErrBounds
	}
	var h [headerSize]byte
	if err := l.read(h[:], addr); err != nil {
		return Packet{}, err
	}
	typ, n, err := decodeHeader(h[:])
	if err != nil {
		return Packet{}, err
	}
	size := uint64(Overhead + n)
	if addr+size > limit {
		// a length running past the limit is a corrupt record.
		return Packet{}, ErrChecksum
	}
	rec := make([]byte, size)
	if err := l.read(rec, addr); err != nil {
		return Packet{}, err
	}
	if err := checkRecord(rec); err != nil {
		return Packet{}, err
	}
	return Packet{Addr: addr, Type: typ, Payload: rec[headerSize : headerSize+n]}, nil
}

// Append writes a packet at the tail.
func (l *Log) Append(typ PacketType, payload []byte) error {
	if l.state != stateReady {
		return ErrLogNoInit
	}
	rec, err := EncodePacket(typ, payload)
	if err != nil {
		return err
	}
	if uint64(len(rec)) > l.end-l.tail {
		return ErrBounds
	}
	if err := l.write(rec, l.tail); err != nil {
		return err
	}
	l.tail += uint64(len(rec))
	return nil
}

// WriteData programs buf at addr. The range must lie within the log and be
// erased. Writing past the tail moves it, so the bytes count as used.
func (l *Log) WriteData(buf []byte, addr uint64) error {
	if l.state == stateUninit {
		return ErrLogNoInit
	}
	if !l.contains(addr, uint64(len(buf))) {
		return ErrBounds
	}
	if err := l.write(buf, addr); err != nil {
		return err
	}
	if end := addr + uint64(len(buf)); l.state == stateReady && end > l.tail {
		l.tail = end
	}
	return nil
}

// ReadData reads len(buf) bytes at addr within the log.
func (l *Log) ReadData(buf []byte, addr uint64) error {
	if l.state == stateUninit {
		return ErrLogNoInit
	}
	if !l.contains(addr, uint64(len(buf))) {
		return ErrBounds
	}
	return l.read(buf, addr)
}

func (l *Log) contains(addr, size uint64) bool {
	end := addr + size
	return addr >= l.start && end >= addr && end <= l.end
}

// read rounds the range out to the read size through a scratch buffer.
func (l *Log) read(buf []byte, addr uint64) error {
	unit := l.dev.ReadSize()
	lo := blockdev.AlignDown(addr, unit)
	hi := blockdev.AlignUp(addr+uint64(len(buf)), unit)
	if lo == addr && hi-lo == uint64(len(buf)) {
		return deviceError(ErrBDIO, l.dev.Read(buf, addr))
	}
	scratch := make([]byte, hi-lo)
	if err := l.dev.Read(scratch, lo); err != nil {
		return deviceError(ErrBDIO, err)
	}
	copy(buf, scratch[addr-lo:])
	return nil
}

// write rounds the range out to the program size, padding with erased
// bytes which leave the existing content unchanged.
func (l *Log) write(buf []byte, addr uint64) error {
	unit := l.dev.ProgramSize()
	lo := blockdev.AlignDown(addr, unit)
	hi := blockdev.AlignUp(addr+uint64(len(buf)), unit)
	if lo == addr && hi-lo == uint64(len(buf)) {
		return deviceError(ErrBDIO, l.dev.Program(buf, addr))
	}
	scratch := make([]byte, hi-lo)
	for i := range scratch {
		scratch[i] = blockdev.Erased
	}
	copy(scratch[addr-lo:], buf)
	return deviceError(ErrBDIO, l.dev.Program(scratch, lo))
}

// Wipe erases the log region and resets the tail. It also recovers a log
// whose restore failed.
func (l *Log) Wipe() error {
	if l.state == stateUninit {
		return ErrLogNoInit
	}
	glog.Infof("flashlog: wiping [0x%x, 0x%x)", l.start, l.end)
	if err := l.dev.Erase(l.start, l.end-l.start); err != nil {
		return deviceError(ErrBDIO, err)
	}
	if err := l.dev.Sync(); err != nil {
		return deviceError(ErrBDIO, err)
	}
	l.tail, l.state = l.start, stateReady
	return nil
}

// Sync flushes buffered writes to the device.
func (l *Log) Sync() error {
	if l.state == stateUninit {
		return ErrLogNoInit
	}
	return deviceError(ErrBDIO, l.dev.Sync())
}

// Deinit syncs and releases the device.
func (l *Log) Deinit() error {
	if l.state == stateUninit {
		return nil
	}
	err := l.dev.Sync()
	if derr := l.dev.Deinit(); err == nil {
		err = derr
	}
	l.state = stateUninit
	return deviceError(ErrBDIO, err)
}

// Ready reports whether packets can be appended.
func (l *Log) Ready() bool {
	return l.state == stateReady
}

// Start returns the first address of the log.
func (l *Log) Start() uint64 { return l.start }

// End returns one past the last address of the log.
func (l *Log) End() uint64 { return l.end }

// Tail returns the address the next packet is written to.
func (l *Log) Tail() uint64 { return l.tail }

// Size returns the number of bytes used.
func (l *Log) Size() uint64 { return l.tail - l.start }

// Remaining returns the number of bytes left.
func (l *Log) Remaining() uint64 { return l.end - l.tail }
