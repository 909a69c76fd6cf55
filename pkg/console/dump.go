package console

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/golang/glog"
)

// Source is the log region to dump.
type Source interface {
	ReadData(buf []byte, addr uint64) error
	Start() uint64
	Size() uint64
}

// Dumper writes log images to a console.
type Dumper struct {
	w      io.Writer
	seq    Seq
	synced bool
	// Chunk is the payload size of Data frames, at most MaxData.
	Chunk int
}

// NewDumper creates a Dumper on w.
func NewDumper(w io.Writer) *Dumper {
	return &Dumper{
		w:     w,
		seq:   Seq(byte(time.Now().UnixNano())).Next(),
		Chunk: MaxData,
	}
}

func (d *Dumper) send(code Code, data []byte) error {
	err := WriteFrame(d.w, Frame{Seq: d.seq, Code: code, Data: data})
	d.seq = d.seq.Next()
	return err
}

// Text writes a console message frame. A receiver only accepts frames
// after a sync, so the first message is preceded by one.
func (d *Dumper) Text(msg string) error {
	if !d.synced {
		if err := d.sync(); err != nil {
			return err
		}
	}
	for b := []byte(msg); len(b) > 0; {
		n := len(b)
		if n > MaxData {
			n = MaxData
		}
		if err := d.send(CodeText, b[:n]); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (d *Dumper) sync() error {
	if err := WriteSync(d.w, d.seq); err != nil {
		return err
	}
	d.synced = true
	return nil
}

// Dump sends the used part of src.
func (d *Dumper) Dump(src Source) error {
	chunk := d.Chunk
	if chunk <= 0 || chunk > MaxData {
		chunk = MaxData
	}
	start, size := src.Start(), src.Size()
	if start+size > 1<<32 {
		return fmt.Errorf("console: log of %d bytes at 0x%x exceeds 32-bit addressing", size, start)
	}
	glog.Infof("console: dumping %d bytes from 0x%x", size, start)

	if err := d.sync(); err != nil {
		return err
	}
	if err := d.send(CodeBegin, Begin{Start: uint32(start), Size: uint32(size)}.encode()); err != nil {
		return err
	}
	crc := crc32.NewIEEE()
	buf := make([]byte, chunk)
	for off := uint64(0); off < size; {
		n := uint64(chunk)
		if rest := size - off; rest < n {
			n = rest
		}
		b := buf[:n]
		if err := src.ReadData(b, start+off); err != nil {
			return fmt.Errorf("console: read 0x%x: %w", start+off, err)
		}
		crc.Write(b)
		if err := d.send(CodeData, b); err != nil {
			return err
		}
		off += n
	}
	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc.Sum32())
	return d.send(CodeEnd, sum[:])
}
