package console

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/glog"
)

var (
	// ErrMismatch is returned when the received image doesn't match the
	// size or CRC announced by the sender.
	ErrMismatch = errors.New("console: image mismatch")
	// ErrTimeout is returned when the port stays idle past the limit.
	ErrTimeout = errors.New("console: receive timeout")
)

// Image describes a received log image.
type Image struct {
	Start uint32
	Size  uint32
	CRC   uint32
}

// Receiver reassembles a dumped image.
type Receiver struct {
	// IdleLimit is the number of consecutive empty reads tolerated once a
	// transfer started. A serial port with a read timeout returns empty
	// reads while the line is idle. 0 waits forever.
	IdleLimit int
	// Text receives console text frames.
	Text func(string)
}

// Receive reads r until a complete image has been written to w.
func (rc *Receiver) Receive(r io.Reader, w io.Writer) (img Image, err error) {
	var (
		parser  Parser
		begun   bool
		written uint32
		idle    int
	)
	crc := crc32.NewIEEE()
	buf := make([]byte, 256)
	for {
		n, rerr := r.Read(buf)
		if n == 0 && rerr == nil {
			if idle++; begun && rc.IdleLimit > 0 && idle >= rc.IdleLimit {
				return img, ErrTimeout
			}
			continue
		}
		idle = 0
		for _, b := range buf[:n] {
			f, perr := parser.Feed(b)
			if perr != nil {
				if begun {
					return img, fmt.Errorf("after %d of %d bytes: %w", written, img.Size, perr)
				}
				glog.V(2).Infof("console: %v before begin, resyncing", perr)
				continue
			}
			if f == nil {
				continue
			}
			switch f.Code {
			case CodeText:
				if rc.Text != nil {
					rc.Text(string(f.Data))
				}
			case CodeBegin:
				hdr, ok := decodeBegin(f.Data)
				if !ok {
					return img, fmt.Errorf("%w: bad begin frame", ErrMismatch)
				}
				if begun {
					return img, fmt.Errorf("%w: restarted after %d bytes", ErrMismatch, written)
				}
				img.Start, img.Size, begun = hdr.Start, hdr.Size, true
				glog.Infof("console: receiving %d bytes from 0x%x", img.Size, img.Start)
			case CodeData:
				if !begun {
					continue
				}
				if written+uint32(len(f.Data)) > img.Size {
					return img, fmt.Errorf("%w: more than %d bytes", ErrMismatch, img.Size)
				}
				if _, err := w.Write(f.Data); err != nil {
					return img, err
				}
				crc.Write(f.Data)
				written += uint32(len(f.Data))
			case CodeEnd:
				if !begun {
					continue
				}
				if len(f.Data) != 4 {
					return img, fmt.Errorf("%w: bad end frame", ErrMismatch)
				}
				img.CRC = binary.LittleEndian.Uint32(f.Data)
				if written != img.Size {
					return img, fmt.Errorf("%w: got %d of %d bytes", ErrMismatch, written, img.Size)
				}
				if sum := crc.Sum32(); sum != img.CRC {
					return img, fmt.Errorf("%w: crc %08x, want %08x", ErrMismatch, sum, img.CRC)
				}
				return img, nil
			default:
				glog.Warningf("console: ignoring frame %v", f.Code)
			}
		}
		if rerr == io.EOF {
			return img, io.ErrUnexpectedEOF
		}
		if rerr != nil {
			return img, rerr
		}
	}
}
