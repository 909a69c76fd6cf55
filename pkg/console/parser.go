package console

import "errors"

// ErrSequence is reported when a frame arrives out of sequence or a length
// byte is invalid. The parser then waits for the next sync.
var ErrSequence = errors.New("console: sequence error")

type parseState int

const (
	waitSync parseState = iota // discarding until 0xFF
	waitSyncSeq                // 0xFF seen
	waitSeq
	waitCode
	waitLen
	waitData
)

// Parser decodes the stream one byte at a time.
type Parser struct {
	state parseState
	next  Seq
	frame Frame
	recv  int
}

// Synced reports whether the parser is between frames of a synced stream.
func (p *Parser) Synced() bool {
	return p.state == waitSeq
}

// Receiving reports whether a sync or frame is partially received.
func (p *Parser) Receiving() bool {
	return p.state != waitSync && p.state != waitSeq
}

// Reset drops any partial frame and waits for a sync.
func (p *Parser) Reset() {
	p.state, p.frame, p.recv = waitSync, Frame{}, 0
}

// Feed consumes one byte. It returns a frame when one completes and
// ErrSequence when sync is lost.
func (p *Parser) Feed(b byte) (*Frame, error) {
	switch p.state {
	case waitSync:
		if b == syncByte {
			p.state = waitSyncSeq
		}
	case waitSyncSeq:
		if s := Seq(b); s.Valid() {
			p.next, p.state = s, waitSeq
		} else if b != syncByte {
			p.state = waitSync
		}
	case waitSeq:
		if b == syncByte {
			p.state = waitSyncSeq
			return nil, nil
		}
		if Seq(b) != p.next {
			return nil, p.lost()
		}
		p.frame = Frame{Seq: p.next}
		p.next = p.next.Next()
		p.state = waitCode
	case waitCode:
		p.frame.Code = Code(b & codeMask)
		switch n := int(b>>lenShift) & lenInline; n {
		case 0:
			return p.done()
		case lenInline:
			p.state = waitLen
		default:
			p.startData(n)
		}
	case waitLen:
		if b > MaxData {
			return nil, p.lost()
		}
		if b == 0 {
			return p.done()
		}
		p.startData(int(b))
	case waitData:
		p.frame.Data[p.recv] = b
		if p.recv++; p.recv == len(p.frame.Data) {
			return p.done()
		}
	}
	return nil, nil
}

func (p *Parser) startData(n int) {
	p.frame.Data, p.recv = make([]byte, n), 0
	p.state = waitData
}

func (p *Parser) done() (*Frame, error) {
	f := p.frame
	p.frame, p.state = Frame{}, waitSeq
	return &f, nil
}

func (p *Parser) lost() error {
	p.Reset()
	return ErrSequence
}
