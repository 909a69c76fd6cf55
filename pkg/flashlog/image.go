package flashlog

import "github.com/robotalks/hamster/pkg/blockdev"

// FromImage restores a log from a raw image of its used part, as received
// from a dump. start is the address of the first byte of data. One erased
// byte follows the image so the tail is found even when the log was full.
func FromImage(start uint64, data []byte) (*Log, error) {
	end := start + uint64(len(data)) + 1
	mem, err := blockdev.NewMem(blockdev.Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 1, Size: end})
	if err != nil {
		return nil, err
	}
	copy(mem.Bytes()[start:], data)
	l := New(mem, Config{Start: start, End: end, Restore: true})
	return l, l.Init()
}
