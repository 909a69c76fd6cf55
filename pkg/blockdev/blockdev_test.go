package blockdev

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var testGeo = Geometry{ReadSize: 4, ProgramSize: 16, EraseSize: 64, Size: 256}

func newMem(t *testing.T, geo Geometry) *Mem {
	m, err := NewMem(geo)
	require.NoError(t, err)
	return m
}

func TestGeometryValidate(t *testing.T) {
	testCases := []struct {
		geo Geometry
		ok  bool
	}{
		{testGeo, true},
		{Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 1, Size: 1}, true},
		{Geometry{ReadSize: 0, ProgramSize: 16, EraseSize: 64, Size: 256}, false},
		{Geometry{ReadSize: 3, ProgramSize: 16, EraseSize: 64, Size: 256}, false},
		{Geometry{ReadSize: 4, ProgramSize: 16, EraseSize: 64, Size: 200}, false},
	}
	for _, tc := range testCases {
		err := tc.geo.Validate()
		if tc.ok {
			require.NoError(t, err, "%+v", tc.geo)
		} else {
			require.ErrorIs(t, err, ErrInvalidParams, "%+v", tc.geo)
		}
	}
}

func TestCheckRange(t *testing.T) {
	require.NoError(t, CheckRange(0, 256, 16, 256))
	require.Equal(t, ErrInvalidParams, CheckRange(1, 16, 16, 256))
	require.Equal(t, ErrInvalidParams, CheckRange(0, 15, 16, 256))
	require.Equal(t, ErrOutOfRange, CheckRange(256, 16, 16, 256))
	require.Equal(t, ErrOutOfRange, CheckRange(^uint64(0)-15, 16, 16, 256))
}

func TestMemNOR(t *testing.T) {
	m := newMem(t, testGeo)
	buf := make([]byte, 16)
	require.NoError(t, m.Read(buf, 0))
	require.True(t, IsErased(buf))

	require.NoError(t, m.Program(bytes.Repeat([]byte{0xF0}, 16), 16))
	require.NoError(t, m.Program(bytes.Repeat([]byte{0x3C}, 16), 16))
	require.NoError(t, m.Read(buf, 16))
	require.Equal(t, bytes.Repeat([]byte{0x30}, 16), buf)

	require.Equal(t, ErrInvalidParams, m.Program(buf, 8))
	require.Equal(t, ErrInvalidParams, m.Read(buf[:3], 0))
	require.Equal(t, ErrInvalidParams, m.Erase(16, 64))
	require.Equal(t, ErrOutOfRange, m.Erase(256, 64))

	require.NoError(t, m.Erase(0, 64))
	require.True(t, IsErased(m.Bytes()))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	f, err := CreateFile(path, testGeo)
	require.NoError(t, err)
	data := bytes.Repeat([]byte{0xA5, 0x0F}, 8)
	require.NoError(t, f.Program(data, 32))
	require.NoError(t, f.Program(bytes.Repeat([]byte{0xF0}, 16), 32))
	require.NoError(t, f.Close())

	f, err = OpenFile(path, Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 64})
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, uint64(256), f.Size())
	buf := make([]byte, 18)
	require.NoError(t, f.Read(buf, 31))
	require.Equal(t, byte(0xFF), buf[0])
	require.Equal(t, bytes.Repeat([]byte{0xA0, 0x00}, 8), buf[1:17])
	require.Equal(t, byte(0xFF), buf[17])

	require.NoError(t, f.Erase(0, 64))
	require.NoError(t, f.Read(buf, 31))
	require.True(t, IsErased(buf))
}

func TestChain(t *testing.T) {
	a := newMem(t, Geometry{ReadSize: 1, ProgramSize: 8, EraseSize: 32, Size: 128})
	b := newMem(t, Geometry{ReadSize: 4, ProgramSize: 16, EraseSize: 64, Size: 128})
	c := NewChain(a, b)
	require.Equal(t, ErrNotInitialized, c.Read(make([]byte, 4), 0))
	require.NoError(t, c.Init())
	require.Equal(t, Geometry{ReadSize: 4, ProgramSize: 16, EraseSize: 64, Size: 256}, GeometryOf(c))

	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	// straddles both members.
	require.NoError(t, c.Program(data, 112))
	require.Equal(t, data[:16], a.Bytes()[112:128])
	require.Equal(t, data[16:], b.Bytes()[0:16])

	buf := make([]byte, 32)
	require.NoError(t, c.Read(buf, 112))
	require.Equal(t, data, buf)

	require.NoError(t, c.Erase(64, 128))
	require.True(t, IsErased(a.Bytes()[64:]))
	require.True(t, IsErased(b.Bytes()[:64]))
	require.Equal(t, ErrOutOfRange, c.Erase(256, 64))
	require.NoError(t, c.Deinit())
}

// countingDevice tracks Init and Deinit calls.
type countingDevice struct {
	*Mem
	inits   int
	deinits int
}

func (d *countingDevice) Init() error {
	d.inits++
	return d.Mem.Init()
}

func (d *countingDevice) Deinit() error {
	d.deinits++
	return d.Mem.Deinit()
}

func TestChainMemberSize(t *testing.T) {
	a := &countingDevice{Mem: newMem(t, Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 32, Size: 96})}
	b := &countingDevice{Mem: newMem(t, Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 64, Size: 128})}
	require.ErrorIs(t, NewChain(a, b).Init(), ErrInvalidParams)
	for _, d := range []*countingDevice{a, b} {
		require.Equal(t, 1, d.inits)
		require.Equal(t, 1, d.deinits)
	}
}

func TestBuffered(t *testing.T) {
	m := newMem(t, testGeo)
	b := NewBuffered(m)
	require.NoError(t, b.Init())
	require.Equal(t, uint64(1), b.ProgramSize())
	require.Equal(t, uint64(1), b.ReadSize())

	require.NoError(t, b.Program([]byte("hello"), 13))
	// 13..15 is in block 0, the rest in block 16 which is still cached.
	require.Equal(t, []byte("hel"), m.Bytes()[13:16])
	require.True(t, IsErased(m.Bytes()[16:18]))

	buf := make([]byte, 5)
	require.NoError(t, b.Read(buf, 13))
	require.Equal(t, []byte("hello"), buf)

	require.NoError(t, b.Sync())
	require.Equal(t, []byte("hello"), m.Bytes()[13:18])

	require.NoError(t, b.Program([]byte("!"), 18))
	require.NoError(t, b.Erase(0, 64))
	require.NoError(t, b.Sync())
	require.True(t, IsErased(m.Bytes()[:64]))

	require.NoError(t, b.Program([]byte("bye"), 100))
	require.NoError(t, b.Deinit())
	require.Equal(t, []byte("bye"), m.Bytes()[100:103])
}
