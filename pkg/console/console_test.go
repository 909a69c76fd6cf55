package console

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hamster/pkg/blockdev"
	"github.com/robotalks/hamster/pkg/flashlog"
)

func TestSeq(t *testing.T) {
	for s := 0xF0; s <= 0xFF; s++ {
		require.False(t, Seq(s).Valid())
		require.Equal(t, Seq(1), Seq(s).Next())
	}
	for s := 1; s < 0xF0; s++ {
		require.True(t, Seq(s).Valid())
		if s+1 < 0xF0 {
			require.Equal(t, Seq(s+1), Seq(s).Next())
		} else {
			require.Equal(t, Seq(1), Seq(s).Next())
		}
	}
	require.False(t, Seq(0).Valid())
}

func TestFrameEncoding(t *testing.T) {
	seven := []byte{1, 2, 3, 4, 5, 6, 7}
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{"no data", Frame{Seq: 1, Code: CodeEnd}, []byte{1, 0x03}},
		{"inline length", Frame{Seq: 2, Code: CodeData, Data: []byte{9}}, []byte{2, 0x12, 9}},
		{"length byte", Frame{Seq: 3, Code: CodeData, Data: seven}, append([]byte{3, 0x72, 7}, seven...)},
		{"high code bit kept", Frame{Seq: 4, Code: 0x81}, []byte{4, 0x81}},
		{"length bits masked", Frame{Seq: 5, Code: 0x71}, []byte{5, 0x01}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.frame.AppendTo(nil)
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)
			var buf bytes.Buffer
			require.NoError(t, WriteFrame(&buf, tc.frame))
			require.Equal(t, tc.expect, buf.Bytes())
		})
	}
	_, err := Frame{Seq: 1, Data: make([]byte, MaxData+1)}.AppendTo(nil)
	require.Equal(t, ErrFrameTooLarge, err)
}

func feed(p *Parser, in ...byte) (frames []*Frame, errs []error) {
	for _, b := range in {
		f, err := p.Feed(b)
		if f != nil {
			frames = append(frames, f)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name   string
		in     []byte
		frames []*Frame
		errs   int
		synced bool
	}{
		{
			name:   "noise before sync",
			in:     []byte{0x12, 0x00, 0xFF, 0xFF, 0x05, 0x05, 0x02},
			frames: []*Frame{{Seq: 5, Code: CodeData}},
			synced: true,
		},
		{
			name: "frames in sequence",
			in:   []byte{0xFF, 0xEF, 0xEF, 0x14, 'a', 0x01, 0x72, 0x07, 1, 2, 3, 4, 5, 6, 7},
			frames: []*Frame{
				{Seq: 0xEF, Code: CodeText, Data: []byte("a")},
				{Seq: 1, Code: CodeData, Data: []byte{1, 2, 3, 4, 5, 6, 7}},
			},
			synced: true,
		},
		{
			name:   "sequence gap",
			in:     []byte{0xFF, 0x01, 0x02, 0x03},
			errs:   1,
			synced: false,
		},
		{
			name:   "invalid length byte",
			in:     []byte{0xFF, 0x01, 0x01, 0x72, 0x80},
			errs:   1,
			synced: false,
		},
		{
			name:   "resync mid stream",
			in:     []byte{0xFF, 0x01, 0x01, 0x02, 0xFF, 0x30, 0x30, 0x03},
			frames: []*Frame{{Seq: 1, Code: CodeData}, {Seq: 0x30, Code: CodeEnd}},
			synced: true,
		},
		{
			name:   "zero length byte",
			in:     []byte{0xFF, 0x01, 0x01, 0x72, 0x00},
			frames: []*Frame{{Seq: 1, Code: CodeData}},
			synced: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			frames, errs := feed(&p, tc.in...)
			require.Equal(t, tc.frames, frames)
			require.Len(t, errs, tc.errs)
			for _, err := range errs {
				require.Equal(t, ErrSequence, err)
			}
			require.Equal(t, tc.synced, p.Synced())
		})
	}
}

func TestParserPartial(t *testing.T) {
	var p Parser
	require.False(t, p.Receiving())
	feed(&p, 0xFF)
	require.True(t, p.Receiving())
	feed(&p, 0x09, 0x09, 0x22, 1)
	require.True(t, p.Receiving())
	frames, _ := feed(&p, 2)
	require.Len(t, frames, 1)
	require.False(t, p.Receiving())
	p.Reset()
	require.False(t, p.Synced())
}

func newTestLog(t *testing.T) *flashlog.Log {
	mem, err := blockdev.NewMem(blockdev.Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 1024, Size: 8192})
	require.NoError(t, err)
	l := flashlog.New(mem, flashlog.Config{Start: 1024})
	require.NoError(t, l.Init())
	for i := 0; i < 40; i++ {
		require.NoError(t, l.Append(flashlog.TypeText, bytes.Repeat([]byte{byte(i)}, i)))
	}
	return l
}

func TestDumpReceive(t *testing.T) {
	l := newTestLog(t)
	var wire bytes.Buffer
	d := NewDumper(&wire)
	require.NoError(t, d.Text("dump follows"))
	require.NoError(t, d.Dump(l))

	var texts []string
	var image bytes.Buffer
	rc := &Receiver{Text: func(s string) { texts = append(texts, s) }}
	img, err := rc.Receive(bytes.NewReader(append([]byte{0x00, 0x42}, wire.Bytes()...)), &image)
	require.NoError(t, err)
	require.Equal(t, []string{"dump follows"}, texts)
	require.Equal(t, uint32(1024), img.Start)
	require.Equal(t, uint32(l.Size()), img.Size)
	require.Equal(t, int(l.Size()), image.Len())

	expect := make([]byte, l.Size())
	require.NoError(t, l.ReadData(expect, l.Start()))
	require.Equal(t, expect, image.Bytes())

	// the image is a log of its own.
	f := blockdev.Geometry{ReadSize: 1, ProgramSize: 1, EraseSize: 1, Size: uint64(image.Len())}
	mem, err := blockdev.NewMem(f)
	require.NoError(t, err)
	copy(mem.Bytes(), image.Bytes())
	restored := flashlog.New(mem, flashlog.Config{Restore: true})
	require.NoError(t, restored.Init())
	count := 0
	require.NoError(t, restored.Each(func(p flashlog.Packet) error {
		require.Len(t, p.Payload, count)
		count++
		return nil
	}))
	require.Equal(t, 40, count)
}

func TestTextSyncsFirst(t *testing.T) {
	var wire bytes.Buffer
	d := NewDumper(&wire)
	seq := d.seq
	require.NoError(t, d.Text("hello"))
	require.Equal(t, []byte{syncByte, byte(seq)}, wire.Bytes()[:2])
	first := wire.Len()
	// later messages go out without another sync.
	require.NoError(t, d.Text("again"))
	require.Equal(t, 2*first-2, wire.Len())
	require.NoError(t, d.Dump(newTestLog(t)))

	var texts []string
	rc := &Receiver{Text: func(s string) { texts = append(texts, s) }}
	_, err := rc.Receive(&wire, io.Discard)
	require.NoError(t, err)
	require.Equal(t, []string{"hello", "again"}, texts)
}

func TestReceiveErrors(t *testing.T) {
	l := newTestLog(t)
	var wire bytes.Buffer
	d := NewDumper(&wire)
	d.seq, d.Chunk = 1, 16
	require.NoError(t, d.Dump(l))
	stream := wire.Bytes()
	// sync(2) begin(2+1+8) then the first data frame: seq, head, len.
	firstData := 2 + 11 + 3

	t.Run("truncated", func(t *testing.T) {
		_, err := (&Receiver{}).Receive(bytes.NewReader(stream[:len(stream)-3]), io.Discard)
		require.Equal(t, io.ErrUnexpectedEOF, err)
	})
	t.Run("dropped byte", func(t *testing.T) {
		s := append(append([]byte{}, stream[:firstData+4]...), stream[firstData+5:]...)
		_, err := (&Receiver{}).Receive(bytes.NewReader(s), io.Discard)
		require.True(t, errors.Is(err, ErrSequence))
	})
	t.Run("corrupt data", func(t *testing.T) {
		s := append([]byte{}, stream...)
		s[firstData] ^= 0x55
		_, err := (&Receiver{}).Receive(bytes.NewReader(s), io.Discard)
		require.True(t, errors.Is(err, ErrMismatch))
	})
	t.Run("idle", func(t *testing.T) {
		r := &idleReader{data: stream[:firstData]}
		_, err := (&Receiver{IdleLimit: 3}).Receive(r, io.Discard)
		require.Equal(t, ErrTimeout, err)
	})
}

// idleReader returns data then empty reads, like a serial port with a
// read timeout on an idle line.
type idleReader struct {
	data []byte
}

func (r *idleReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestPortOptions(t *testing.T) {
	mode, err := PortOptions{}.mode()
	require.NoError(t, err)
	require.Equal(t, DefaultBaud, mode.BaudRate)
	require.Equal(t, 8, mode.DataBits)

	_, err = PortOptions{Parity: "X"}.mode()
	require.Error(t, err)
	_, err = PortOptions{StopBits: 3}.mode()
	require.Error(t, err)
}
