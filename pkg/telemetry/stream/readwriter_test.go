package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hamster/pkg/telemetry"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("abc")))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 'a', 'b', 'c', 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestReadWriterErrors(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{5, 0, 0, 0, 1, 2}))
	_, err := rw.ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)

	rw = New(bytes.NewBuffer([]byte{0, 0, 1, 0}))
	rw.MaxPacket = 1024
	_, err = rw.ReadPacket()
	require.Equal(t, ErrPacketTooLarge, err)
	require.Equal(t, ErrPacketTooLarge, rw.WritePacket(make([]byte, 1025)))
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	sink := telemetry.NewPacketSink(rw)
	require.NoError(t, sink.WriteMessage(msgs.NewLogCommand(msgs.ActionWipe, "")))
	msg, err := telemetry.ReadMessage(rw)
	require.NoError(t, err)
	require.Equal(t, msgs.ActionWipe, msg.(*msgs.LogCommand).Action)
}
