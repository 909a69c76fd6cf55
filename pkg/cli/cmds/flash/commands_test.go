package flash

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hamster/pkg/blockdev"
	"github.com/robotalks/hamster/pkg/board"
	"github.com/robotalks/hamster/pkg/cli/sh"
	"github.com/robotalks/hamster/pkg/flashlog"
)

func newShell(t *testing.T) *sh.Shell {
	mem, err := blockdev.NewMem(blockdev.Geometry{ReadSize: 1, ProgramSize: 16, EraseSize: 256, Size: 4096})
	require.NoError(t, err)
	l := flashlog.New(mem, flashlog.Config{Start: 1024, End: 4096})
	require.NoError(t, l.Init())
	return &sh.Shell{Board: &board.Board{Config: &board.Config{}, Log: l}}
}

func TestWriteAndList(t *testing.T) {
	s := newShell(t)
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "log.write", "text", "hello", "world"))
	require.Equal(t, "text packet of 11 bytes at 0x400\n", out.String())
	require.NoError(t, s.Exec(&out, "log.write", "marker"))
	require.NoError(t, s.Exec(&out, "log.write", "accel", "0100", "0200", "0300", "05000000"))
	require.ErrorIs(t, s.Exec(&out, "log.write", "gyro", "zz"), sh.ErrUsage)
	require.EqualError(t, s.Exec(&out, "log.write", "bogus"), `unknown packet type "bogus"`)
	require.ErrorIs(t, s.Exec(&out, "log.write"), sh.ErrUsage)

	out.Reset()
	require.NoError(t, s.Exec(&out, "log.list"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], `text     11 "hello world"`)
	require.Contains(t, lines[1], "marker")
	require.Contains(t, lines[2], "accel")

	out.Reset()
	require.NoError(t, s.Exec(&out, "ls", "1"))
	require.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 1)

	s.OutputJSON = true
	out.Reset()
	require.NoError(t, s.Exec(&out, "log.list"))
	var entries []entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 3)
	require.Equal(t, uint64(0x400), entries[0].Addr)
	require.Equal(t, uint64(0x400+8+11), entries[1].Addr)
}

func TestInfoAndWipe(t *testing.T) {
	s := newShell(t)
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "log.write", "text", "abc"))

	s.OutputJSON = true
	require.NoError(t, s.Exec(&out, "log.info"))
	var v info
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	require.Equal(t, info{Ready: true, Start: 1024, End: 4096, Tail: 1035, Size: 11, Remaining: 3061}, v)

	out.Reset()
	require.NoError(t, s.Exec(&out, "log.wipe"))
	require.Zero(t, s.Board.Log.Size())
}

func TestRead(t *testing.T) {
	s := newShell(t)
	var out bytes.Buffer
	require.NoError(t, s.Exec(&out, "log.write", "text", "hi"))

	s.OutputJSON = true
	out.Reset()
	require.NoError(t, s.Exec(&out, "log.read", "0x400", "4"))
	var v struct {
		Addr uint64 `json:"addr"`
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	require.Equal(t, uint64(0x400), v.Addr)
	require.Equal(t, "f1040200", v.Data)

	require.Equal(t, flashlog.ErrBounds, s.Exec(&out, "log.read", "0", "4"))
	require.ErrorIs(t, s.Exec(&out, "log.read", "0x400"), sh.ErrUsage)
	require.ErrorIs(t, s.Exec(&out, "log.read", "0x400", "0"), sh.ErrUsage)
}

func TestDumpNoPort(t *testing.T) {
	s := newShell(t)
	require.ErrorIs(t, s.Exec(&bytes.Buffer{}, "log.dump"), sh.ErrUsage)
}
