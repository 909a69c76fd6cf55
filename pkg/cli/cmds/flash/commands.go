// Package flash adds the flash log commands to the shell.
package flash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/hamster/pkg/cli/sh"
	"github.com/robotalks/hamster/pkg/console"
	"github.com/robotalks/hamster/pkg/flashlog"
)

const (
	writeHelp = "TYPE [TEXT|HEX]"
	readHelp  = "ADDR LEN"
	listHelp  = "[COUNT]"
	dumpHelp  = "[PORT]"

	// maxRead limits log.read to what is sensible to print.
	maxRead = 4096
)

type info struct {
	Ready     bool   `json:"ready"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Tail      uint64 `json:"tail"`
	Size      uint64 `json:"size"`
	Remaining uint64 `json:"remaining"`
}

type entry struct {
	Addr uint64 `json:"addr"`
	Type string `json:"type"`
	Len  int    `json:"len"`
	Text string `json:"text"`
}

func withLog(fn func(s *sh.Shell, l *flashlog.Log, w io.Writer, args []string) error) func(*sh.Shell, io.Writer, []string) error {
	return func(s *sh.Shell, w io.Writer, args []string) error {
		l, err := s.Log()
		if err != nil {
			return err
		}
		return fn(s, l, w, args)
	}
}

func parseUint(arg string) (uint64, bool) {
	n, err := strconv.ParseUint(arg, 0, 64)
	return n, err == nil
}

var (
	// InfoCmd shows the log region and usage.
	InfoCmd = sh.Command{
		Name: "log.info",
		Run: withLog(func(s *sh.Shell, l *flashlog.Log, w io.Writer, _ []string) error {
			v := info{
				Ready: l.Ready(),
				Start: l.Start(),
				End:   l.End(),
			}
			if v.Ready {
				v.Tail, v.Size, v.Remaining = l.Tail(), l.Size(), l.Remaining()
			}
			return s.Output(w, v, "region 0x%x-0x%x ready=%t\ntail 0x%x used %d free %d",
				v.Start, v.End, v.Ready, v.Tail, v.Size, v.Remaining)
		}),
	}

	// WriteCmd appends a packet.
	WriteCmd = sh.Command{
		Name: "log.write",
		Help: writeHelp,
		Run:  withLog(write),
	}

	// ReadCmd hex dumps raw log bytes.
	ReadCmd = sh.Command{
		Name: "log.read",
		Help: readHelp,
		Run:  withLog(read),
	}

	// ListCmd prints the packets from the start of the log.
	ListCmd = sh.Command{
		Name:    "log.list",
		Aliases: []string{"ls"},
		Help:    listHelp,
		Run:     withLog(list),
	}

	// WipeCmd erases the log region.
	WipeCmd = sh.Command{
		Name: "log.wipe",
		Run: withLog(func(s *sh.Shell, l *flashlog.Log, w io.Writer, _ []string) error {
			start := time.Now()
			if err := l.Wipe(); err != nil {
				return err
			}
			d := time.Since(start)
			return s.Output(w, map[string]interface{}{"ok": true, "elapsed": d.String()}, "wiped in %s", d)
		}),
	}

	// DumpCmd sends the log image over the console port.
	DumpCmd = sh.Command{
		Name: "log.dump",
		Help: dumpHelp,
		Run:  withLog(dump),
	}
)

func write(s *sh.Shell, l *flashlog.Log, w io.Writer, args []string) error {
	if len(args) < 1 {
		return sh.UsageError("log.write", writeHelp)
	}
	typ, ok := flashlog.ParsePacketType(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown packet type %q", args[0])
	}
	var payload []byte
	switch typ {
	case flashlog.TypeText:
		payload = []byte(strings.Join(args[1:], " "))
	case flashlog.TypeMarker:
		payload = flashlog.NewMarker(time.Now()).Encode()
	default:
		b, err := hex.DecodeString(strings.Join(args[1:], ""))
		if err != nil {
			return sh.UsageError("log.write", writeHelp)
		}
		payload = b
	}
	addr := l.Tail()
	if err := l.Append(typ, payload); err != nil {
		return err
	}
	return s.Output(w, map[string]interface{}{"addr": addr, "type": typ.String(), "len": len(payload)},
		"%s packet of %d bytes at 0x%x", typ, len(payload), addr)
}

func read(s *sh.Shell, l *flashlog.Log, w io.Writer, args []string) error {
	if len(args) < 2 {
		return sh.UsageError("log.read", readHelp)
	}
	addr, ok := parseUint(args[0])
	if !ok {
		return sh.UsageError("log.read", readHelp)
	}
	n, ok := parseUint(args[1])
	if !ok || n == 0 || n > maxRead {
		return sh.UsageError("log.read", readHelp)
	}
	buf := make([]byte, n)
	if err := l.ReadData(buf, addr); err != nil {
		return err
	}
	return s.Output(w, map[string]interface{}{"addr": addr, "data": hex.EncodeToString(buf)},
		"%s", strings.TrimSuffix(hex.Dump(buf), "\n"))
}

func list(s *sh.Shell, l *flashlog.Log, w io.Writer, args []string) error {
	limit := -1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return sh.UsageError("log.list", listHelp)
		}
		limit = n
	}
	var entries []entry
	errDone := errors.New("done")
	err := l.Each(func(p flashlog.Packet) error {
		if limit >= 0 && len(entries) >= limit {
			return errDone
		}
		entries = append(entries, entry{
			Addr: p.Addr,
			Type: p.Type.String(),
			Len:  len(p.Payload),
			Text: flashlog.Describe(p),
		})
		return nil
	})
	if err != nil && err != errDone {
		return err
	}
	if s.OutputJSON {
		return s.Output(w, entries, "")
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "0x%08x %-6s %4d %s\n", e.Addr, e.Type, e.Len, e.Text); err != nil {
			return err
		}
	}
	return nil
}

func dump(s *sh.Shell, l *flashlog.Log, w io.Writer, args []string) error {
	opts := console.PortOptions{Baud: console.DefaultBaud}
	var name string
	if c := s.Board.Config; c != nil {
		name, opts.Baud = c.Console, c.ConsoleBaud
	}
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return sh.UsageError("log.dump", dumpHelp)
	}
	port, err := console.OpenPort(name, opts)
	if err != nil {
		return err
	}
	defer port.Close()
	d := console.NewDumper(port)
	if err := d.Text(fmt.Sprintf("log dump %d bytes", l.Size())); err != nil {
		return err
	}
	if err := d.Dump(l); err != nil {
		return err
	}
	glog.Infof("log dumped to %s", name)
	return s.Output(w, map[string]interface{}{"port": name, "size": l.Size()}, "dumped %d bytes to %s", l.Size(), name)
}

func init() {
	sh.AddCmds(
		&InfoCmd,
		&WriteCmd,
		&ReadCmd,
		&ListCmd,
		&WipeCmd,
		&DumpCmd,
	)
}
