package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/hamster/pkg/board"
	"github.com/robotalks/hamster/pkg/console"
	"github.com/robotalks/hamster/pkg/flashlog"
)

var (
	listPorts bool
	output    string
	input     string
	inStart   uint64
)

func init() {
	board.SetupFlags()
	flag.BoolVar(&listPorts, "ports", listPorts, "List serial ports and exit")
	flag.StringVar(&output, "o", output, "Save the received image to this file")
	flag.StringVar(&input, "i", input, "Decode a saved image instead of receiving")
	flag.Uint64Var(&inStart, "start", inStart, "Log address of the saved image")
}

func receive(conf *board.Config) (uint64, []byte, error) {
	if conf.Console == "" {
		return 0, nil, fmt.Errorf("no console port, use -console")
	}
	port, err := console.OpenPort(conf.Console, console.PortOptions{
		Baud:        conf.ConsoleBaud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return 0, nil, err
	}
	defer port.Close()

	rc := &console.Receiver{
		IdleLimit: 50,
		Text:      func(msg string) { glog.Infof("device: %s", msg) },
	}
	var buf bytes.Buffer
	glog.Infof("waiting for dump on %s", conf.Console)
	img, err := rc.Receive(port, &buf)
	if err != nil {
		return 0, nil, err
	}
	glog.Infof("received %d bytes from 0x%x, crc %08x", img.Size, img.Start, img.CRC)
	return uint64(img.Start), buf.Bytes(), nil
}

func run(conf *board.Config) error {
	if listPorts {
		ports, err := console.Ports()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	var (
		start uint64
		data  []byte
		err   error
	)
	if input != "" {
		start = inStart
		data, err = os.ReadFile(input)
	} else {
		start, data, err = receive(conf)
	}
	if err != nil {
		return err
	}
	if output != "" {
		if err := os.WriteFile(output, data, 0644); err != nil {
			return err
		}
	}

	l, err := flashlog.FromImage(start, data)
	if l == nil {
		return err
	}
	if err != nil {
		// the packets before a corrupt record are still listed.
		glog.Warningf("image: %v", err)
		return listRaw(start, data)
	}
	return l.Each(func(p flashlog.Packet) error {
		fmt.Printf("0x%08x %-6s %s\n", p.Addr, p.Type, flashlog.Describe(p))
		return nil
	})
}

// listRaw walks packets of an image that couldn't be restored, stopping
// at the first invalid record.
func listRaw(start uint64, data []byte) error {
	for off := 0; off < len(data); {
		p, err := flashlog.DecodePacket(data[off:])
		if err != nil {
			return fmt.Errorf("at 0x%x: %w", start+uint64(off), err)
		}
		p.Addr = start + uint64(off)
		fmt.Printf("0x%08x %-6s %s\n", p.Addr, p.Type, flashlog.Describe(p))
		off += int(p.Size())
	}
	return nil
}

func main() {
	flag.Parse()
	if err := run(board.NewConfig()); err != nil {
		glog.Exit(err)
	}
}
