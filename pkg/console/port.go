package console

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the console baud rate.
const DefaultBaud = 115200

// PortOptions configures a serial port.
type PortOptions struct {
	Baud     int
	DataBits int
	StopBits int
	// Parity is N, E or O.
	Parity string
	// ReadTimeout makes reads return empty when the line is idle.
	ReadTimeout time.Duration
}

func (o PortOptions) mode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: o.Baud, DataBits: o.DataBits}
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaud
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("console: invalid stop bits %d", o.StopBits)
	}
	switch o.Parity {
	case "", "N", "n":
		mode.Parity = serial.NoParity
	case "E", "e":
		mode.Parity = serial.EvenParity
	case "O", "o":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("console: unsupported parity %q", o.Parity)
	}
	return mode, nil
}

// OpenPort opens a serial port.
func OpenPort(name string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("console: open %s: %w", name, err)
	}
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	return port, nil
}

// Ports lists the serial ports on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
