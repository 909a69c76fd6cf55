package bmi323

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Bus transfers register words to and from the device.
type Bus interface {
	// ReadRegs reads len(data) bytes starting at reg, dummy bytes excluded.
	ReadRegs(reg Register, data []byte) error
	// WriteReg writes one 16-bit word to reg.
	WriteReg(reg Register, value uint16) error
}

// SPI bus settings, datasheet §7.2.
const (
	// SPIMaxFreq is the maximum SCK frequency. Drops to 8 MHz when VDDIO < 1.62V.
	SPIMaxFreq = 10 * physic.MegaHertz
	// SPIMode is one of the two supported modes ('00' and '11'), selected
	// automatically by the device from SCK state at CSB falling edge.
	SPIMode = spi.Mode3

	spiReadFlag   = 0x80
	spiDummyBytes = 1
	i2cDummyBytes = 2

	// DefaultI2CAddr is the address with SDO pulled low.
	DefaultI2CAddr uint16 = 0x68
	// AltI2CAddr is the address with SDO pulled high.
	AltI2CAddr uint16 = 0x69
)

// SPIOpts are optional settings of the SPI transport.
type SPIOpts struct {
	// CS, when set, is pulsed low then high once to give the device the
	// CSB rising edge it requires after power-up to enable SPI.
	CS gpio.PinOut
	// Settle is the time spent at each CS level. Defaults to 200µs.
	Settle time.Duration
}

// SPIBus implements Bus over an SPI connection.
type SPIBus struct {
	conn spi.Conn
}

// ConnectSPI connects the port with the settings the device supports.
func ConnectSPI(port spi.Port, freq physic.Frequency) (spi.Conn, error) {
	if freq == 0 || freq > SPIMaxFreq {
		freq = SPIMaxFreq
	}
	return port.Connect(freq, SPIMode, 8)
}

// NewSPI creates the SPI transport.
func NewSPI(conn spi.Conn, opts *SPIOpts) (*SPIBus, error) {
	if opts != nil && opts.CS != nil {
		settle := opts.Settle
		if settle == 0 {
			settle = 200 * time.Microsecond
		}
		if err := opts.CS.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("bmi323: select: %w", err)
		}
		time.Sleep(settle)
		if err := opts.CS.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("bmi323: deselect: %w", err)
		}
		time.Sleep(settle)
	}
	return &SPIBus{conn: conn}, nil
}

// ReadRegs implements Bus.
func (b *SPIBus) ReadRegs(reg Register, data []byte) error {
	w := make([]byte, 1+spiDummyBytes+len(data))
	r := make([]byte, len(w))
	w[0] = spiReadFlag | byte(reg)
	if err := b.conn.Tx(w, r); err != nil {
		return &BusError{Op: "read", Reg: reg, Err: err}
	}
	copy(data, r[1+spiDummyBytes:])
	if glog.V(5) {
		glog.Infof("bmi323: SPI read %s: % x", reg, data)
	}
	return nil
}

// WriteReg implements Bus.
func (b *SPIBus) WriteReg(reg Register, value uint16) error {
	w := []byte{byte(reg) &^ spiReadFlag, 0, 0}
	binary.LittleEndian.PutUint16(w[1:], value)
	if glog.V(5) {
		glog.Infof("bmi323: SPI write %s: %04x", reg, value)
	}
	if err := b.conn.Tx(w, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// I2CBus implements Bus over I²C.
type I2CBus struct {
	dev i2c.Dev
}

// NewI2C creates the I²C transport. addr 0 selects DefaultI2CAddr.
func NewI2C(bus i2c.Bus, addr uint16) *I2CBus {
	if addr == 0 {
		addr = DefaultI2CAddr
	}
	return &I2CBus{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// ReadRegs implements Bus.
func (b *I2CBus) ReadRegs(reg Register, data []byte) error {
	r := make([]byte, i2cDummyBytes+len(data))
	if err := b.dev.Tx([]byte{byte(reg)}, r); err != nil {
		return &BusError{Op: "read", Reg: reg, Err: err}
	}
	copy(data, r[i2cDummyBytes:])
	if glog.V(5) {
		glog.Infof("bmi323: I2C read %s: % x", reg, data)
	}
	return nil
}

// WriteReg implements Bus.
func (b *I2CBus) WriteReg(reg Register, value uint16) error {
	w := []byte{byte(reg), 0, 0}
	binary.LittleEndian.PutUint16(w[1:], value)
	if glog.V(5) {
		glog.Infof("bmi323: I2C write %s: %04x", reg, value)
	}
	if err := b.dev.Tx(w, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}
