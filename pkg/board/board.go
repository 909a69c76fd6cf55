// Package board assembles the IMU and the flash log of a sensor node from
// a Config.
package board

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/robotalks/hamster/pkg/bmi323"
	"github.com/robotalks/hamster/pkg/blockdev"
	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/flashlog"
)

// Board holds the opened hardware. Fields are nil when not opened.
type Board struct {
	Config *Config
	IMU    *bmi323.Dev
	Log    *flashlog.Log

	closers []io.Closer
}

func hostInit() error {
	state, err := host.Init()
	if err != nil {
		return err
	}
	for _, f := range state.Failed {
		glog.V(1).Infof("periph: %v", f)
	}
	return nil
}

// New creates a Board without opening anything.
func (c *Config) New() *Board {
	return &Board{Config: c}
}

// OpenIMU opens and initializes the IMU.
func (b *Board) OpenIMU() (*bmi323.Dev, error) {
	if b.IMU != nil {
		return b.IMU, nil
	}
	bus, err := b.imuBus()
	if err != nil {
		return nil, err
	}
	dev := bmi323.New(bus)
	status, err := dev.Init()
	if err != nil {
		return nil, fmt.Errorf("imu init %s: %w", status, err)
	}
	b.IMU = dev
	return dev, nil
}

func (b *Board) imuBus() (bmi323.Bus, error) {
	c := b.Config
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph: %w", err)
	}
	switch c.IMUBus {
	case BusSPI:
		port, err := spireg.Open(c.IMUPort)
		if err != nil {
			return nil, fmt.Errorf("imu port %q: %w", c.IMUPort, err)
		}
		b.closers = append(b.closers, port)
		conn, err := bmi323.ConnectSPI(port, c.IMUFreq)
		if err != nil {
			return nil, err
		}
		var opts *bmi323.SPIOpts
		if c.IMUCSPin != "" {
			pin := gpioreg.ByName(c.IMUCSPin)
			if pin == nil {
				return nil, fmt.Errorf("imu cs %q: no such pin", c.IMUCSPin)
			}
			opts = &bmi323.SPIOpts{CS: pin}
		}
		return bmi323.NewSPI(conn, opts)
	case BusI2C:
		bus, err := i2creg.Open(c.IMUPort)
		if err != nil {
			return nil, fmt.Errorf("imu bus %q: %w", c.IMUPort, err)
		}
		b.closers = append(b.closers, bus)
		return bmi323.NewI2C(bus, uint16(c.IMUI2CAddr)), nil
	}
	return nil, fmt.Errorf("unknown imu bus %q", c.IMUBus)
}

// OpenFlash opens the block device under the log: an image file when
// FlashImage is set, otherwise the flash chips chained and buffered.
func (b *Board) OpenFlash() (blockdev.Device, error) {
	c := b.Config
	if c.FlashImage != "" {
		return b.openImage()
	}
	ports := c.flashPorts()
	if len(ports) == 0 {
		return nil, errors.New("no flash ports")
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph: %w", err)
	}
	var chips []blockdev.Device
	for _, name := range ports {
		port, err := spireg.Open(name)
		if err != nil {
			return nil, fmt.Errorf("flash port %q: %w", name, err)
		}
		b.closers = append(b.closers, port)
		conn, err := blockdev.ConnectSPIF(port, c.FlashFreq)
		if err != nil {
			return nil, fmt.Errorf("flash port %q: %w", name, err)
		}
		chips = append(chips, blockdev.NewSPIF(conn, nil))
	}
	return blockdev.NewBuffered(blockdev.NewChain(chips...)), nil
}

// ImageGeometry is the geometry of flash image files.
func ImageGeometry(size uint64) blockdev.Geometry {
	return blockdev.Geometry{
		ReadSize:    1,
		ProgramSize: blockdev.SPIFPageSize,
		EraseSize:   blockdev.SPIFSectorSize,
		Size:        size,
	}
}

func (b *Board) openImage() (blockdev.Device, error) {
	c := b.Config
	var f *blockdev.File
	var err error
	if _, serr := os.Stat(c.FlashImage); os.IsNotExist(serr) {
		glog.Infof("creating flash image %s of %d bytes", c.FlashImage, c.FlashImageSize)
		f, err = blockdev.CreateFile(c.FlashImage, ImageGeometry(c.FlashImageSize))
	} else {
		f, err = blockdev.OpenFile(c.FlashImage, ImageGeometry(0))
	}
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, f)
	return blockdev.NewBuffered(f), nil
}

// OpenLog opens the flash and initializes the log. When restoring fails
// the Log is still returned with the error, so it can be wiped.
func (b *Board) OpenLog() (*flashlog.Log, error) {
	if b.Log != nil {
		return b.Log, nil
	}
	dev, err := b.OpenFlash()
	if err != nil {
		return nil, err
	}
	c := b.Config
	l := flashlog.New(dev, flashlog.Config{Start: c.LogStart, End: c.LogEnd, Restore: c.LogRestore})
	b.Log = l
	err = l.Init()
	switch flashlog.Code(err) {
	case flashlog.Success:
		return l, nil
	case flashlog.ErrBDInit, flashlog.ErrBDParams:
		b.Log = nil
		return nil, err
	}
	return l, err
}

// Close releases everything opened.
func (b *Board) Close() error {
	var errs fx.AggregatedError
	if b.Log != nil {
		errs.Add(b.Log.Deinit())
		b.Log = nil
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs.Add(b.closers[i].Close())
	}
	b.closers = nil
	b.IMU = nil
	return errs.Aggregate()
}
