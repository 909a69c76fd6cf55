// Package imu adds the IMU test commands to the shell.
package imu

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/hamster/pkg/bmi323"
	"github.com/robotalks/hamster/pkg/cli/sh"
)

var accelRanges = map[string]bmi323.AccelRange{
	"2g":  bmi323.AccelRange2G,
	"4g":  bmi323.AccelRange4G,
	"8g":  bmi323.AccelRange8G,
	"16g": bmi323.AccelRange16G,
}

var gyroRanges = map[string]bmi323.GyroRange{
	"125":  bmi323.GyroRange125DPS,
	"250":  bmi323.GyroRange250DPS,
	"500":  bmi323.GyroRange500DPS,
	"1000": bmi323.GyroRange1000DPS,
	"2000": bmi323.GyroRange2000DPS,
}

const (
	readHelp  = "[COUNT] [INTERVAL]"
	setupHelp = "[2g|4g|8g|16g] [125|250|500|1000|2000]"
	regHelp   = "REG [VALUE]"
)

type axes struct {
	Raw       [3]int16   `json:"raw"`
	Value     [3]float64 `json:"value"`
	Unit      string     `json:"unit"`
	Timestamp uint32     `json:"timestamp"`
}

func withIMU(fn func(s *sh.Shell, dev *bmi323.Dev, w io.Writer, args []string) error) func(*sh.Shell, io.Writer, []string) error {
	return func(s *sh.Shell, w io.Writer, args []string) error {
		dev, err := s.IMU()
		if err != nil {
			return err
		}
		return fn(s, dev, w, args)
	}
}

func accelAxes(a bmi323.Accel, r bmi323.AccelRange) axes {
	x, y, z := a.G(r)
	return axes{Raw: [3]int16{a.X, a.Y, a.Z}, Value: [3]float64{x, y, z}, Unit: "g", Timestamp: a.Timestamp}
}

func gyroAxes(g bmi323.Gyro, r bmi323.GyroRange) axes {
	x, y, z := g.DPS(r)
	return axes{Raw: [3]int16{g.X, g.Y, g.Z}, Value: [3]float64{x, y, z}, Unit: "dps", Timestamp: g.Timestamp}
}

func (a axes) String() string {
	return fmt.Sprintf("x=%6d y=%6d z=%6d (%.3f, %.3f, %.3f %s) t=%d",
		a.Raw[0], a.Raw[1], a.Raw[2], a.Value[0], a.Value[1], a.Value[2], a.Unit, a.Timestamp)
}

func parseRegister(arg string) (bmi323.Register, bool) {
	if reg, ok := bmi323.RegisterByName(strings.ToUpper(arg)); ok {
		return reg, true
	}
	n, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, false
	}
	return bmi323.Register(n), true
}

var (
	// InitCmd runs the device init sequence.
	InitCmd = sh.Command{
		Name: "imu.init",
		Run: func(s *sh.Shell, w io.Writer, args []string) error {
			dev, err := s.IMU()
			if err != nil {
				return err
			}
			status, err := dev.Init()
			if err != nil {
				return fmt.Errorf("init %s: %w", status, err)
			}
			return s.Output(w, map[string]string{"status": status.String()}, "Init %s", status)
		},
	}

	// StatusCmd prints STATUS and ERR_REG.
	StatusCmd = sh.Command{
		Name: "imu.status",
		Run: withIMU(func(s *sh.Shell, dev *bmi323.Dev, w io.Writer, _ []string) error {
			status, err := dev.Status()
			if err != nil {
				return err
			}
			errs, err := dev.Errors()
			if err != nil {
				return err
			}
			return s.Output(w, map[string]interface{}{
				"status":      uint16(status),
				"errors":      uint16(errs),
				"por":         status.PowerOnReset(),
				"accel_ready": status.AccelReady(),
				"gyro_ready":  status.GyroReady(),
				"fatal":       errs.Fatal(),
			}, "status 0x%04x por=%t drdy_acc=%t drdy_gyr=%t drdy_tmp=%t\nerrors 0x%04x fatal=%t acc_conf=%t gyr_conf=%t",
				uint16(status), status.PowerOnReset(), status.AccelReady(), status.GyroReady(), status.TempReady(),
				uint16(errs), errs.Fatal(), errs.AccelConf(), errs.GyroConf())
		}),
	}

	// AccelCmd reads the accelerometer.
	AccelCmd = sh.Command{
		Name:    "imu.accel",
		Aliases: []string{"acc"},
		Run: withIMU(func(s *sh.Shell, dev *bmi323.Dev, w io.Writer, _ []string) error {
			a, err := dev.ReadAccel()
			if err != nil {
				return err
			}
			v := accelAxes(a, dev.AccelRange())
			return s.Output(w, v, "accel %s", v)
		}),
	}

	// GyroCmd reads the gyroscope.
	GyroCmd = sh.Command{
		Name:    "imu.gyro",
		Aliases: []string{"gyr"},
		Run: withIMU(func(s *sh.Shell, dev *bmi323.Dev, w io.Writer, _ []string) error {
			g, err := dev.ReadGyro()
			if err != nil {
				return err
			}
			v := gyroAxes(g, dev.GyroRange())
			return s.Output(w, v, "gyro %s", v)
		}),
	}

	// ReadCmd reads full samples.
	ReadCmd = sh.Command{
		Name: "imu.read",
		Help: readHelp,
		Run:  withIMU(readSamples),
	}

	// TempCmd reads the temperature.
	TempCmd = sh.Command{
		Name: "imu.temp",
		Run: withIMU(func(s *sh.Shell, dev *bmi323.Dev, w io.Writer, _ []string) error {
			c, err := dev.ReadTemperature()
			if err != nil {
				return err
			}
			return s.Output(w, map[string]float64{"celsius": c}, "%.2f°C", c)
		}),
	}

	// SetupCmd configures both sensors.
	SetupCmd = sh.Command{
		Name: "imu.setup",
		Help: setupHelp,
		Run:  withIMU(setup),
	}

	// ResetCmd soft resets the device.
	ResetCmd = sh.Command{
		Name: "imu.reset",
		Run: withIMU(func(s *sh.Shell, dev *bmi323.Dev, w io.Writer, _ []string) error {
			if err := dev.SoftReset(); err != nil {
				return err
			}
			return s.Output(w, map[string]bool{"ok": true}, "OK")
		}),
	}

	// RegCmd reads or writes a register.
	RegCmd = sh.Command{
		Name: "imu.reg",
		Help: regHelp,
		Run:  withIMU(register),
	}
)

func readSamples(s *sh.Shell, dev *bmi323.Dev, w io.Writer, args []string) error {
	count, interval := 1, 100*time.Millisecond
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return sh.UsageError("imu.read", readHelp)
		}
		count = n
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return sh.UsageError("imu.read", readHelp)
		}
		interval = d
	}
	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		sample, err := dev.ReadAll()
		if err != nil {
			return err
		}
		acc, gyr := accelAxes(sample.Accel, dev.AccelRange()), gyroAxes(sample.Gyro, dev.GyroRange())
		c, _ := sample.Celsius()
		v := map[string]interface{}{"accel": acc, "gyro": gyr, "celsius": c, "timestamp": sample.Timestamp}
		if err := s.Output(w, v, "%d accel %s\n  gyro %s\n  temp %.2f°C", i, acc, gyr, c); err != nil {
			return err
		}
	}
	return nil
}

func setup(s *sh.Shell, dev *bmi323.Dev, w io.Writer, args []string) error {
	acc, gyr := bmi323.DefaultAccelConfig, bmi323.DefaultGyroConfig
	if len(args) > 0 {
		r, ok := accelRanges[strings.ToLower(args[0])]
		if !ok {
			return sh.UsageError("imu.setup", setupHelp)
		}
		acc.Range = r
	}
	if len(args) > 1 {
		r, ok := gyroRanges[args[1]]
		if !ok {
			return sh.UsageError("imu.setup", setupHelp)
		}
		gyr.Range = r
	}
	if err := dev.ConfigureAccel(acc); err != nil {
		return err
	}
	if err := dev.ConfigureGyro(gyr); err != nil {
		return err
	}
	return s.Output(w, map[string]uint16{"acc_conf": acc.Word(), "gyr_conf": gyr.Word()},
		"ACC_CONF 0x%04x GYR_CONF 0x%04x", acc.Word(), gyr.Word())
}

func register(s *sh.Shell, dev *bmi323.Dev, w io.Writer, args []string) error {
	if len(args) < 1 {
		return sh.UsageError("imu.reg", regHelp)
	}
	reg, ok := parseRegister(args[0])
	if !ok {
		return fmt.Errorf("unknown register %q", args[0])
	}
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return sh.UsageError("imu.reg", regHelp)
		}
		if err := dev.WriteRegister(reg, uint16(v)); err != nil {
			return err
		}
	}
	v, err := dev.ReadRegister(reg)
	if err != nil {
		return err
	}
	return s.Output(w, map[string]interface{}{"reg": reg.String(), "value": v}, "%s = 0x%04x", reg, v)
}

func init() {
	sh.AddCmds(
		&InitCmd,
		&StatusCmd,
		&AccelCmd,
		&GyroCmd,
		&ReadCmd,
		&TempCmd,
		&SetupCmd,
		&ResetCmd,
		&RegCmd,
	)
}
