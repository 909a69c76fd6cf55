package bmi323

import (
	"time"

	"github.com/golang/glog"
)

// InitStatus is the outcome of Init.
type InitStatus uint8

// Init outcomes.
const (
	InitSuccess InitStatus = iota
	InitFail
	DeviceNotFound
)

// String implements fmt.Stringer.
func (s InitStatus) String() string {
	switch s {
	case InitSuccess:
		return "success"
	case DeviceNotFound:
		return "device not found"
	}
	return "fail"
}

// softResetDelay covers the 1.5ms start-up after a soft reset.
const softResetDelay = 2 * time.Millisecond

// Dev is a BMI323 on a Bus.
type Dev struct {
	bus        Bus
	accelRange AccelRange
	gyroRange  GyroRange
}

// New creates a Dev. Init must be called before reading data.
func New(bus Bus) *Dev {
	return &Dev{bus: bus}
}

// Init switches the device to the bus in use, checks the chip ID and the
// error register, and loads the current ranges.
func (d *Dev) Init() (InitStatus, error) {
	var dummy [2]byte
	if err := d.bus.ReadRegs(ChipID, dummy[:]); err != nil {
		return InitFail, err
	}
	id, err := d.ReadRegister(ChipID)
	if err != nil {
		return InitFail, err
	}
	glog.Infof("bmi323: chip ID 0x%04x", id)
	if id&0xff != chipIDValue {
		return DeviceNotFound, ErrNotFound
	}
	errs, err := d.Errors()
	if err != nil {
		return InitFail, err
	}
	status, err := d.Status()
	if err != nil {
		return InitFail, err
	}
	glog.Infof("bmi323: status 0x%04x, errors 0x%04x", uint16(status), uint16(errs))
	if errs.Fatal() {
		return InitFail, ErrFatal
	}
	acc, err := d.AccelConfig()
	if err != nil {
		return InitFail, err
	}
	gyr, err := d.GyroConfig()
	if err != nil {
		return InitFail, err
	}
	d.accelRange, d.gyroRange = acc.Range, gyr.Range
	return InitSuccess, nil
}

// ReadRegister reads one register word.
func (d *Dev) ReadRegister(reg Register) (uint16, error) {
	var b [2]byte
	if err := d.bus.ReadRegs(reg, b[:]); err != nil {
		return 0, err
	}
	return word(b[:], 0), nil
}

// WriteRegister writes one register word.
func (d *Dev) WriteRegister(reg Register, value uint16) error {
	return d.bus.WriteReg(reg, value)
}

// UpdateRegister replaces the bits in mask with value and keeps the rest,
// returning the word written.
func (d *Dev) UpdateRegister(reg Register, mask, value uint16) (uint16, error) {
	old, err := d.ReadRegister(reg)
	if err != nil {
		return 0, err
	}
	w := old&^mask | value&mask
	glog.V(3).Infof("bmi323: %s 0x%04x -> 0x%04x", reg, old, w)
	return w, d.bus.WriteReg(reg, w)
}

// ChipID reads CHIP_ID.
func (d *Dev) ChipID() (uint16, error) {
	return d.ReadRegister(ChipID)
}

// Status reads STATUS.
func (d *Dev) Status() (StatusFlags, error) {
	v, err := d.ReadRegister(Status)
	return StatusFlags(v), err
}

// Errors reads ERR_REG.
func (d *Dev) Errors() (ErrorFlags, error) {
	v, err := d.ReadRegister(ErrReg)
	return ErrorFlags(v), err
}

// ReadAccel reads the accelerometer axes and the sensor time.
func (d *Dev) ReadAccel() (a Accel, err error) {
	var b [6]byte
	if err = d.bus.ReadRegs(AccDataX, b[:]); err != nil {
		return
	}
	a.X, a.Y, a.Z = triple(b[:])
	a.Timestamp, err = d.SensorTime()
	return
}

// ReadGyro reads the gyroscope axes and the sensor time.
func (d *Dev) ReadGyro() (g Gyro, err error) {
	var b [6]byte
	if err = d.bus.ReadRegs(GyrDataX, b[:]); err != nil {
		return
	}
	g.X, g.Y, g.Z = triple(b[:])
	g.Timestamp, err = d.SensorTime()
	return
}

// ReadAll reads ACC_DATA_X through SENSOR_TIME_1 in one burst.
func (d *Dev) ReadAll() (s Sample, err error) {
	var b [(SensorTime1 - AccDataX + 1) * 2]byte
	if err = d.bus.ReadRegs(AccDataX, b[:]); err != nil {
		return
	}
	s.Accel.X, s.Accel.Y, s.Accel.Z = triple(b[0:])
	s.Gyro.X, s.Gyro.Y, s.Gyro.Z = triple(b[6:])
	s.Temperature = int16(word(b[:], 6))
	s.Timestamp = sensorTime(b[14:])
	s.Accel.Timestamp, s.Gyro.Timestamp = s.Timestamp, s.Timestamp
	return
}

// ReadTemperature reads the die temperature in °C.
func (d *Dev) ReadTemperature() (float64, error) {
	v, err := d.ReadRegister(TempData)
	if err != nil {
		return 0, err
	}
	c, ok := tempCelsius(int16(v))
	if !ok {
		return 0, ErrNoData
	}
	return c, nil
}

// SensorTime reads the 32-bit sensor time.
func (d *Dev) SensorTime() (uint32, error) {
	var b [4]byte
	if err := d.bus.ReadRegs(SensorTime0, b[:]); err != nil {
		return 0, err
	}
	return sensorTime(b[:]), nil
}

// AccelConfig reads ACC_CONF.
func (d *Dev) AccelConfig() (AccelConfig, error) {
	v, err := d.ReadRegister(AccConf)
	return AccelConfigFrom(v), err
}

// GyroConfig reads GYR_CONF.
func (d *Dev) GyroConfig() (GyroConfig, error) {
	v, err := d.ReadRegister(GyrConf)
	return GyroConfigFrom(v), err
}

// ConfigureAccel writes ACC_CONF and verifies it was accepted.
func (d *Dev) ConfigureAccel(c AccelConfig) error {
	if err := d.configure(AccConf, c.Word()); err != nil {
		return err
	}
	d.accelRange = c.Range
	return nil
}

// ConfigureGyro writes GYR_CONF and verifies it was accepted.
func (d *Dev) ConfigureGyro(c GyroConfig) error {
	if err := d.configure(GyrConf, c.Word()); err != nil {
		return err
	}
	d.gyroRange = c.Range
	return nil
}

func (d *Dev) configure(reg Register, value uint16) error {
	want, err := d.UpdateRegister(reg, confFieldMask, value)
	if err != nil {
		return err
	}
	got, err := d.ReadRegister(reg)
	if err != nil {
		return err
	}
	flags, err := d.ReadRegister(ErrReg)
	if err != nil {
		return err
	}
	rejected := got != want
	switch reg {
	case AccConf:
		rejected = rejected || ErrorFlags(flags).AccelConf()
	case GyrConf:
		rejected = rejected || ErrorFlags(flags).GyroConf()
	}
	if rejected {
		return &ConfigError{Reg: reg, Want: want, Got: got, Flags: flags}
	}
	return nil
}

// SoftReset resets all registers to their defaults.
func (d *Dev) SoftReset() error {
	if err := d.bus.WriteReg(Cmd, cmdSoftReset); err != nil {
		return err
	}
	time.Sleep(softResetDelay)
	d.accelRange, d.gyroRange = AccelRange2G, GyroRange125DPS
	return nil
}

// AccelRange returns the range last read or configured.
func (d *Dev) AccelRange() AccelRange {
	return d.accelRange
}

// GyroRange returns the range last read or configured.
func (d *Dev) GyroRange() GyroRange {
	return d.gyroRange
}
