package bmi323

import (
	"encoding/binary"
	"fmt"
	"time"
)

// noData is reported by an axis without a valid sample.
const noData int16 = -0x8000

// SENSOR_TIME advances 39.0625µs per LSB, i.e. 78125/2 ns.
const (
	sensorTimeNsNum = 78125
	sensorTimeNsDen = 2
)

// Accel is a raw accelerometer reading.
type Accel struct {
	X, Y, Z   int16
	Timestamp uint32
}

// Gyro is a raw gyroscope reading.
type Gyro struct {
	X, Y, Z   int16
	Timestamp uint32
}

// Sample is a burst read of accelerometer, gyroscope, temperature and time.
type Sample struct {
	Accel       Accel
	Gyro        Gyro
	Temperature int16
	Timestamp   uint32
}

// Valid reports whether all axes carry data.
func (a Accel) Valid() bool {
	return a.X != noData && a.Y != noData && a.Z != noData
}

// G converts the reading to g for the given range.
func (a Accel) G(r AccelRange) (x, y, z float64) {
	s := r.LSBPerMg() * 1000
	return float64(a.X) / s, float64(a.Y) / s, float64(a.Z) / s
}

// String implements fmt.Stringer.
func (a Accel) String() string {
	return fmt.Sprintf("accel x=%d y=%d z=%d t=%d", a.X, a.Y, a.Z, a.Timestamp)
}

// Valid reports whether all axes carry data.
func (g Gyro) Valid() bool {
	return g.X != noData && g.Y != noData && g.Z != noData
}

// DPS converts the reading to degrees per second for the given range.
func (g Gyro) DPS(r GyroRange) (x, y, z float64) {
	s := r.LSBPerDPS()
	return float64(g.X) / s, float64(g.Y) / s, float64(g.Z) / s
}

// String implements fmt.Stringer.
func (g Gyro) String() string {
	return fmt.Sprintf("gyro x=%d y=%d z=%d t=%d", g.X, g.Y, g.Z, g.Timestamp)
}

// Celsius converts the raw temperature. ok is false without a valid reading.
func (s Sample) Celsius() (c float64, ok bool) {
	return tempCelsius(s.Temperature)
}

// Time converts the sensor time of the sample.
func (s Sample) Time() time.Duration {
	return SensorTime(s.Timestamp)
}

func tempCelsius(raw int16) (float64, bool) {
	if raw == noData {
		return 0, false
	}
	return float64(raw)/512 + 23, true
}

// SensorTime converts a SENSOR_TIME value to a duration since power-up.
func SensorTime(ticks uint32) time.Duration {
	return time.Duration(uint64(ticks) * sensorTimeNsNum / sensorTimeNsDen)
}

func word(b []byte, n int) uint16 {
	return binary.LittleEndian.Uint16(b[n*2:])
}

func triple(b []byte) (x, y, z int16) {
	return int16(word(b, 0)), int16(word(b, 1)), int16(word(b, 2))
}

func sensorTime(b []byte) uint32 {
	return uint32(word(b, 0)) | uint32(word(b, 1))<<16
}

// StatusFlags is the content of STATUS.
type StatusFlags uint16

// PowerOnReset reports a POR since the register was last read.
func (s StatusFlags) PowerOnReset() bool { return uint16(s)&statusPOR != 0 }

// AccelReady reports new accelerometer data.
func (s StatusFlags) AccelReady() bool { return uint16(s)&statusDrdyAcc != 0 }

// GyroReady reports new gyroscope data.
func (s StatusFlags) GyroReady() bool { return uint16(s)&statusDrdyGyr != 0 }

// TempReady reports new temperature data.
func (s StatusFlags) TempReady() bool { return uint16(s)&statusDrdyTmp != 0 }

// ErrorFlags is the content of ERR_REG.
type ErrorFlags uint16

// Fatal reports a fatal error; the device needs a soft reset.
func (e ErrorFlags) Fatal() bool { return uint16(e)&errFatal != 0 }

// AccelConf reports an invalid accelerometer configuration.
func (e ErrorFlags) AccelConf() bool { return uint16(e)&errAccConf != 0 }

// GyroConf reports an invalid gyroscope configuration.
func (e ErrorFlags) GyroConf() bool { return uint16(e)&errGyrConf != 0 }

// FeatureEngine reports feature engine overload or watchdog errors.
func (e ErrorFlags) FeatureEngine() bool {
	return uint16(e)&(errFeatEngOvrld|errFeatEngWd) != 0
}
