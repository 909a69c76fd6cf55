package bmi323

import (
	"math"
	"time"
)

// ODR is the output data rate field shared by ACC_CONF and GYR_CONF.
type ODR uint16

// Output data rates.
const (
	ODR0_78Hz ODR = 0x1
	ODR1_56Hz ODR = 0x2
	ODR3_12Hz ODR = 0x3
	ODR6_25Hz ODR = 0x4
	ODR12_5Hz ODR = 0x5
	ODR25Hz   ODR = 0x6
	ODR50Hz   ODR = 0x7
	ODR100Hz  ODR = 0x8
	ODR200Hz  ODR = 0x9
	ODR400Hz  ODR = 0xA
	ODR800Hz  ODR = 0xB
	ODR1600Hz ODR = 0xC
	ODR3200Hz ODR = 0xD
	ODR6400Hz ODR = 0xE
)

// Hz returns the rate in Hz, 0 for reserved values.
func (o ODR) Hz() float64 {
	if o < ODR0_78Hz || o > ODR6400Hz {
		return 0
	}
	// 0x8 is 100Hz, each step doubles.
	return math.Ldexp(100, int(o)-int(ODR100Hz))
}

// Period returns the sample interval.
func (o ODR) Period() time.Duration {
	hz := o.Hz()
	if hz == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

// Averaging is the number of samples averaged in low-power mode.
type Averaging uint16

// Averaging settings.
const (
	AvgNone Averaging = iota
	Avg2
	Avg4
	Avg8
	Avg16
	Avg32
	Avg64
)

// Mode is the power mode field.
type Mode uint16

// Power modes.
const (
	ModeDisabled        Mode = 0x0
	ModeGyroDriveOnly   Mode = 0x1 // gyroscope only: suspend with drive enabled
	ModeLowPower        Mode = 0x3
	ModeNormal          Mode = 0x4
	ModeHighPerformance Mode = 0x7
)

// Bandwidth selects the -3dB cut-off relative to ODR.
type Bandwidth uint16

// Bandwidths.
const (
	BandwidthODRHalf    Bandwidth = 0
	BandwidthODRQuarter Bandwidth = 1
)

// AccelRange is the accelerometer full scale.
type AccelRange uint16

// Accelerometer ranges.
const (
	AccelRange2G AccelRange = iota
	AccelRange4G
	AccelRange8G
	AccelRange16G
)

// LSBPerMg returns the sensitivity of the range.
func (r AccelRange) LSBPerMg() float64 {
	switch r {
	case AccelRange4G:
		return 8.19
	case AccelRange8G:
		return 4.10
	case AccelRange16G:
		return 2.05
	}
	return 16.38
}

// GyroRange is the gyroscope full scale.
type GyroRange uint16

// Gyroscope ranges.
const (
	GyroRange125DPS GyroRange = iota
	GyroRange250DPS
	GyroRange500DPS
	GyroRange1000DPS
	GyroRange2000DPS
)

// LSBPerDPS returns the sensitivity of the range.
func (r GyroRange) LSBPerDPS() float64 {
	switch r {
	case GyroRange250DPS:
		return 131.072
	case GyroRange500DPS:
		return 65.536
	case GyroRange1000DPS:
		return 32.768
	case GyroRange2000DPS:
		return 16.384
	}
	return 262.144
}

// Field layout of ACC_CONF and GYR_CONF. Bits 11 and 15 are reserved.
const (
	confODRMask   uint16 = 0x000F
	confRangeMask uint16 = 0x0070
	confBWMask    uint16 = 0x0080
	confAvgMask   uint16 = 0x0700
	confModeMask  uint16 = 0x7000
	confFieldMask        = confODRMask | confRangeMask | confBWMask | confAvgMask | confModeMask
)

// AccelConfig is the content of ACC_CONF.
type AccelConfig struct {
	Mode      Mode
	Averaging Averaging
	Bandwidth Bandwidth
	Range     AccelRange
	ODR       ODR
}

// GyroConfig is the content of GYR_CONF.
type GyroConfig struct {
	Mode      Mode
	Averaging Averaging
	Bandwidth Bandwidth
	Range     GyroRange
	ODR       ODR
}

var (
	// DefaultAccelConfig is high performance, no averaging, ±2g, 800Hz.
	DefaultAccelConfig = AccelConfig{
		Mode:  ModeHighPerformance,
		Range: AccelRange2G,
		ODR:   ODR800Hz,
	}
	// DefaultGyroConfig is high performance, no averaging, ±125°/s, 800Hz.
	DefaultGyroConfig = GyroConfig{
		Mode:  ModeHighPerformance,
		Range: GyroRange125DPS,
		ODR:   ODR800Hz,
	}
)

func encodeConf(mode Mode, avg Averaging, bw Bandwidth, rng uint16, odr ODR) uint16 {
	return uint16(mode)<<12&confModeMask |
		uint16(avg)<<8&confAvgMask |
		uint16(bw)<<7&confBWMask |
		rng<<4&confRangeMask |
		uint16(odr)&confODRMask
}

// Word encodes the config fields.
func (c AccelConfig) Word() uint16 {
	return encodeConf(c.Mode, c.Averaging, c.Bandwidth, uint16(c.Range), c.ODR)
}

// Word encodes the config fields.
func (c GyroConfig) Word() uint16 {
	return encodeConf(c.Mode, c.Averaging, c.Bandwidth, uint16(c.Range), c.ODR)
}

// AccelConfigFrom decodes ACC_CONF.
func AccelConfigFrom(w uint16) AccelConfig {
	return AccelConfig{
		Mode:      Mode(w & confModeMask >> 12),
		Averaging: Averaging(w & confAvgMask >> 8),
		Bandwidth: Bandwidth(w & confBWMask >> 7),
		Range:     AccelRange(w & confRangeMask >> 4),
		ODR:       ODR(w & confODRMask),
	}
}

// GyroConfigFrom decodes GYR_CONF.
func GyroConfigFrom(w uint16) GyroConfig {
	return GyroConfig{
		Mode:      Mode(w & confModeMask >> 12),
		Averaging: Averaging(w & confAvgMask >> 8),
		Bandwidth: Bandwidth(w & confBWMask >> 7),
		Range:     GyroRange(w & confRangeMask >> 4),
		ODR:       ODR(w & confODRMask),
	}
}
