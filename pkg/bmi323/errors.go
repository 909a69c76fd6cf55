package bmi323

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates CHIP_ID didn't match a BMI323.
	ErrNotFound = errors.New("bmi323: device not found")
	// ErrFatal indicates ERR_REG reports a fatal error; a soft reset is required.
	ErrFatal = errors.New("bmi323: fatal error reported")
	// ErrNoData indicates an axis reported 0x8000, no sample available.
	ErrNoData = errors.New("bmi323: no data")
)

// BusError wraps a failed bus transaction.
type BusError struct {
	Op  string
	Reg Register
	Err error
}

// Error implements error.
func (e *BusError) Error() string {
	return fmt.Sprintf("bmi323: %s %s: %v", e.Op, e.Reg, e.Err)
}

// Unwrap returns the underlying bus error.
func (e *BusError) Unwrap() error {
	return e.Err
}

// ConfigError is returned when a configuration write didn't take effect
// or the device flagged it in ERR_REG.
type ConfigError struct {
	Reg   Register
	Want  uint16
	Got   uint16
	Flags uint16 // ERR_REG content
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("bmi323: %s config rejected: wrote 0x%04x, read 0x%04x, ERR_REG 0x%04x",
		e.Reg, e.Want, e.Got, e.Flags)
}
