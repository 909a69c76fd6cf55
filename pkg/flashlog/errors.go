package flashlog

import (
	"errors"
	"fmt"
)

// ResultCode is the outcome of a log operation. Every code other than
// Success is an error.
type ResultCode int

// Result codes.
const (
	Success ResultCode = 0
	// ErrBounds: the log is full or the operation would leave the log region.
	ErrBounds ResultCode = -1
	// ErrEmpty: the log holds no packets.
	ErrEmpty ResultCode = -2
	// ErrChecksum: a record failed its CRC or framing check.
	ErrChecksum ResultCode = -3
	// ErrType: unrecognized packet type.
	ErrType ResultCode = -4
	// ErrNoTail: valid packets are followed by data that isn't a packet, so
	// the end of the log couldn't be found.
	ErrNoTail ResultCode = -5
	// ErrLogNoInit: Init didn't succeed, so the operation isn't allowed.
	ErrLogNoInit ResultCode = -6
	// ErrFSMNotRestored: no valid packet to restore state from.
	ErrFSMNotRestored ResultCode = -7
	// ErrIterationDone: the iterator reached the tail.
	ErrIterationDone ResultCode = -8
	// ErrLogExists: the region isn't empty and restoring wasn't requested.
	ErrLogExists ResultCode = -9
	// ErrBDInit: the block device failed to initialize.
	ErrBDInit ResultCode = -10
	// ErrBDIO: a block device read, program or erase failed.
	ErrBDIO ResultCode = -11
	// ErrBDParams: the log region doesn't fit the block device.
	ErrBDParams ResultCode = -12
)

var codeMessages = map[ResultCode]string{
	Success:           "success",
	ErrBounds:         "out of bounds",
	ErrEmpty:          "log is empty",
	ErrChecksum:       "checksum mismatch",
	ErrType:           "unrecognized packet type",
	ErrNoTail:         "log tail not found",
	ErrLogNoInit:      "log not initialized",
	ErrFSMNotRestored: "no valid packet to restore from",
	ErrIterationDone:  "iteration done",
	ErrLogExists:      "log exists",
	ErrBDInit:         "block device init failed",
	ErrBDIO:           "block device I/O failed",
	ErrBDParams:       "invalid block device parameters",
}

// Error implements error.
func (c ResultCode) Error() string {
	if msg, ok := codeMessages[c]; ok {
		return "flashlog: " + msg
	}
	return fmt.Sprintf("flashlog: result %d", int(c))
}

// DeviceError is a block device failure tagged with a result code.
type DeviceError struct {
	Code ResultCode
	Err  error
}

// Error implements error.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%v: %v", e.Code, e.Err)
}

// Unwrap returns the device error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is matches the result code.
func (e *DeviceError) Is(target error) bool {
	code, ok := target.(ResultCode)
	return ok && code == e.Code
}

// Code extracts the result code from err: Success for nil, ErrBDIO for
// errors that don't carry one.
func Code(err error) ResultCode {
	if err == nil {
		return Success
	}
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Code
	}
	var code ResultCode
	if errors.As(err, &code) {
		return code
	}
	return ErrBDIO
}

func deviceError(code ResultCode, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Code: code, Err: err}
}
