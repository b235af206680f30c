package drive

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation is returned for features this amplifier does not offer.
var ErrUnsupportedOperation = errors.New("drive: unsupported operation")

// ErrInvalidArgument is returned before any register write when a request is out of range.
var ErrInvalidArgument = errors.New("drive: invalid argument")

// ErrNotCalibrated is returned when a value needed to answer a query was never calibrated.
var ErrNotCalibrated = errors.New("drive: not calibrated")

// HardwareWriteError is returned when a register write fails. The request
// is aborted and the device is left as the last successful write put it.
type HardwareWriteError struct {
	Op  string
	Err error
}

func (e *HardwareWriteError) Error() string {
	return fmt.Sprintf("drive: hardware write %s: %v", e.Op, e.Err)
}

func (e *HardwareWriteError) Unwrap() error { return e.Err }

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareWriteError{Op: op, Err: err}
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
