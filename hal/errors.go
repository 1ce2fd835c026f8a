package hal

import "errors"

// Error kinds. Typed errors below report themselves as one of these through
// errors.Is, so callers can branch on the kind without caring about detail.
var (
	ErrClockConfig = errors.New("clock configuration error")
	ErrPinConfig   = errors.New("pin configuration error")

	// ErrWouldBlock is the non-blocking "not ready" outcome. It is not a
	// failure: the operation should simply be retried later.
	ErrWouldBlock = errors.New("operation would block")
)

// ClockConfigError reports an invalid divider, frequency or clock dependency.
type ClockConfigError struct {
	Clock string
	Err   error
}

func (e *ClockConfigError) Error() string {
	if e.Err == nil {
		return "clock " + e.Clock + ": configuration error"
	}
	return "clock " + e.Clock + ": " + e.Err.Error()
}

func (e *ClockConfigError) Unwrap() error { return e.Err }

func (e *ClockConfigError) Is(target error) bool { return target == ErrClockConfig }

// PinConfigError reports an illegal pin transition or a pin that is not in the
// state a driver requires.
type PinConfigError struct {
	Pin string
	Err error
}

func (e *PinConfigError) Error() string {
	if e.Err == nil {
		return "pin " + e.Pin + ": configuration error"
	}
	return "pin " + e.Pin + ": " + e.Err.Error()
}

func (e *PinConfigError) Unwrap() error { return e.Err }

func (e *PinConfigError) Is(target error) bool { return target == ErrPinConfig }

// PeripheralBusyError is returned when a bounded poll gave up before the
// peripheral became ready. The caller may retry the whole operation.
type PeripheralBusyError struct {
	Peripheral string
	Op         string
}

func (e *PeripheralBusyError) Error() string {
	return e.Peripheral + ": " + e.Op + ": peripheral busy"
}

func (e *PeripheralBusyError) Is(target error) bool { return target == ErrWouldBlock }

// ClockError is shorthand for building a ClockConfigError.
func ClockError(clock string, err error) error {
	return &ClockConfigError{Clock: clock, Err: err}
}

// PinError is shorthand for building a PinConfigError.
func PinError(pin string, err error) error {
	return &PinConfigError{Pin: pin, Err: err}
}
