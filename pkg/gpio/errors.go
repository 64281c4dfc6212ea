package gpio

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidPin is returned when a pin number is outside the BCM range.
	ErrInvalidPin = errors.New("gpio: invalid pin number")

	// ErrPinNotConfigured is returned when writing a pin before SetMode.
	ErrPinNotConfigured = errors.New("gpio: pin not configured")

	// ErrWrongMode is returned when a write does not match the pin's mode.
	ErrWrongMode = errors.New("gpio: write does not match pin mode")
)

// ConfigError reports an invalid configuration. It is fatal to the
// operation attempted and is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("gpio: bad config %s: %s", e.Field, e.Reason)
}

// HardwareError reports a failed pin initialization or write on the
// physical backend. The pin is left in its last-known state; callers
// decide whether to issue a stop.
type HardwareError struct {
	Pin int
	Op  string
	Err error
}

// Error implements the error interface.
func (e *HardwareError) Error() string {
	return fmt.Sprintf("gpio: %s pin %d: %v", e.Op, e.Pin, e.Err)
}

// Unwrap returns the underlying error.
func (e *HardwareError) Unwrap() error {
	return e.Err
}

// IsHardware reports whether err is a HardwareError.
func IsHardware(err error) bool {
	var he *HardwareError
	return errors.As(err, &he)
}
