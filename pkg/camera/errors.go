package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotOpen is returned when capturing from a source before Open.
	ErrNotOpen = errors.New("camera: source not open")

	// ErrNoFrame is returned when the device delivered no data.
	ErrNoFrame = errors.New("camera: no frame available")
)

// ConfigError reports a capture mode or setup the device cannot honor.
// Fatal to the operation attempted, never retried.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("camera: bad config %s: %s", e.Field, e.Reason)
}

// CaptureError reports a failed capture. Transient errors are retryable
// by the caller; fatal ones (failed open, dead pipe) are not.
type CaptureError struct {
	Backend   string
	Transient bool
	Err       error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("camera [%s]: %s capture error: %v", e.Backend, kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable capture error.
func IsTransient(err error) bool {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Transient
	}
	return false
}

// transientErr wraps an error as a retryable CaptureError.
func transientErr(backend string, err error) error {
	return &CaptureError{Backend: backend, Transient: true, Err: err}
}

// fatalErr wraps an error as a non-retryable CaptureError.
func fatalErr(backend string, err error) error {
	return &CaptureError{Backend: backend, Transient: false, Err: err}
}
