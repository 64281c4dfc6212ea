// Package camera abstracts frame capture for the rover.
//
// Two interchangeable backends implement the Source interface: Libcamera
// drives the Pi camera through a long-running libcamera-vid MJPEG pipe,
// GoCV is the generic video-capture fallback. Selection happens once at
// startup; nothing above this package inspects the backend type.
package camera

import (
	"context"
	"fmt"
)

// Mode is a capture mode: resolution, frame rate and JPEG quality.
type Mode struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`
	Quality   int `json:"quality"`
}

// String renders the mode for logging and status.
func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%dfps q%d", m.Width, m.Height, m.Framerate, m.Quality)
}

// Source produces complete encoded JPEG frames on demand.
//
// Open negotiates the requested mode with the device; backends may pick
// the nearest supported mode, and Mode() always reports the effective
// one. Capture returns one complete JPEG frame or a CaptureError; a
// transient error is retryable by the caller, a fatal one is not.
type Source interface {
	// Open initializes the device. Fails with a ConfigError when the
	// requested mode cannot be honored at all.
	Open(ctx context.Context) error

	// Capture returns the next complete JPEG frame.
	Capture(ctx context.Context) ([]byte, error)

	// Close releases the device. Safe to call on a closed source.
	Close() error

	// Backend returns the backend name for status reporting.
	Backend() string

	// Mode returns the effective capture mode actually in use.
	Mode() Mode
}

// New creates the source named by backend ("libcamera" or "gocv").
func New(backend string, device int, mode Mode) (Source, error) {
	switch backend {
	case "libcamera":
		return NewLibcamera(mode), nil
	case "gocv":
		return NewGoCV(device, mode), nil
	default:
		return nil, &ConfigError{Field: "camera backend", Reason: "must be libcamera or gocv, got " + backend}
	}
}
