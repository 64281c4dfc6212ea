package stream

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNotRunning is returned by Subscribe when the engine is stopped.
	ErrNotRunning = errors.New("stream: engine not running")

	// ErrEngineFailed is returned when the capture loop has failed and
	// has not been restarted.
	ErrEngineFailed = errors.New("stream: engine failed")

	// ErrStreamClosed is returned to subscribers when the stream stops.
	ErrStreamClosed = errors.New("stream: closed")

	// ErrSessionTimeout is returned when a subscriber waited longer than
	// the watchdog allows for a new frame.
	ErrSessionTimeout = errors.New("stream: session timed out waiting for frame")
)
