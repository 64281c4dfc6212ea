package camera

import (
	"context"
	"sync"
)

// Mock implements Source for testing. All methods can be customized via
// function fields; by default Capture returns a tiny valid JPEG.
type Mock struct {
	// OpenFunc is called when Open is invoked. If nil, returns nil.
	OpenFunc func(ctx context.Context) error

	// CaptureFunc is called when Capture is invoked. If nil, returns
	// TestFrame.
	CaptureFunc func(ctx context.Context) ([]byte, error)

	// CloseFunc is called when Close is invoked. If nil, returns nil.
	CloseFunc func() error

	// ModeValue is returned by Mode.
	ModeValue Mode

	mu       sync.Mutex
	opens    int
	captures int
	closes   int
}

// TestFrame is a minimal JPEG: SOI marker, one data byte, EOI marker.
var TestFrame = []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}

// Backend returns "mock".
func (m *Mock) Backend() string { return "mock" }

// Mode returns the configured mode.
func (m *Mock) Mode() Mode { return m.ModeValue }

// Open calls OpenFunc and records the call.
func (m *Mock) Open(ctx context.Context) error {
	m.mu.Lock()
	m.opens++
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx)
	}
	return nil
}

// Capture calls CaptureFunc and records the call.
func (m *Mock) Capture(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	m.captures++
	m.mu.Unlock()
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx)
	}
	return TestFrame, nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// OpenCount returns how many times Open was called.
func (m *Mock) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// CaptureCount returns how many times Capture was called.
func (m *Mock) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

// CloseCount returns how many times Close was called.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
