package camera

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	if !IsTransient(transientErr("mock", ErrNoFrame)) {
		t.Error("transient error not recognized")
	}
	if IsTransient(fatalErr("mock", ErrNoFrame)) {
		t.Error("fatal error reported as transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error reported as transient")
	}
	// Wrapped capture errors keep their kind.
	wrapped := fmt.Errorf("capture loop: %w", transientErr("mock", ErrNoFrame))
	if !IsTransient(wrapped) {
		t.Error("wrapped transient error not recognized")
	}
}

func TestCaptureError_Unwrap(t *testing.T) {
	err := transientErr("gocv", ErrNoFrame)
	if !errors.Is(err, ErrNoFrame) {
		t.Error("CaptureError does not unwrap to its cause")
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New("bogus", 0, Mode{})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("got %v, want ConfigError", err)
	}
}
