package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	c := Load()

	if c.Port != DefaultPort {
		t.Errorf("port = %q, want %q", c.Port, DefaultPort)
	}
	if c.CameraBackend != "libcamera" {
		t.Errorf("camera backend = %q, want libcamera", c.CameraBackend)
	}
	if c.GPIOBackend != "mock" {
		t.Errorf("gpio backend = %q, want mock", c.GPIOBackend)
	}
	if c.CruiseSpeed != DefaultCruise || c.TurnSpeed != DefaultTurn {
		t.Errorf("speeds = %d/%d, want %d/%d", c.CruiseSpeed, c.TurnSpeed, DefaultCruise, DefaultTurn)
	}
	if c.LeftWheel != (WheelPins{Forward: 17, Backward: 18, Enable: 22}) {
		t.Errorf("left wheel pins = %+v", c.LeftWheel)
	}
	if c.RightWheel != (WheelPins{Forward: 23, Backward: 24, Enable: 25}) {
		t.Errorf("right wheel pins = %+v", c.RightWheel)
	}

	if errs := c.Validate(); errs != nil {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ROVER_PORT", "9000")
	t.Setenv("ROVER_CAMERA", "gocv")
	t.Setenv("ROVER_FPS", "15")
	t.Setenv("ROVER_LEFT_FWD_PIN", "5")

	c := Load()
	if c.Port != "9000" {
		t.Errorf("port = %q", c.Port)
	}
	if c.CameraBackend != "gocv" {
		t.Errorf("camera backend = %q", c.CameraBackend)
	}
	if c.Framerate != 15 {
		t.Errorf("framerate = %d", c.Framerate)
	}
	if c.LeftWheel.Forward != 5 {
		t.Errorf("left forward pin = %d", c.LeftWheel.Forward)
	}
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("ROVER_FPS", "fast")

	if c := Load(); c.Framerate != DefaultFramerate {
		t.Errorf("framerate = %d, want default %d", c.Framerate, DefaultFramerate)
	}
}

func TestValidate_RangeChecks(t *testing.T) {
	c := Load()
	c.Framerate = 0
	c.Quality = 101
	c.CameraBackend = "v4l2"

	errs := c.Validate()
	if len(errs) != 3 {
		t.Fatalf("got %d problems, want 3: %v", len(errs), errs)
	}
}

func TestValidate_DuplicatePins(t *testing.T) {
	c := Load()
	c.RightWheel.Enable = c.LeftWheel.Forward

	errs := c.Validate()
	if len(errs) != 1 {
		t.Fatalf("got %d problems, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "assigned to both") {
		t.Errorf("unexpected message: %q", errs[0])
	}
}
