// Package config provides process configuration for go-rover.
// All values are read from the environment once at startup and are
// immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for a Raspberry Pi rover with an L298N motor driver.
const (
	DefaultPort      = "8080"
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultFramerate = 30
	DefaultQuality   = 80
	DefaultCruise    = 60
	DefaultTurn      = 50
)

// WheelPins holds the GPIO pin assignment for one wheel.
type WheelPins struct {
	Forward  int // direction pin, high = forward
	Backward int // direction pin, high = backward
	Enable   int // PWM pin, duty cycle = speed
}

// Config holds the full rover configuration.
type Config struct {
	Port     string
	LogLevel string

	// Camera
	CameraBackend string // "libcamera" or "gocv"
	CameraDevice  int    // capture device index for the gocv backend
	Width         int
	Height        int
	Framerate     int
	Quality       int // JPEG quality 1-100

	// Motors
	GPIOBackend string // "mock" or "sysfs"
	CruiseSpeed int    // duty percent for forward/backward
	TurnSpeed   int    // duty percent for turns
	LeftWheel   WheelPins
	RightWheel  WheelPins
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Port:     getenv("ROVER_PORT", DefaultPort),
		LogLevel: getenv("ROVER_LOG_LEVEL", "info"),

		CameraBackend: getenv("ROVER_CAMERA", "libcamera"),
		CameraDevice:  getint("ROVER_CAMERA_DEVICE", 0),
		Width:         getint("ROVER_WIDTH", DefaultWidth),
		Height:        getint("ROVER_HEIGHT", DefaultHeight),
		Framerate:     getint("ROVER_FPS", DefaultFramerate),
		Quality:       getint("ROVER_QUALITY", DefaultQuality),

		GPIOBackend: getenv("ROVER_GPIO", "mock"),
		CruiseSpeed: getint("ROVER_CRUISE_SPEED", DefaultCruise),
		TurnSpeed:   getint("ROVER_TURN_SPEED", DefaultTurn),

		// Pin numbering follows BCM.
		LeftWheel: WheelPins{
			Forward:  getint("ROVER_LEFT_FWD_PIN", 17),
			Backward: getint("ROVER_LEFT_BACK_PIN", 18),
			Enable:   getint("ROVER_LEFT_PWM_PIN", 22),
		},
		RightWheel: WheelPins{
			Forward:  getint("ROVER_RIGHT_FWD_PIN", 23),
			Backward: getint("ROVER_RIGHT_BACK_PIN", 24),
			Enable:   getint("ROVER_RIGHT_PWM_PIN", 25),
		},
	}
}

// Validate checks that the configuration is usable.
// Returns a list of problems, or nil if valid.
func (c Config) Validate() []string {
	var errs []string

	if c.Width < 160 || c.Width > 4096 {
		errs = append(errs, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > 2160 {
		errs = append(errs, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errs = append(errs, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}
	if c.CruiseSpeed < 0 || c.CruiseSpeed > 100 {
		errs = append(errs, "cruise speed must be between 0 and 100")
	}
	if c.TurnSpeed < 0 || c.TurnSpeed > 100 {
		errs = append(errs, "turn speed must be between 0 and 100")
	}
	if c.CameraBackend != "libcamera" && c.CameraBackend != "gocv" {
		errs = append(errs, fmt.Sprintf("unknown camera backend %q", c.CameraBackend))
	}
	if c.GPIOBackend != "mock" && c.GPIOBackend != "sysfs" {
		errs = append(errs, fmt.Sprintf("unknown gpio backend %q", c.GPIOBackend))
	}

	pins := map[int]string{}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"left forward", c.LeftWheel.Forward},
		{"left backward", c.LeftWheel.Backward},
		{"left enable", c.LeftWheel.Enable},
		{"right forward", c.RightWheel.Forward},
		{"right backward", c.RightWheel.Backward},
		{"right enable", c.RightWheel.Enable},
	} {
		if other, dup := pins[p.pin]; dup {
			errs = append(errs, fmt.Sprintf("pin %d assigned to both %s and %s", p.pin, other, p.name))
		}
		pins[p.pin] = p.name
	}

	return errs
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
