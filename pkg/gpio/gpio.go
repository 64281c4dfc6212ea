// Package gpio abstracts digital and PWM pin control for the rover.
//
// Two interchangeable backends implement the Controller interface: Mock
// records all writes in memory for development and tests, Sysfs drives the
// real pins through the Linux sysfs GPIO and PWM interfaces. Nothing above
// this package knows which backend is active.
package gpio

// Mode is the configured function of a pin.
type Mode int

const (
	// Output is a digital output pin (high/low).
	Output Mode = iota
	// PWM is a pulse-width-modulated output pin (duty cycle 0-100).
	PWM
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Output:
		return "output"
	case PWM:
		return "pwm"
	default:
		return "unknown"
	}
}

// Controller is the pin capability set used by the actuation layer.
//
// Implementations must clamp PWM duty cycles to [0,100] and must report
// invalid pin numbers as ErrInvalidPin. Cleanup drives every owned pin to
// an inert state and is safe to call more than once.
type Controller interface {
	// SetMode configures a pin before first use.
	SetMode(pin int, mode Mode) error

	// WriteDigital sets a digital output pin high or low.
	WriteDigital(pin int, high bool) error

	// WritePWM sets a PWM pin's duty cycle percentage. Values outside
	// [0,100] are clamped.
	WritePWM(pin int, duty int) error

	// Cleanup resets all owned pins to an inert state. Idempotent.
	Cleanup() error

	// Backend returns the backend name for status reporting.
	Backend() string
}

// BCM pin range accepted by both backends.
const (
	minPin = 2
	maxPin = 27
)

func validPin(pin int) bool {
	return pin >= minPin && pin <= maxPin
}

func clampDuty(duty int) int {
	if duty < 0 {
		return 0
	}
	if duty > 100 {
		return 100
	}
	return duty
}

// New creates the controller named by backend ("mock" or "sysfs").
func New(backend string) (Controller, error) {
	switch backend {
	case "mock":
		return NewMock(), nil
	case "sysfs":
		return NewSysfs()
	default:
		return nil, &ConfigError{Field: "gpio backend", Reason: "must be mock or sysfs, got " + backend}
	}
}
