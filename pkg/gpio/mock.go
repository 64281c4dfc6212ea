package gpio

import (
	"sync"

	"github.com/teslashibe/go-rover/internal/log"
)

// PinState is the recorded state of one mock pin.
type PinState struct {
	Mode  Mode
	High  bool // last digital value (Output pins)
	Duty  int  // last duty cycle percentage (PWM pins)
	Wired bool // SetMode was called
}

// Write records a single write operation for test assertions.
type Write struct {
	Pin   int
	Op    string // "mode", "digital", "pwm", "cleanup"
	Value int
}

// Mock is the simulated backend. It records all pin state in memory and
// never raises hardware errors, but still rejects invalid pins so the
// layers above see the same contract as the physical backend.
type Mock struct {
	mu     sync.Mutex
	pins   map[int]*PinState
	writes []Write
}

// NewMock creates an empty simulated controller.
func NewMock() *Mock {
	return &Mock{pins: make(map[int]*PinState)}
}

// Backend returns "mock".
func (m *Mock) Backend() string { return "mock" }

// SetMode configures a pin.
func (m *Mock) SetMode(pin int, mode Mode) error {
	if !validPin(pin) {
		return ErrInvalidPin
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[pin] = &PinState{Mode: mode, Wired: true}
	m.writes = append(m.writes, Write{Pin: pin, Op: "mode", Value: int(mode)})
	return nil
}

// WriteDigital records a digital write.
func (m *Mock) WriteDigital(pin int, high bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.pin(pin, Output)
	if err != nil {
		return err
	}
	st.High = high
	v := 0
	if high {
		v = 1
	}
	m.writes = append(m.writes, Write{Pin: pin, Op: "digital", Value: v})
	return nil
}

// WritePWM records a PWM write, clamping the duty cycle to [0,100].
func (m *Mock) WritePWM(pin int, duty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.pin(pin, PWM)
	if err != nil {
		return err
	}
	duty = clampDuty(duty)
	st.Duty = duty
	m.writes = append(m.writes, Write{Pin: pin, Op: "pwm", Value: duty})
	return nil
}

// Cleanup drives every configured pin inert. Calling it twice produces
// the same end state as calling it once.
func (m *Mock) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pin, st := range m.pins {
		st.High = false
		st.Duty = 0
		m.writes = append(m.writes, Write{Pin: pin, Op: "cleanup"})
	}
	log.Debug("mock gpio cleaned up", "pins", len(m.pins))
	return nil
}

// PinState returns the recorded state of a pin for test assertions.
func (m *Mock) PinState(pin int) (PinState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.pins[pin]
	if !ok {
		return PinState{}, false
	}
	return *st, true
}

// Writes returns a copy of the recorded write history.
func (m *Mock) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// pin looks up a configured pin and checks the expected mode.
// Caller holds the lock.
func (m *Mock) pin(pin int, want Mode) (*PinState, error) {
	if !validPin(pin) {
		return nil, ErrInvalidPin
	}
	st, ok := m.pins[pin]
	if !ok {
		return nil, ErrPinNotConfigured
	}
	if st.Mode != want {
		return nil, ErrWrongMode
	}
	return st, nil
}
