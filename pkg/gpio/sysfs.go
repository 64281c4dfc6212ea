package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
)

const (
	sysfsRoot = "/sys/class/gpio"

	// Software PWM period. 100Hz is the fastest sysfs toggling can
	// sustain reliably; motor drivers do not need more.
	pwmPeriod = 10 * time.Millisecond
)

// Sysfs is the physical backend. Digital pins are driven through the
// Linux sysfs GPIO interface; PWM pins use a software PWM goroutine per
// pin toggling the same interface. Any failed export or write surfaces
// as a HardwareError and is never retried here.
type Sysfs struct {
	mu       sync.Mutex
	root     string
	modes    map[int]Mode
	duty     map[int]int
	stops    map[int]chan struct{}
	cleaned  bool
	pwmGroup sync.WaitGroup
}

// NewSysfs creates the physical controller. It fails with a HardwareError
// if the sysfs GPIO interface is not present.
func NewSysfs() (*Sysfs, error) {
	if _, err := os.Stat(sysfsRoot); err != nil {
		return nil, &HardwareError{Op: "probe", Err: err}
	}
	return &Sysfs{
		root:  sysfsRoot,
		modes: make(map[int]Mode),
		duty:  make(map[int]int),
		stops: make(map[int]chan struct{}),
	}, nil
}

// Backend returns "sysfs".
func (s *Sysfs) Backend() string { return "sysfs" }

// SetMode exports the pin and configures it as an output.
func (s *Sysfs) SetMode(pin int, mode Mode) error {
	if !validPin(pin) {
		return ErrInvalidPin
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.export(pin); err != nil {
		return err
	}
	if err := s.write(pin, "direction", "out"); err != nil {
		return &HardwareError{Pin: pin, Op: "direction", Err: err}
	}
	if err := s.write(pin, "value", "0"); err != nil {
		return &HardwareError{Pin: pin, Op: "init", Err: err}
	}
	s.modes[pin] = mode
	if mode == PWM {
		s.startPWM(pin)
	}
	log.Debug("pin configured", "pin", pin, "mode", mode.String())
	return nil
}

// WriteDigital sets the pin value through sysfs.
func (s *Sysfs) WriteDigital(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(pin, Output); err != nil {
		return err
	}
	v := "0"
	if high {
		v = "1"
	}
	if err := s.write(pin, "value", v); err != nil {
		return &HardwareError{Pin: pin, Op: "write", Err: err}
	}
	return nil
}

// WritePWM updates the duty cycle consumed by the pin's PWM goroutine.
func (s *Sysfs) WritePWM(pin int, duty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(pin, PWM); err != nil {
		return err
	}
	s.duty[pin] = clampDuty(duty)
	return nil
}

// Cleanup stops PWM goroutines, drives all pins low and unexports them.
// Idempotent: a second call finds no owned pins and does nothing.
func (s *Sysfs) Cleanup() error {
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return nil
	}
	s.cleaned = true
	for pin, stop := range s.stops {
		close(stop)
		delete(s.stops, pin)
	}
	pins := make([]int, 0, len(s.modes))
	for pin := range s.modes {
		pins = append(pins, pin)
	}
	s.mu.Unlock()

	s.pwmGroup.Wait()

	var firstErr error
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pin := range pins {
		if err := s.write(pin, "value", "0"); err != nil && firstErr == nil {
			firstErr = &HardwareError{Pin: pin, Op: "cleanup", Err: err}
		}
		if err := os.WriteFile(filepath.Join(s.root, "unexport"), []byte(strconv.Itoa(pin)), 0o644); err != nil && firstErr == nil {
			firstErr = &HardwareError{Pin: pin, Op: "unexport", Err: err}
		}
		delete(s.modes, pin)
		delete(s.duty, pin)
	}
	log.Info("gpio cleaned up", "pins", len(pins))
	return firstErr
}

// startPWM launches the software PWM loop for a pin. Caller holds the lock.
func (s *Sysfs) startPWM(pin int) {
	stop := make(chan struct{})
	s.stops[pin] = stop
	s.duty[pin] = 0

	s.pwmGroup.Add(1)
	go func() {
		defer s.pwmGroup.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}

			s.mu.Lock()
			duty := s.duty[pin]
			s.mu.Unlock()

			switch duty {
			case 0:
				s.writeQuiet(pin, "0")
				if !sleepOrStop(pwmPeriod, stop) {
					return
				}
			case 100:
				s.writeQuiet(pin, "1")
				if !sleepOrStop(pwmPeriod, stop) {
					return
				}
			default:
				on := pwmPeriod * time.Duration(duty) / 100
				s.writeQuiet(pin, "1")
				if !sleepOrStop(on, stop) {
					return
				}
				s.writeQuiet(pin, "0")
				if !sleepOrStop(pwmPeriod-on, stop) {
					return
				}
			}
		}
	}()
}

// writeQuiet is the PWM hot path; errors are logged, not surfaced, since
// the next WritePWM from the actuation layer will surface a real fault.
func (s *Sysfs) writeQuiet(pin int, v string) {
	if err := s.write(pin, "value", v); err != nil {
		log.Warn("pwm write failed", "pin", pin, "error", err)
	}
}

func (s *Sysfs) export(pin int) error {
	gpioDir := filepath.Join(s.root, fmt.Sprintf("gpio%d", pin))
	if _, err := os.Stat(gpioDir); err == nil {
		return nil // already exported
	}
	if err := os.WriteFile(filepath.Join(s.root, "export"), []byte(strconv.Itoa(pin)), 0o644); err != nil {
		return &HardwareError{Pin: pin, Op: "export", Err: err}
	}
	return nil
}

func (s *Sysfs) write(pin int, file, v string) error {
	path := filepath.Join(s.root, fmt.Sprintf("gpio%d", pin), file)
	return os.WriteFile(path, []byte(v), 0o644)
}

func (s *Sysfs) check(pin int, want Mode) error {
	if !validPin(pin) {
		return ErrInvalidPin
	}
	mode, ok := s.modes[pin]
	if !ok {
		return ErrPinNotConfigured
	}
	if mode != want {
		return ErrWrongMode
	}
	return nil
}

func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}
