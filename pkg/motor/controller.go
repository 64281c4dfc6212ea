// Package motor maps movement commands onto per-wheel direction and
// speed writes through the gpio abstraction.
//
// Turn policy: turns counter-rotate the wheels (left turn = left wheel
// backward, right wheel forward), matching the rover's differential
// drive wiring.
package motor

import (
	"errors"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/gpio"
)

// ErrInvalidDuration is returned for non-positive timed-command durations.
var ErrInvalidDuration = errors.New("motor: duration must be positive")

// Controller is the actuation engine. All public commands are safe for
// concurrent use; the orchestration layer additionally serializes them
// so hardware writes never interleave.
type Controller struct {
	gpio   gpio.Controller
	left   Pins
	right  Pins
	cruise int
	turn   int

	mu      sync.Mutex
	current DriveIntent
	gen     uint64      // bumped by every command; stale timers check it
	timer   *time.Timer // pending auto-stop, at most one
}

// NewController configures the wheel pins and returns the controller.
// Pin setup failures surface unmodified from the gpio backend.
func NewController(ctrl gpio.Controller, left, right Pins, cruiseSpeed, turnSpeed int) (*Controller, error) {
	c := &Controller{
		gpio:   ctrl,
		left:   left,
		right:  right,
		cruise: cruiseSpeed,
		turn:   turnSpeed,
	}
	for _, p := range []Pins{left, right} {
		if err := ctrl.SetMode(p.Forward, gpio.Output); err != nil {
			return nil, err
		}
		if err := ctrl.SetMode(p.Backward, gpio.Output); err != nil {
			return nil, err
		}
		if err := ctrl.SetMode(p.Enable, gpio.PWM); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Forward drives both wheels forward. A speed of 0 uses the configured
// cruise speed.
func (c *Controller) Forward(speed int) error {
	s := c.speedOr(speed, c.cruise)
	return c.command(DriveIntent{
		Left:  WheelIntent{Direction: Forward, Speed: s},
		Right: WheelIntent{Direction: Forward, Speed: s},
	})
}

// Backward drives both wheels backward.
func (c *Controller) Backward(speed int) error {
	s := c.speedOr(speed, c.cruise)
	return c.command(DriveIntent{
		Left:  WheelIntent{Direction: Backward, Speed: s},
		Right: WheelIntent{Direction: Backward, Speed: s},
	})
}

// TurnLeft counter-rotates: left wheel backward, right wheel forward.
func (c *Controller) TurnLeft(speed int) error {
	s := c.speedOr(speed, c.turn)
	return c.command(DriveIntent{
		Left:  WheelIntent{Direction: Backward, Speed: s},
		Right: WheelIntent{Direction: Forward, Speed: s},
	})
}

// TurnRight counter-rotates: left wheel forward, right wheel backward.
func (c *Controller) TurnRight(speed int) error {
	s := c.speedOr(speed, c.turn)
	return c.command(DriveIntent{
		Left:  WheelIntent{Direction: Forward, Speed: s},
		Right: WheelIntent{Direction: Backward, Speed: s},
	})
}

// Stop sets both wheels neutral at speed 0.
func (c *Controller) Stop() error {
	return c.command(DriveIntent{})
}

// ForwardTimed starts driving forward and returns immediately; an
// automatic stop fires after d unless another command supersedes it.
// At most one auto-stop is ever pending: issuing a second timed command
// cancels the first timer before scheduling its own.
func (c *Controller) ForwardTimed(d time.Duration, speed int) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	s := c.speedOr(speed, c.cruise)
	intent := DriveIntent{
		Left:  WheelIntent{Direction: Forward, Speed: s},
		Right: WheelIntent{Direction: Forward, Speed: s},
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersede()
	if err := c.apply(intent); err != nil {
		return err
	}
	g := c.gen
	c.timer = time.AfterFunc(d, func() { c.autoStop(g) })
	log.Info("forward timed", "duration", d, "speed", s)
	return nil
}

// Intent returns the last applied drive intent.
func (c *Controller) Intent() DriveIntent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// command supersedes any pending auto-stop and applies the intent.
func (c *Controller) command(intent DriveIntent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersede()
	return c.apply(intent)
}

// supersede bumps the generation and cancels a pending auto-stop.
// Caller holds the lock.
func (c *Controller) supersede() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// autoStop fires from the timer goroutine. A stale generation means a
// newer command took over; the timer is then a no-op.
func (c *Controller) autoStop(g uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != g {
		return
	}
	c.gen++
	c.timer = nil
	if err := c.apply(DriveIntent{}); err != nil {
		log.Error("auto-stop failed", "error", err)
		return
	}
	log.Info("auto-stop applied")
}

// apply writes the intent to the pins. On a hardware failure the write
// is not retried and the pins stay in their last-known state; the error
// propagates so the caller can issue a stop. Caller holds the lock.
func (c *Controller) apply(intent DriveIntent) error {
	if err := c.applyWheel(c.left, intent.Left); err != nil {
		log.Error("left wheel write failed", "error", err)
		return err
	}
	if err := c.applyWheel(c.right, intent.Right); err != nil {
		log.Error("right wheel write failed", "error", err)
		return err
	}
	c.current = intent
	log.Debug("drive intent applied", "intent", intent.String())
	return nil
}

func (c *Controller) applyWheel(pins Pins, w WheelIntent) error {
	if err := c.gpio.WriteDigital(pins.Forward, w.Direction == Forward); err != nil {
		return err
	}
	if err := c.gpio.WriteDigital(pins.Backward, w.Direction == Backward); err != nil {
		return err
	}
	speed := w.Speed
	if w.Direction == Neutral {
		speed = 0
	}
	return c.gpio.WritePWM(pins.Enable, speed)
}

func (c *Controller) speedOr(speed, fallback int) int {
	if speed <= 0 {
		return fallback
	}
	if speed > 100 {
		return 100
	}
	return speed
}
