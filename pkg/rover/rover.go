// Package rover wires the actuation and streaming subsystems together
// and serializes inbound commands so hardware writes never interleave.
package rover

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/gpio"
	"github.com/teslashibe/go-rover/pkg/motor"
	"github.com/teslashibe/go-rover/pkg/stream"
)

// SystemStatus is an on-demand snapshot across both subsystems. It is
// assembled fresh for every request, never cached.
type SystemStatus struct {
	Timestamp time.Time     `json:"timestamp"`
	Camera    stream.Status `json:"camera"`
	Motor     MotorStatus   `json:"motor"`
	GPIO      string        `json:"gpio_backend"`
}

// MotorStatus is the actuation half of the snapshot.
type MotorStatus struct {
	Intent  motor.DriveIntent `json:"intent"`
	Stopped bool              `json:"stopped"`
}

// Rover is the orchestration layer. Motor commands are mutually
// exclusive at the hardware-write granularity; streaming operations
// proceed independently and concurrently.
type Rover struct {
	gpio   gpio.Controller
	motors *motor.Controller
	stream *stream.Engine

	cmdMu   sync.Mutex // serializes actuation commands
	closeMu sync.Mutex
	closed  bool
}

// New assembles the rover from its subsystems.
func New(ctrl gpio.Controller, motors *motor.Controller, engine *stream.Engine) *Rover {
	return &Rover{gpio: ctrl, motors: motors, stream: engine}
}

// Stream returns the streaming engine for viewer subscriptions.
func (r *Rover) Stream() *stream.Engine { return r.stream }

// Forward drives forward; 0 speed means the configured cruise speed.
func (r *Rover) Forward(speed int) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.motors.Forward(speed)
}

// Backward drives backward.
func (r *Rover) Backward(speed int) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.motors.Backward(speed)
}

// TurnLeft turns in place to the left.
func (r *Rover) TurnLeft(speed int) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.motors.TurnLeft(speed)
}

// TurnRight turns in place to the right.
func (r *Rover) TurnRight(speed int) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.motors.TurnRight(speed)
}

// Stop halts both wheels.
func (r *Rover) Stop() error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.motors.Stop()
}

// ForwardTimed drives forward and auto-stops after d.
func (r *Rover) ForwardTimed(d time.Duration, speed int) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.motors.ForwardTimed(d, speed)
}

// StartStream starts the streaming engine.
func (r *Rover) StartStream(ctx context.Context) error {
	return r.stream.Start(ctx)
}

// StopStream stops the streaming engine.
func (r *Rover) StopStream() error {
	return r.stream.Stop()
}

// Status assembles a consistent snapshot. No lock is held longer than
// the copy itself; the subsystems expose their own snapshot reads.
func (r *Rover) Status() SystemStatus {
	intent := r.motors.Intent()
	return SystemStatus{
		Timestamp: time.Now(),
		Camera:    r.stream.Status(),
		Motor: MotorStatus{
			Intent:  intent,
			Stopped: intent.Stopped(),
		},
		GPIO: r.gpio.Backend(),
	}
}

// Close stops streaming, halts the motors and drives the pins inert.
// Idempotent; safe on shutdown paths that run more than once.
func (r *Rover) Close() error {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.stream.Stop(); err != nil {
		log.Warn("stream stop on close", "error", err)
	}
	if err := r.Stop(); err != nil {
		log.Warn("motor stop on close", "error", err)
	}
	return r.gpio.Cleanup()
}
