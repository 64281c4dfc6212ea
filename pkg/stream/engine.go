// Package stream owns the background capture loop and fans the latest
// encoded frame out to any number of concurrently connected viewers.
package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
)

// State is the capture state machine.
type State int

const (
	// Stopped means no capture loop is running.
	Stopped State = iota
	// Starting means the source is being opened.
	Starting
	// Running means the capture loop is publishing frames.
	Running
	// Failed means the loop terminated on error; Start clears it.
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "stopped"
	}
}

// Transient capture failures tolerated before the loop gives up.
const maxStrikes = 3

// Status is a read-only snapshot of the streaming subsystem.
type Status struct {
	State       string      `json:"state"`
	Backend     string      `json:"camera_type"`
	Mode        camera.Mode `json:"mode"`
	FrameSeq    uint64      `json:"frame_seq"`
	Subscribers int         `json:"subscribers"`
	LastError   string      `json:"error,omitempty"`
}

// Engine runs one capture loop against a camera source and publishes
// encoded frames to subscribers through a latest-frame buffer.
type Engine struct {
	source    camera.Source
	framerate int

	mu      sync.Mutex
	state   State
	lastErr error
	buf     *Buffer
	cancel  context.CancelFunc
	done    chan struct{}

	subscribers atomic.Int64
}

// NewEngine creates a stopped engine for the given source.
func NewEngine(source camera.Source, framerate int) *Engine {
	return &Engine{
		source:    source,
		framerate: framerate,
		state:     Stopped,
	}
}

// Start opens the source and launches the capture loop. A no-op when
// already running or starting, so two Starts never open a second loop.
// Starting from Failed clears the fault and retries the open.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Running || e.state == Starting {
		e.mu.Unlock()
		return nil
	}
	e.state = Starting
	e.lastErr = nil
	e.mu.Unlock()

	if err := e.source.Open(ctx); err != nil {
		e.mu.Lock()
		if e.state == Starting {
			e.state = Failed
			e.lastErr = err
		}
		e.mu.Unlock()
		log.Error("stream start failed", "error", err)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	if e.state != Starting {
		// A concurrent Stop defeated this start while the source was
		// opening; the engine stays stopped and the source is released.
		e.mu.Unlock()
		cancel()
		if err := e.source.Close(); err != nil {
			log.Warn("source close after defeated start", "error", err)
		}
		log.Info("stream start superseded by stop")
		return nil
	}
	e.buf = NewBuffer()
	e.cancel = cancel
	e.done = done
	e.state = Running
	e.mu.Unlock()

	go e.captureLoop(loopCtx, done)

	log.Info("stream started", "backend", e.source.Backend(), "mode", e.source.Mode().String())
	return nil
}

// Stop terminates the capture loop, waits for it to wind down, closes
// the source and ends all subscriber sessions. A Stop issued while a
// Start is still opening the source defeats it: the engine stays
// stopped and the pending start releases the source itself. Idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == Stopped {
		e.mu.Unlock()
		return nil
	}
	if e.state == Starting {
		e.state = Stopped
		e.lastErr = nil
		e.mu.Unlock()
		log.Info("stream stopped")
		return nil
	}
	cancel := e.cancel
	done := e.done
	buf := e.buf
	e.state = Stopped
	e.lastErr = nil
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if buf != nil {
		buf.Close(ErrStreamClosed)
	}
	err := e.source.Close()
	log.Info("stream stopped")
	return err
}

// Subscribe creates a viewer session starting from the current latest
// frame. Fails fast with ErrNotRunning or a wrapped ErrEngineFailed
// instead of letting a viewer hang on a dead stream.
func (e *Engine) Subscribe() (*Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Running:
	case Failed:
		return nil, fmt.Errorf("%w: %v", ErrEngineFailed, e.lastErr)
	default:
		return nil, ErrNotRunning
	}

	e.subscribers.Add(1)
	sub := newSubscription(e.buf, func() { e.subscribers.Add(-1) })
	log.Debug("viewer subscribed", "session", sub.ID)
	return sub, nil
}

// State returns the current capture state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status assembles a snapshot without holding the lock beyond the copy.
func (e *Engine) Status() Status {
	e.mu.Lock()
	state := e.state
	lastErr := e.lastErr
	buf := e.buf
	e.mu.Unlock()

	st := Status{
		State:       state.String(),
		Backend:     e.source.Backend(),
		Mode:        e.source.Mode(),
		Subscribers: int(e.subscribers.Load()),
	}
	if buf != nil {
		st.FrameSeq = buf.Latest().Seq
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

// captureLoop pulls frames at the configured cadence and publishes them.
// Transient capture errors are logged and retried on the next tick;
// maxStrikes consecutive failures or one fatal error terminate the loop
// and transition the engine to Failed.
func (e *Engine) captureLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(e.framerate)
	captureTimeout := 2 * interval
	if captureTimeout < time.Second {
		captureTimeout = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	strikes := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		capCtx, cancel := context.WithTimeout(ctx, captureTimeout)
		frame, err := e.source.Capture(capCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return // stopping, not a fault
			}
			if camera.IsTransient(err) {
				strikes++
				log.Warn("transient capture error", "strike", strikes, "error", err)
				if strikes < maxStrikes {
					continue
				}
			}
			e.fail(err)
			return
		}

		strikes = 0
		e.publish(frame)
	}
}

func (e *Engine) publish(frame []byte) {
	e.mu.Lock()
	buf := e.buf
	e.mu.Unlock()
	if buf != nil {
		buf.Publish(frame, time.Now())
	}
}

// fail transitions to Failed, releases the source and wakes subscribers
// with the error. Only an explicit Start clears this state.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.state = Failed
	e.lastErr = err
	buf := e.buf
	e.mu.Unlock()

	if buf != nil {
		buf.Close(fmt.Errorf("%w: %v", ErrEngineFailed, err))
	}
	if cerr := e.source.Close(); cerr != nil {
		log.Warn("source close after failure", "error", cerr)
	}
	log.Error("capture loop failed", "error", err)
}
