package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Watchdog bound on a subscriber waiting for its next frame. A dead
// capture loop or a stalled stream must not hold a session forever.
const sessionWatchdog = 30 * time.Second

// Subscription is one viewer's position in the stream. A new subscriber
// always starts from the current latest frame; there is no history.
type Subscription struct {
	ID string

	buf     *Buffer
	onClose func()

	mu     sync.Mutex
	last   uint64
	closed bool
}

func newSubscription(buf *Buffer, onClose func()) *Subscription {
	return &Subscription{
		ID:      uuid.NewString(),
		buf:     buf,
		onClose: onClose,
	}
}

// Next blocks until a frame newer than the last delivered one is
// published and returns it. Sequence numbers are strictly increasing
// per subscription. Returns ErrStreamClosed after the engine stops and
// ErrSessionTimeout when the watchdog fires.
func (s *Subscription) Next(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Frame{}, ErrStreamClosed
	}
	last := s.last
	s.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, sessionWatchdog)
	defer cancel()

	frame, err := s.buf.Next(waitCtx, last)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Frame{}, ErrSessionTimeout
		}
		return Frame{}, err
	}

	s.mu.Lock()
	s.last = frame.Seq
	s.mu.Unlock()
	return frame, nil
}

// LastSeq returns the sequence number of the last delivered frame.
func (s *Subscription) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Close releases the session. Idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.onClose != nil {
		s.onClose()
	}
}
