package stream

import (
	"context"
	"sync"
	"time"
)

// Frame is one encoded JPEG image with its position in the stream.
// Frames are immutable once published.
type Frame struct {
	Data      []byte
	Seq       uint64
	Timestamp time.Time
}

// Buffer holds the latest published frame. It has a single writer (the
// capture loop) and any number of readers; readers block on the next
// sequence number instead of polling, and always observe a complete
// frame.
type Buffer struct {
	mu       sync.Mutex
	frame    Frame
	notify   chan struct{}
	closed   bool
	closeErr error
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{notify: make(chan struct{})}
}

// Publish replaces the latest frame and wakes all waiting readers.
// Publishing after Close is a no-op.
func (b *Buffer) Publish(data []byte, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.frame = Frame{Data: data, Seq: b.frame.Seq + 1, Timestamp: at}
	close(b.notify)
	b.notify = make(chan struct{})
}

// Next blocks until a frame with a sequence number greater than after is
// available, then returns it. Returns the close error once the buffer
// is closed, or ctx.Err() when the context ends first.
func (b *Buffer) Next(ctx context.Context, after uint64) (Frame, error) {
	for {
		b.mu.Lock()
		if b.frame.Seq > after {
			frame := b.frame
			b.mu.Unlock()
			return frame, nil
		}
		if b.closed {
			err := b.closeErr
			b.mu.Unlock()
			return Frame{}, err
		}
		wait := b.notify
		b.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

// Latest returns the current frame without blocking. The zero Frame
// means nothing has been published yet.
func (b *Buffer) Latest() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Close wakes all readers with err. Idempotent.
func (b *Buffer) Close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if err == nil {
		err = ErrStreamClosed
	}
	b.closeErr = err
	close(b.notify)
	b.notify = make(chan struct{})
}
