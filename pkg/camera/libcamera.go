package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/teslashibe/go-rover/internal/log"
)

// Pipe buffer bound; a stream that never completes a frame within this
// much data is broken.
const maxFrameBytes = 10 * 1024 * 1024

// Libcamera is the native Pi camera backend. It runs a long-lived
// libcamera-vid process emitting MJPEG on stdout and extracts complete
// JPEG frames from the byte stream.
type Libcamera struct {
	mode Mode

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	frames chan []byte
	errs   chan error
	open   bool
}

// NewLibcamera creates the native source. libcamera-vid honors the
// requested mode exactly or fails to start, so the effective mode is
// the requested one.
func NewLibcamera(mode Mode) *Libcamera {
	return &Libcamera{mode: mode}
}

// Backend returns "libcamera".
func (l *Libcamera) Backend() string { return "libcamera" }

// Mode returns the capture mode in use.
func (l *Libcamera) Mode() Mode { return l.mode }

// Open starts the capture process and its frame pump.
func (l *Libcamera) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		return nil
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(pumpCtx, "libcamera-vid",
		"--codec", "mjpeg",
		"-t", "0",
		"--width", strconv.Itoa(l.mode.Width),
		"--height", strconv.Itoa(l.mode.Height),
		"--framerate", strconv.Itoa(l.mode.Framerate),
		"--quality", strconv.Itoa(l.mode.Quality),
		"-n",
		"-o", "-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fatalErr("libcamera", fmt.Errorf("stdout pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fatalErr("libcamera", fmt.Errorf("start libcamera-vid: %w", err))
	}

	l.cmd = cmd
	l.cancel = cancel
	l.frames = make(chan []byte, 1)
	l.errs = make(chan error, 1)
	l.open = true

	go l.pump(stdout, l.frames, l.errs)

	log.Info("libcamera opened", "mode", l.mode.String())
	return nil
}

// Capture returns the next complete frame from the pump. A context
// deadline is a transient error; a dead pipe is fatal.
func (l *Libcamera) Capture(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return nil, ErrNotOpen
	}
	frames, errs := l.frames, l.errs
	l.mu.Unlock()

	select {
	case frame, ok := <-frames:
		if !ok {
			return nil, fatalErr("libcamera", io.EOF)
		}
		return frame, nil
	case err := <-errs:
		return nil, fatalErr("libcamera", err)
	case <-ctx.Done():
		return nil, transientErr("libcamera", ctx.Err())
	}
}

// Close stops the capture process. Safe to call on a closed source.
func (l *Libcamera) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return nil
	}
	l.open = false
	l.cancel()
	err := l.cmd.Wait()
	l.cmd = nil
	log.Info("libcamera closed")
	// The pipeline dies with a non-nil exit status when cancelled.
	if err != nil && err.Error() == "signal: killed" {
		return nil
	}
	return err
}

// pump reads the MJPEG byte stream, extracts complete JPEG frames and
// delivers them latest-wins: a slow consumer sees the newest frame, not
// a backlog.
func (l *Libcamera) pump(r io.Reader, frames chan []byte, errs chan<- error) {
	defer close(frames)

	buf := make([]byte, 64*1024)
	var pending []byte

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var complete [][]byte
			complete, pending = extractFrames(pending)
			for _, frame := range complete {
				select {
				case frames <- frame:
				default:
					// Drop the stale frame, keep the newest.
					select {
					case <-frames:
					default:
					}
					select {
					case frames <- frame:
					default:
					}
				}
			}
			if len(pending) > maxFrameBytes {
				log.Warn("mjpeg buffer overflow, resetting")
				pending = nil
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case errs <- err:
				default:
				}
			}
			return
		}
	}
}

// JPEG stream markers.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// extractFrames splits complete JPEG frames out of an MJPEG byte stream,
// returning the frames and the unconsumed remainder.
func extractFrames(data []byte) ([][]byte, []byte) {
	var frames [][]byte
	for {
		start := bytes.Index(data, jpegSOI)
		if start == -1 {
			return frames, nil
		}
		end := bytes.Index(data[start+2:], jpegEOI)
		if end == -1 {
			// Incomplete frame; keep from SOI onward.
			rest := make([]byte, len(data)-start)
			copy(rest, data[start:])
			return frames, rest
		}
		end += start + 2 + 2
		frame := make([]byte, end-start)
		copy(frame, data[start:end])
		frames = append(frames, frame)
		data = data[end:]
	}
}
