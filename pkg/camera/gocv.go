package camera

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rover/internal/log"
)

// GoCV is the generic video-capture fallback backend. It reads raw
// frames from any capture device OpenCV can open and encodes them to
// JPEG at the configured quality.
type GoCV struct {
	device    int
	requested Mode

	mu        sync.Mutex
	cap       *gocv.VideoCapture
	mat       gocv.Mat
	effective Mode
	open      bool
}

// NewGoCV creates the fallback source for a capture device index.
func NewGoCV(device int, mode Mode) *GoCV {
	return &GoCV{device: device, requested: mode, effective: mode}
}

// Backend returns "gocv".
func (g *GoCV) Backend() string { return "gocv" }

// Mode returns the mode the device actually negotiated.
func (g *GoCV) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.effective
}

// Open opens the device and negotiates the requested mode. The device
// may silently pick the nearest supported resolution or frame rate; the
// effective mode is read back from the device, not assumed.
func (g *GoCV) Open(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return nil
	}

	cap, err := gocv.OpenVideoCapture(g.device)
	if err != nil {
		return fatalErr("gocv", fmt.Errorf("open device %d: %w", g.device, err))
	}
	if !cap.IsOpened() {
		cap.Close()
		return fatalErr("gocv", fmt.Errorf("device %d did not open", g.device))
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(g.requested.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(g.requested.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(g.requested.Framerate))

	g.effective = Mode{
		Width:     int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:    int(cap.Get(gocv.VideoCaptureFrameHeight)),
		Framerate: int(cap.Get(gocv.VideoCaptureFPS)),
		Quality:   g.requested.Quality,
	}
	if g.effective.Framerate <= 0 {
		g.effective.Framerate = g.requested.Framerate
	}

	g.cap = cap
	g.mat = gocv.NewMat()
	g.open = true

	if g.effective.Width != g.requested.Width || g.effective.Height != g.requested.Height {
		log.Warn("camera negotiated different mode",
			"requested", g.requested.String(), "effective", g.effective.String())
	}
	log.Info("gocv camera opened", "device", g.device, "mode", g.effective.String())
	return nil
}

// Capture reads one frame and encodes it to JPEG. A failed read is
// transient; the device stays open and the caller may retry.
func (g *GoCV) Capture(_ context.Context) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return nil, ErrNotOpen
	}

	if ok := g.cap.Read(&g.mat); !ok {
		return nil, transientErr("gocv", ErrNoFrame)
	}
	if g.mat.Empty() {
		return nil, transientErr("gocv", ErrNoFrame)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, g.mat,
		[]int{gocv.IMWriteJpegQuality, g.effective.Quality})
	if err != nil {
		return nil, transientErr("gocv", fmt.Errorf("jpeg encode: %w", err))
	}
	defer buf.Close()

	frame := make([]byte, buf.Len())
	copy(frame, buf.GetBytes())
	return frame, nil
}

// Close releases the device. Safe to call on a closed source.
func (g *GoCV) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return nil
	}
	g.open = false
	g.mat.Close()
	err := g.cap.Close()
	g.cap = nil
	log.Info("gocv camera closed", "device", g.device)
	return err
}
