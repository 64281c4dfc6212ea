package web

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/gpio"
	"github.com/teslashibe/go-rover/pkg/motor"
	"github.com/teslashibe/go-rover/pkg/stream"
)

// handleVideoFeed begins a viewer session and streams MJPEG until the
// client disconnects or the engine stops. The session subscribes before
// the response starts so a dead stream fails fast with a JSON error
// instead of an empty multipart body.
func (s *Server) handleVideoFeed(c *fiber.Ctx) error {
	sub, err := s.rover.Stream().Subscribe()
	if err != nil {
		return s.errorJSON(c, err)
	}

	c.Set(fiber.HeaderContentType, stream.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		for {
			frame, err := sub.Next(context.Background())
			if err != nil {
				log.Debug("viewer session ended", "session", sub.ID, "reason", err)
				return
			}
			// A failed write or flush means the remote side hung up.
			if err := stream.WriteFrame(w, frame.Data); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

// handleCameraStatus returns the streaming subsystem status.
func (s *Server) handleCameraStatus(c *fiber.Ctx) error {
	st := s.rover.Stream().Status()
	return c.JSON(fiber.Map{
		"status":      "success",
		"state":       st.State,
		"camera_type": st.Backend,
		"resolution":  [2]int{st.Mode.Width, st.Mode.Height},
		"framerate":   st.Mode.Framerate,
		"frame_seq":   st.FrameSeq,
		"subscribers": st.Subscribers,
		"error":       st.LastError,
	})
}

// handleCameraStart starts the streaming engine.
func (s *Server) handleCameraStart(c *fiber.Ctx) error {
	if err := s.rover.StartStream(c.Context()); err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "message": "camera stream started"})
}

// handleCameraStop stops the streaming engine.
func (s *Server) handleCameraStop(c *fiber.Ctx) error {
	if err := s.rover.StopStream(); err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "message": "camera stream stopped"})
}

func (s *Server) handleForward(c *fiber.Ctx) error {
	speed := s.speedParam(c)
	if err := s.rover.Forward(speed); err != nil {
		return s.errorJSON(c, err)
	}
	return motorOK(c, "forward", speed)
}

func (s *Server) handleBackward(c *fiber.Ctx) error {
	speed := s.speedParam(c)
	if err := s.rover.Backward(speed); err != nil {
		return s.errorJSON(c, err)
	}
	return motorOK(c, "backward", speed)
}

func (s *Server) handleLeft(c *fiber.Ctx) error {
	speed := s.speedParam(c)
	if err := s.rover.TurnLeft(speed); err != nil {
		return s.errorJSON(c, err)
	}
	return motorOK(c, "left", speed)
}

func (s *Server) handleRight(c *fiber.Ctx) error {
	speed := s.speedParam(c)
	if err := s.rover.TurnRight(speed); err != nil {
		return s.errorJSON(c, err)
	}
	return motorOK(c, "right", speed)
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.rover.Stop(); err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "action": "stop"})
}

// handleForwardTimed drives forward and auto-stops after the requested
// duration. Returns immediately; the stop is scheduled, not awaited.
func (s *Server) handleForwardTimed(c *fiber.Ctx) error {
	raw := param(c, "duration")
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"kind":    "configuration",
			"message": "duration must be a positive number of seconds",
		})
	}

	speed := s.speedParam(c)
	d := time.Duration(seconds * float64(time.Second))
	if err := s.rover.ForwardTimed(d, speed); err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   "success",
		"action":   "forward_timed",
		"speed":    speed,
		"duration": seconds,
	})
}

// handleStatus returns the aggregate system status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.rover.Status())
}

// speedParam reads the optional speed override (0-100); 0 means "use
// the configured default".
func (s *Server) speedParam(c *fiber.Ctx) int {
	raw := param(c, "speed")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// param reads a request value from the form body first, then falls
// back to the query string.
func param(c *fiber.Ctx, key string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return c.Query(key)
}

func motorOK(c *fiber.Ctx, action string, speed int) error {
	resp := fiber.Map{"status": "success", "action": action}
	if speed > 0 {
		resp["speed"] = speed
	}
	return c.JSON(resp)
}

// errorJSON maps an error to the structured response: every failure
// carries its kind and a human-readable cause. The orchestration layer
// never invents new kinds; the most specific one wins.
func (s *Server) errorJSON(c *fiber.Ctx, err error) error {
	kind, status := classify(err)
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"kind":    kind,
		"message": err.Error(),
	})
}

func classify(err error) (string, int) {
	var gpioConfig *gpio.ConfigError
	var camConfig *camera.ConfigError
	var capture *camera.CaptureError

	switch {
	case errors.As(err, &gpioConfig), errors.As(err, &camConfig),
		errors.Is(err, gpio.ErrInvalidPin), errors.Is(err, motor.ErrInvalidDuration):
		return "configuration", fiber.StatusBadRequest
	case gpio.IsHardware(err):
		return "hardware", fiber.StatusInternalServerError
	case errors.As(err, &capture), errors.Is(err, camera.ErrNotOpen),
		errors.Is(err, stream.ErrEngineFailed):
		return "capture", fiber.StatusServiceUnavailable
	case errors.Is(err, stream.ErrNotRunning):
		return "capture", fiber.StatusConflict
	default:
		return "internal", fiber.StatusInternalServerError
	}
}
