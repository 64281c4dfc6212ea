// Package web exposes the rover's HTTP surface: motor commands, the
// MJPEG video feed, status endpoints and websocket live feeds.
package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/rover"
)

// Cadence of status broadcasts to websocket clients.
const statusInterval = time.Second

// Server is the rover's HTTP server.
type Server struct {
	app   *fiber.App
	port  string
	rover *rover.Rover

	// Hubs for websocket broadcast
	cameraHub *hub.Hub
	statusHub *hub.Hub

	feedCtx    context.Context
	feedCancel context.CancelFunc
}

// NewServer wires the routes and returns the server.
func NewServer(port string, rv *rover.Rover) *Server {
	feedCtx, feedCancel := context.WithCancel(context.Background())
	s := &Server{
		port:       port,
		rover:      rv,
		cameraHub:  hub.New("camera"),
		statusHub:  hub.New("status"),
		feedCtx:    feedCtx,
		feedCancel: feedCancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-rover",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	camera := app.Group("/camera")
	camera.Get("/video_feed", s.handleVideoFeed)
	camera.Get("/status", s.handleCameraStatus)
	camera.Post("/start", s.handleCameraStart)
	camera.Post("/stop", s.handleCameraStop)

	motorGroup := app.Group("/motor")
	motorGroup.Post("/forward", s.handleForward)
	motorGroup.Post("/backward", s.handleBackward)
	motorGroup.Post("/left", s.handleLeft)
	motorGroup.Post("/right", s.handleRight)
	motorGroup.Post("/stop", s.handleStop)
	motorGroup.Post("/forward_timed", s.handleForwardTimed)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the fiber app, used by tests to drive requests.
func (s *Server) App() *fiber.App { return s.app }

// Start runs the hubs and feed pumps and blocks serving HTTP.
func (s *Server) Start() error {
	go s.cameraHub.Run()
	go s.statusHub.Run()
	go s.pumpCameraFeed()
	go s.pumpStatusFeed()

	log.Info("http server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the feeds and the HTTP server.
func (s *Server) Shutdown() error {
	s.feedCancel()
	s.cameraHub.Stop()
	s.statusHub.Stop()
	return s.app.Shutdown()
}

// pumpCameraFeed forwards published frames to websocket clients. It
// only holds a stream subscription while someone is actually watching.
func (s *Server) pumpCameraFeed() {
	for {
		select {
		case <-s.feedCtx.Done():
			return
		default:
		}

		if s.cameraHub.ClientCount() == 0 {
			if !sleepCtx(s.feedCtx, 500*time.Millisecond) {
				return
			}
			continue
		}

		sub, err := s.rover.Stream().Subscribe()
		if err != nil {
			if !sleepCtx(s.feedCtx, time.Second) {
				return
			}
			continue
		}

		for s.cameraHub.ClientCount() > 0 {
			frame, err := sub.Next(s.feedCtx)
			if err != nil {
				break
			}
			s.cameraHub.BroadcastBinary(frame.Data)
		}
		sub.Close()
	}
}

// pumpStatusFeed broadcasts the system status once per second.
func (s *Server) pumpStatusFeed() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.feedCtx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() > 0 {
				s.statusHub.BroadcastJSON(s.rover.Status())
			}
		}
	}
}

// handleCameraWS serves the binary frame feed over websocket.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

// handleStatusWS serves the JSON status feed over websocket.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
