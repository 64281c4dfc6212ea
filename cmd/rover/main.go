// Rover - control daemon for the camera rover.
//
// Serves the MJPEG video feed and motor control API, driving two wheels
// through real GPIO on the Pi or the simulated backend elsewhere.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/gpio"
	"github.com/teslashibe/go-rover/pkg/motor"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/stream"
	"github.com/teslashibe/go-rover/pkg/web"
)

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Error("invalid configuration", "problem", e)
		}
		os.Exit(1)
	}

	pins, err := gpio.New(cfg.GPIOBackend)
	if err != nil {
		log.Error("gpio init failed", "error", err)
		os.Exit(1)
	}

	motors, err := motor.NewController(pins,
		motor.Pins{Forward: cfg.LeftWheel.Forward, Backward: cfg.LeftWheel.Backward, Enable: cfg.LeftWheel.Enable},
		motor.Pins{Forward: cfg.RightWheel.Forward, Backward: cfg.RightWheel.Backward, Enable: cfg.RightWheel.Enable},
		cfg.CruiseSpeed, cfg.TurnSpeed)
	if err != nil {
		log.Error("motor init failed", "error", err)
		pins.Cleanup()
		os.Exit(1)
	}

	source, err := camera.New(cfg.CameraBackend, cfg.CameraDevice, camera.Mode{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Framerate: cfg.Framerate,
		Quality:   cfg.Quality,
	})
	if err != nil {
		log.Error("camera init failed", "error", err)
		pins.Cleanup()
		os.Exit(1)
	}

	engine := stream.NewEngine(source, cfg.Framerate)
	rv := rover.New(pins, motors, engine)
	server := web.NewServer(cfg.Port, rv)

	// Streaming starts eagerly; a failed camera leaves the engine in
	// Failed and the motor API still fully usable.
	if err := rv.StartStream(context.Background()); err != nil {
		log.Warn("camera stream not started", "error", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("shutting down")
		server.Shutdown()
	}()

	if err := server.Start(); err != nil {
		log.Error("http server error", "error", err)
	}

	if err := rv.Close(); err != nil {
		log.Error("shutdown cleanup failed", "error", err)
		os.Exit(1)
	}
}
