package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/gpio"
	"github.com/teslashibe/go-rover/pkg/motor"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/stream"
)

func newTestServer(t *testing.T) (*Server, *gpio.Mock) {
	t.Helper()
	m := gpio.NewMock()
	motors, err := motor.NewController(m,
		motor.Pins{Forward: 17, Backward: 18, Enable: 22},
		motor.Pins{Forward: 23, Backward: 24, Enable: 25},
		60, 50)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	engine := stream.NewEngine(&camera.Mock{}, 100)
	rv := rover.New(m, motors, engine)
	t.Cleanup(func() { rv.Close() })
	return NewServer("0", rv), m
}

func postForm(t *testing.T, s *Server, path string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := s.App().Test(req, 2000)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestMotorEndpoints(t *testing.T) {
	s, m := newTestServer(t)

	cases := []struct {
		path   string
		action string
		// direction pin expected high on the left wheel, 0 for none
		highPin int
	}{
		{"/motor/forward", "forward", 17},
		{"/motor/backward", "backward", 18},
		{"/motor/left", "left", 18},
		{"/motor/right", "right", 17},
		{"/motor/stop", "stop", 0},
	}

	for _, tc := range cases {
		resp, body := postForm(t, s, tc.path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", tc.path, resp.StatusCode)
			continue
		}
		if body["status"] != "success" || body["action"] != tc.action {
			t.Errorf("%s: body %v", tc.path, body)
		}
		if tc.highPin != 0 {
			if ps, _ := m.PinState(tc.highPin); !ps.High {
				t.Errorf("%s: pin %d not driven high", tc.path, tc.highPin)
			}
		}
	}
}

func TestMotorForward_SpeedOverride(t *testing.T) {
	s, m := newTestServer(t)

	resp, body := postForm(t, s, "/motor/forward", url.Values{"speed": {"85"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body["speed"] != float64(85) {
		t.Errorf("speed in response = %v, want 85", body["speed"])
	}
	if ps, _ := m.PinState(22); ps.Duty != 85 {
		t.Errorf("enable duty = %d, want 85", ps.Duty)
	}
}

func TestMotorForward_SpeedViaQuery(t *testing.T) {
	s, m := newTestServer(t)

	resp, _ := postForm(t, s, "/motor/forward?speed=30", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ps, _ := m.PinState(22); ps.Duty != 30 {
		t.Errorf("enable duty = %d, want 30", ps.Duty)
	}
}

func TestForwardTimed(t *testing.T) {
	s, m := newTestServer(t)

	resp, body := postForm(t, s, "/motor/forward_timed", url.Values{"duration": {"0.05"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["action"] != "forward_timed" || body["duration"] != 0.05 {
		t.Errorf("body %v", body)
	}

	// The handler returns immediately with the wheels driving; the stop
	// arrives on its own.
	if ps, _ := m.PinState(17); !ps.High {
		t.Fatal("not moving right after forward_timed")
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ps, _ := m.PinState(17); !ps.High {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("auto-stop did not fire")
}

func TestForwardTimed_BadDuration(t *testing.T) {
	s, _ := newTestServer(t)

	for _, raw := range []string{"", "0", "-1", "soon"} {
		form := url.Values{}
		if raw != "" {
			form.Set("duration", raw)
		}
		resp, body := postForm(t, s, "/motor/forward_timed", form)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("duration %q: status %d, want 400", raw, resp.StatusCode)
		}
		if body["kind"] != "configuration" {
			t.Errorf("duration %q: kind %v", raw, body["kind"])
		}
	}
}

func TestVideoFeed_NotRunning(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/camera/video_feed", nil)
	resp, err := s.App().Test(req, 2000)
	if err != nil {
		t.Fatalf("GET /camera/video_feed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status %d, want 409", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["kind"] != "capture" {
		t.Errorf("kind %v, want capture", body["kind"])
	}
}

func TestCameraLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := postForm(t, s, "/camera/start", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("start: status %d body %v", resp.StatusCode, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/camera/status", nil)
	sresp, err := s.App().Test(req, 2000)
	if err != nil {
		t.Fatalf("GET /camera/status: %v", err)
	}
	status := decodeBody(t, sresp)
	if status["state"] != "running" || status["camera_type"] != "mock" {
		t.Errorf("status body %v", status)
	}

	resp, body = postForm(t, s, "/camera/stop", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("stop: status %d body %v", resp.StatusCode, body)
	}
}

func TestSystemStatus(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	resp, err := s.App().Test(req, 2000)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	body := decodeBody(t, resp)

	cam, ok := body["camera"].(map[string]any)
	if !ok {
		t.Fatalf("no camera section in %v", body)
	}
	if cam["state"] != "stopped" {
		t.Errorf("camera state = %v, want stopped", cam["state"])
	}
	mot, ok := body["motor"].(map[string]any)
	if !ok {
		t.Fatalf("no motor section in %v", body)
	}
	if mot["stopped"] != true {
		t.Errorf("motor stopped = %v", mot["stopped"])
	}
	if body["gpio_backend"] != "mock" {
		t.Errorf("gpio_backend = %v", body["gpio_backend"])
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		kind   string
		status int
	}{
		{motor.ErrInvalidDuration, "configuration", http.StatusBadRequest},
		{gpio.ErrInvalidPin, "configuration", http.StatusBadRequest},
		{&gpio.HardwareError{Pin: 17, Op: "write", Err: errors.New("io failure")}, "hardware", http.StatusInternalServerError},
		{camera.ErrNotOpen, "capture", http.StatusServiceUnavailable},
		{&camera.CaptureError{Backend: "mock", Err: camera.ErrNoFrame}, "capture", http.StatusServiceUnavailable},
		{stream.ErrEngineFailed, "capture", http.StatusServiceUnavailable},
		{stream.ErrNotRunning, "capture", http.StatusConflict},
		{errors.New("plain"), "internal", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		kind, status := classify(tc.err)
		if kind != tc.kind || status != tc.status {
			t.Errorf("classify(%v) = %s/%d, want %s/%d", tc.err, kind, status, tc.kind, tc.status)
		}
	}
}

func TestWebsocketRoute_RequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ws/camera", nil)
	resp, err := s.App().Test(req, 2000)
	if err != nil {
		t.Fatalf("GET /ws/camera: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status %d, want 426", resp.StatusCode)
	}
}
