package hub

import (
	"testing"
	"time"
)

func waitCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestStop_Idempotent(t *testing.T) {
	h := New("test")
	go h.Run()

	h.Stop()
	h.Stop() // second stop must not panic
}

func TestClientRegisterUnregister(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	c := NewClient(h, nil)
	waitCount(t, h, 1)

	c.detach()
	waitCount(t, h, 0)
}

// A client disconnecting after the hub shut down must not block on the
// unregister channel forever.
func TestDetach_AfterStop(t *testing.T) {
	h := New("test")
	go h.Run()

	c := NewClient(h, nil)
	waitCount(t, h, 1)
	h.Stop()

	done := make(chan struct{})
	go func() {
		c.detach()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("detach blocked after hub stop")
	}
}

// Registering against a stopped hub returns instead of blocking; the
// client simply stays unregistered.
func TestNewClient_AfterStop(t *testing.T) {
	h := New("test")
	go h.Run()
	h.Stop()

	done := make(chan struct{})
	go func() {
		NewClient(h, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NewClient blocked after hub stop")
	}
	// Run may briefly accept the register before it observes the stop;
	// either way it ends with no clients held.
	waitCount(t, h, 0)
}
