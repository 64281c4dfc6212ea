package camera

import (
	"bytes"
	"testing"
	"time"
)

func jpegFrame(payload byte) []byte {
	return []byte{0xFF, 0xD8, payload, 0xFF, 0xD9}
}

func TestExtractFrames_Complete(t *testing.T) {
	data := append(jpegFrame(0x01), jpegFrame(0x02)...)

	frames, rest := extractFrames(data)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], jpegFrame(0x01)) || !bytes.Equal(frames[1], jpegFrame(0x02)) {
		t.Errorf("frames corrupted: %x %x", frames[0], frames[1])
	}
	if len(rest) != 0 {
		t.Errorf("rest = %x, want empty", rest)
	}
}

func TestExtractFrames_SplitAcrossReads(t *testing.T) {
	frame := jpegFrame(0x42)

	// First half only: no complete frame yet, remainder kept.
	frames, rest := extractFrames(frame[:3])
	if len(frames) != 0 {
		t.Fatalf("got %d frames from partial data", len(frames))
	}

	frames, rest = extractFrames(append(rest, frame[3:]...))
	if len(frames) != 1 {
		t.Fatalf("got %d frames after second read, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], frame) {
		t.Errorf("frame = %x, want %x", frames[0], frame)
	}
	if len(rest) != 0 {
		t.Errorf("rest = %x, want empty", rest)
	}
}

func TestExtractFrames_GarbagePrefix(t *testing.T) {
	data := append([]byte{0x00, 0x11, 0x22}, jpegFrame(0x07)...)

	frames, _ := extractFrames(data)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], jpegFrame(0x07)) {
		t.Errorf("frame = %x", frames[0])
	}
}

// The pump keeps only the newest complete frame when the consumer is
// not keeping up.
func TestPump_LatestWins(t *testing.T) {
	l := NewLibcamera(Mode{})
	frames := make(chan []byte, 1)
	errs := make(chan error, 1)

	var data []byte
	for i := byte(1); i <= 3; i++ {
		data = append(data, jpegFrame(i)...)
	}

	done := make(chan struct{})
	go func() {
		l.pump(bytes.NewReader(data), frames, errs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not finish")
	}

	select {
	case frame := <-frames:
		if !bytes.Equal(frame, jpegFrame(3)) {
			t.Errorf("frame = %x, want newest %x", frame, jpegFrame(3))
		}
	default:
		t.Fatal("no frame delivered")
	}
}

func TestExtractFrames_NoMarkers(t *testing.T) {
	frames, rest := extractFrames([]byte{0x00, 0x01, 0x02, 0x03})
	if len(frames) != 0 || rest != nil {
		t.Errorf("got frames=%d rest=%x, want none", len(frames), rest)
	}
}
