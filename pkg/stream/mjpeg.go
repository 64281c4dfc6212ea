package stream

import (
	"fmt"
	"io"
)

// MJPEG multipart framing: one long-lived response carrying a sequence
// of JPEG parts separated by a boundary, the format browsers render as
// a live image.
const (
	// Boundary separates frames in the multipart stream.
	Boundary = "frame"

	// ContentType is the response content type for the video feed.
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

// WriteFrame writes one complete JPEG frame framed for the multipart
// stream. A write error means the remote side is gone and the session
// should end.
func WriteFrame(w io.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
