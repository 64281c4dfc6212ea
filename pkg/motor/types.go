package motor

import "fmt"

// Direction is the resolved direction of one wheel.
type Direction int

const (
	// Neutral means the wheel is not driven.
	Neutral Direction = iota
	// Forward drives the wheel forward.
	Forward
	// Backward drives the wheel backward.
	Backward
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "neutral"
	}
}

// MarshalJSON renders the direction by name in status responses.
func (d Direction) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// WheelIntent is the resolved direction and speed for one wheel.
// Speed is a duty cycle percentage in [0,100].
type WheelIntent struct {
	Direction Direction `json:"direction"`
	Speed     int       `json:"speed"`
}

// DriveIntent is the resolved per-wheel intent a command maps to.
type DriveIntent struct {
	Left  WheelIntent `json:"left"`
	Right WheelIntent `json:"right"`
}

// Stopped reports whether no wheel is driven.
func (d DriveIntent) Stopped() bool {
	return d.Left.Direction == Neutral && d.Right.Direction == Neutral
}

// String renders the intent for logging.
func (d DriveIntent) String() string {
	return fmt.Sprintf("left=%s@%d right=%s@%d",
		d.Left.Direction, d.Left.Speed, d.Right.Direction, d.Right.Speed)
}

// Pins holds the GPIO assignment for one wheel: two direction pins and
// one PWM enable pin, L298N style.
type Pins struct {
	Forward  int
	Backward int
	Enable   int
}
