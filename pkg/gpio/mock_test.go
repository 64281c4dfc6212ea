package gpio

import (
	"errors"
	"testing"
)

func TestMock_RecordsWrites(t *testing.T) {
	m := NewMock()

	if err := m.SetMode(17, Output); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := m.SetMode(22, PWM); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	if err := m.WriteDigital(17, true); err != nil {
		t.Fatalf("WriteDigital: %v", err)
	}
	if err := m.WritePWM(22, 60); err != nil {
		t.Fatalf("WritePWM: %v", err)
	}

	st, ok := m.PinState(17)
	if !ok || !st.High {
		t.Errorf("pin 17: got %+v, want high", st)
	}
	st, ok = m.PinState(22)
	if !ok || st.Duty != 60 {
		t.Errorf("pin 22: got duty %d, want 60", st.Duty)
	}
}

func TestMock_ClampsDuty(t *testing.T) {
	m := NewMock()
	m.SetMode(22, PWM)

	cases := []struct {
		in   int
		want int
	}{
		{150, 100},
		{-10, 0},
		{100, 100},
		{0, 0},
		{55, 55},
	}
	for _, c := range cases {
		if err := m.WritePWM(22, c.in); err != nil {
			t.Fatalf("WritePWM(%d): %v", c.in, err)
		}
		st, _ := m.PinState(22)
		if st.Duty != c.want {
			t.Errorf("WritePWM(%d): got duty %d, want %d", c.in, st.Duty, c.want)
		}
	}
}

func TestMock_InvalidPin(t *testing.T) {
	m := NewMock()

	if err := m.SetMode(99, Output); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("SetMode(99): got %v, want ErrInvalidPin", err)
	}
	if err := m.WriteDigital(0, true); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("WriteDigital(0): got %v, want ErrInvalidPin", err)
	}
}

func TestMock_UnconfiguredPin(t *testing.T) {
	m := NewMock()

	if err := m.WriteDigital(17, true); !errors.Is(err, ErrPinNotConfigured) {
		t.Errorf("got %v, want ErrPinNotConfigured", err)
	}
}

func TestMock_WrongMode(t *testing.T) {
	m := NewMock()
	m.SetMode(17, Output)
	m.SetMode(22, PWM)

	if err := m.WritePWM(17, 50); !errors.Is(err, ErrWrongMode) {
		t.Errorf("WritePWM on output pin: got %v, want ErrWrongMode", err)
	}
	if err := m.WriteDigital(22, true); !errors.Is(err, ErrWrongMode) {
		t.Errorf("WriteDigital on pwm pin: got %v, want ErrWrongMode", err)
	}
}

func TestMock_CleanupIdempotent(t *testing.T) {
	m := NewMock()
	m.SetMode(17, Output)
	m.SetMode(22, PWM)
	m.WriteDigital(17, true)
	m.WritePWM(22, 80)

	if err := m.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	first, _ := m.PinState(17)
	firstPWM, _ := m.PinState(22)

	if err := m.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	second, _ := m.PinState(17)
	secondPWM, _ := m.PinState(22)

	if first != second || firstPWM != secondPWM {
		t.Errorf("second cleanup changed state: %+v vs %+v", first, second)
	}
	if second.High || secondPWM.Duty != 0 {
		t.Errorf("cleanup left pins active: %+v %+v", second, secondPWM)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New("bogus")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("got %v, want ConfigError", err)
	}
}
