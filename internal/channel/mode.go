package channel

import (
	"fmt"
	"strings"
)

// Mode is the waveform shape a generator is set to at construction.
type Mode uint8

const (
	Sine Mode = iota
	Triangle
	Square
	HalfSquare // square at half the programmed frequency
)

func (m Mode) String() string {
	switch m {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case HalfSquare:
		return "square2"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(v) {
	case "sine", "":
		return Sine, nil
	case "triangle":
		return Triangle, nil
	case "square":
		return Square, nil
	case "square2", "half-square":
		return HalfSquare, nil
	}
	return Sine, fmt.Errorf("unknown waveform mode %q", v)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
