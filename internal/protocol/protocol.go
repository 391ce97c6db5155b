// Package protocol is the one-line-per-event wire format spoken between the encoder
// boards and the controller: two ASCII digits, channel then event code, then newline.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the event code carried in the second digit.
type Kind uint8

const (
	Decrement Kind = iota // encoder CCW
	Press
	Increment // encoder CW
	Repeat
)

const (
	// NumChannels is the number of tunable channels addressable on the line.
	NumChannels = 3
	// ResetID is the reserved channel digit that requests a hard reset.
	ResetID = 3
)

var (
	ErrLength = errors.New("protocol: line is not two characters")
	ErrDigit  = errors.New("protocol: non-digit character")
	ErrRange  = errors.New("protocol: channel or event out of range")
)

func (k Kind) String() string {
	switch k {
	case Decrement:
		return "decrement"
	case Press:
		return "press"
	case Increment:
		return "increment"
	case Repeat:
		return "repeat"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps the names used by the control socket back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "decrement", "ccw", "down":
		return Decrement, true
	case "press":
		return Press, true
	case "increment", "cw", "up":
		return Increment, true
	case "repeat":
		return Repeat, true
	}
	return 0, false
}

// Rotation reports whether the kind comes from turning an encoder.
func (k Kind) Rotation() bool { return k == Decrement || k == Increment }

// Delta is the signed step count of a rotation kind, 0 for button kinds.
func (k Kind) Delta() int {
	switch k {
	case Decrement:
		return -1
	case Increment:
		return 1
	}
	return 0
}

// StepKind maps a signed detent direction onto its wire kind. The code on the wire is
// always direction+1, so CCW is 0 and CW is 2.
func StepKind(dir int) Kind {
	if dir < 0 {
		return Decrement
	}
	return Increment
}

// Event is one decoded line.
type Event struct {
	Channel int
	Kind    Kind
}

// Reset reports whether the event addresses the reserved reset id.
func (e Event) Reset() bool { return e.Channel == ResetID }

// Encode renders the event as a wire line including the trailing newline.
func (e Event) Encode() string {
	return fmt.Sprintf("%d%d\n", e.Channel, uint8(e.Kind))
}

func (e Event) String() string {
	return fmt.Sprintf("ch%d/%s", e.Channel, e.Kind)
}

// Decode parses a single line. The trailing newline is optional and a carriage return
// before it is tolerated, since the boards print with CRLF line endings.
func Decode(line string) (Event, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if len(line) != 2 {
		return Event{}, fmt.Errorf("%w: %q", ErrLength, line)
	}
	id, code := line[0], line[1]
	if !isDigit(id) || !isDigit(code) {
		return Event{}, fmt.Errorf("%w: %q", ErrDigit, line)
	}
	ev := Event{Channel: int(id - '0'), Kind: Kind(code - '0')}
	if ev.Channel > ResetID || ev.Kind > Repeat {
		return Event{}, fmt.Errorf("%w: %q", ErrRange, line)
	}
	return ev, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
