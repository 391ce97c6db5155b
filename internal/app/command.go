package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/led"
	"github.com/coreman2200/triplewave/internal/tests"
)

type Op string

const (
	OpLine      Op = "line"      // raw protocol line, as if read from the encoders
	OpFrequency Op = "frequency" // rotation-class, Steps signed
	OpPhase     Op = "phase"     // rotation-class, Steps signed
	OpStep      Op = "step"      // step index, Steps signed
	OpToggle    Op = "toggle"
	OpState     Op = "state"
	OpReset     Op = "reset"
	OpSelfTest  Op = "selftest"
	OpAnimation Op = "animation"
)

// Command is a control request queued for the poll loop.
type Command struct {
	Op      Op            `json:"op"`
	Channel int           `json:"channel"`
	Steps   int           `json:"steps,omitempty"`
	State   channel.State `json:"state,omitempty"`
	Test    tests.Kind    `json:"test,omitempty"`
	Style   led.Style     `json:"style,omitempty"`
	Line    string        `json:"line,omitempty"`
}

var ErrQueueFull = errors.New("app: command queue full")

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(string(c.Op))
	switch c.Op {
	case OpLine:
		fmt.Fprintf(&b, " %q", c.Line)
	case OpFrequency, OpPhase, OpStep:
		fmt.Fprintf(&b, " ch%d %+d", c.Channel, c.Steps)
	case OpToggle:
		fmt.Fprintf(&b, " ch%d", c.Channel)
	case OpState:
		fmt.Fprintf(&b, " ch%d %s", c.Channel, c.State)
	case OpSelfTest:
		fmt.Fprintf(&b, " %s", c.Test)
	case OpAnimation:
		fmt.Fprintf(&b, " %s", c.Style)
	}
	return b.String()
}
