// Package input turns raw button levels and quadrature counts into
// line protocol events.
package input

import (
	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tick"
)

// Timing defaults in milliseconds.
const (
	DebounceTime = 50
	RepeatTime   = 500
)

type ButtonState uint8

const (
	Unpressed ButtonState = iota
	Pressed
	NotifiedPressed
)

func (s ButtonState) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case NotifiedPressed:
		return "notified"
	}
	return "unpressed"
}

// Button debounces one push button. A press must hold for the debounce time
// before it is reported; holding on reports a repeat every repeat time.
type Button struct {
	state    ButtonState
	valid    tick.Millis
	debounce int
	repeat   int
}

// NewButton takes times in milliseconds, 0 for the defaults.
func NewButton(debounce, repeat int) *Button {
	if debounce <= 0 {
		debounce = DebounceTime
	}
	if repeat <= 0 {
		repeat = RepeatTime
	}
	return &Button{debounce: debounce, repeat: repeat}
}

func (b *Button) State() ButtonState { return b.state }

// Step feeds one sample. It returns protocol.Press or protocol.Repeat when
// an event fires.
func (b *Button) Step(now tick.Millis, pressed bool) (protocol.Kind, bool) {
	switch b.state {
	case Unpressed:
		if pressed {
			b.state = Pressed
			b.valid = now.Add(b.debounce)
		}
	case Pressed:
		if !pressed {
			b.state = Unpressed
			return 0, false
		}
		if tick.Reached(now, b.valid) {
			b.state = NotifiedPressed
			b.valid = now.Add(b.repeat)
			return protocol.Press, true
		}
	case NotifiedPressed:
		if !pressed {
			b.state = Unpressed
			return 0, false
		}
		if tick.Reached(now, b.valid) {
			b.valid = now.Add(b.repeat)
			return protocol.Repeat, true
		}
	}
	return 0, false
}
