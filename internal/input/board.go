package input

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tick"
)

// SlotConfig names the pins of one encoder slot. Clock and Data may be empty
// for a bare button.
type SlotConfig struct {
	ID     int    `yaml:"id"`
	Clock  string `yaml:"clock"`
	Data   string `yaml:"data"`
	Button string `yaml:"button"`
}

// Slot is one encoder with its push button. The button is active low.
type Slot struct {
	ID      int
	Button  *Button
	Pin     gpio.PinIn
	Encoder *Encoder
	Quad    *Quadrature
}

// Board polls every slot and emits events in slot order.
type Board struct {
	slots []*Slot
}

func NewBoard(slots ...*Slot) *Board { return &Board{slots: slots} }

// Timing bundles the debounce settings shared by every slot.
type Timing struct {
	Debounce        int
	Repeat          int
	PulsesPerDetent int
}

// OpenBoard resolves slot pins through the periph registry. host.Init must have run.
func OpenBoard(cfgs []SlotConfig, t Timing) (*Board, error) {
	b := &Board{}
	for _, c := range cfgs {
		btn := gpioreg.ByName(c.Button)
		if btn == nil {
			return nil, fmt.Errorf("slot %d: button pin %q not found", c.ID, c.Button)
		}
		if err := btn.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("slot %d: button pin: %w", c.ID, err)
		}
		s := &Slot{ID: c.ID, Button: NewButton(t.Debounce, t.Repeat), Pin: btn}
		if c.Clock != "" && c.Data != "" {
			a, d := gpioreg.ByName(c.Clock), gpioreg.ByName(c.Data)
			if a == nil || d == nil {
				return nil, fmt.Errorf("slot %d: encoder pins %q/%q not found", c.ID, c.Clock, c.Data)
			}
			q, err := NewQuadrature(a, d)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", c.ID, err)
			}
			s.Quad = q
			s.Encoder = NewEncoder(t.PulsesPerDetent)
		}
		b.slots = append(b.slots, s)
	}
	return b, nil
}

// Poll samples every slot once. Detent steps become one event per detent.
func (b *Board) Poll(now tick.Millis) []protocol.Event {
	var out []protocol.Event
	for _, s := range b.slots {
		if s.Button != nil && s.Pin != nil {
			if k, ok := s.Button.Step(now, s.Pin.Read() == gpio.Low); ok {
				out = append(out, protocol.Event{Channel: s.ID, Kind: k})
			}
		}
		if s.Quad != nil && s.Encoder != nil {
			if d, ok := s.Encoder.Step(s.Quad.Sample()); ok {
				k, n := protocol.StepKind(d), d
				if n < 0 {
					n = -n
				}
				for i := 0; i < n; i++ {
					out = append(out, protocol.Event{Channel: s.ID, Kind: k})
				}
			}
		}
	}
	return out
}

// Run polls on a ticker until ctx is done, handing each event to emit.
func (b *Board) Run(ctx context.Context, clock tick.Clock, interval time.Duration, emit func(protocol.Event) error) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, e := range b.Poll(clock.Now()) {
				if err := emit(e); err != nil {
					log.Warn().Err(err).Stringer("event", e).Msg("emit")
				}
			}
		}
	}
}
