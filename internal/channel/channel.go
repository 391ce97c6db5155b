// Package channel holds the per-channel oscillator model and the group that
// couples channels through the mute/solo/sync cycle.
package channel

import (
	"fmt"
)

// All quantities are fixed point in tenths: tenths of a hertz and tenths of a degree.
const (
	MaxFrequency int64 = 125000000 // 12.5 MHz
	MaxPhase           = 3600
	MaxStep            = 4

	// DefaultSilent is the inaudible frequency a muted channel parks its generator on.
	DefaultSilent int64 = 1000000 // 100 kHz
)

var stepSizes = [MaxStep + 1]int64{1, 10, 100, 1000, 10000}

// StepSize is the frequency increment for a step index, 10 for anything outside the table.
func StepSize(index int) int64 {
	if index < 0 || index > MaxStep {
		return 10
	}
	return stepSizes[index]
}

// GeneratorSink is the output capability a channel drives.
type GeneratorSink interface {
	SetFrequency(hz float64) error
	SetPhase(tenths int) error
}

// Config is a channel's identity and power-on values.
type Config struct {
	ID        int
	Frequency int64 // tenths of Hz
	Step      int
	Phase     int // tenths of a degree
	State     State
	Mode      Mode
	Silent    int64 // tenths of Hz, DefaultSilent when zero
}

// GeneratorWrite is one memoized push to a generator.
type GeneratorWrite struct {
	Frequency int64 // tenths of Hz
	Phase     int
	HasPhase  bool
}

func (w GeneratorWrite) Hz() float64 { return float64(w.Frequency) / 10.0 }

type Channel struct {
	id        int
	frequency int64
	step      int
	phase     int
	state     State
	mode      Mode
	silent    int64

	initial Config
	sink    GeneratorSink

	sent      bool
	lastFreq  int64
	lastPhase int
	phaseSent bool
}

// New validates cfg and binds the channel to its generator sink (nil for none).
func New(cfg Config, sink GeneratorSink) (*Channel, error) {
	if cfg.Silent == 0 {
		cfg.Silent = DefaultSilent
	}
	if cfg.ID < 0 {
		return nil, fmt.Errorf("channel id %d: must not be negative", cfg.ID)
	}
	if cfg.Frequency < 0 || cfg.Frequency >= MaxFrequency {
		return nil, fmt.Errorf("channel %d: frequency %d out of range [0,%d)", cfg.ID, cfg.Frequency, MaxFrequency)
	}
	if cfg.Phase < 0 || cfg.Phase >= MaxPhase {
		return nil, fmt.Errorf("channel %d: phase %d out of range [0,%d)", cfg.ID, cfg.Phase, MaxPhase)
	}
	if cfg.Step < 0 || cfg.Step > MaxStep {
		return nil, fmt.Errorf("channel %d: step %d out of range [0,%d]", cfg.ID, cfg.Step, MaxStep)
	}
	if cfg.State > Sync {
		return nil, fmt.Errorf("channel %d: %v", cfg.ID, cfg.State)
	}
	c := &Channel{initial: cfg, sink: sink}
	c.load(cfg)
	return c, nil
}

func (c *Channel) load(cfg Config) {
	c.id = cfg.ID
	c.frequency = cfg.Frequency
	c.step = cfg.Step
	c.phase = cfg.Phase
	c.state = cfg.State
	c.mode = cfg.Mode
	c.silent = cfg.Silent
	c.sent = false
	c.phaseSent = false
}

func (c *Channel) ID() int             { return c.id }
func (c *Channel) Frequency() int64    { return c.frequency }
func (c *Channel) Step() int           { return c.step }
func (c *Channel) Phase() int          { return c.phase }
func (c *Channel) State() State        { return c.state }
func (c *Channel) Mode() Mode          { return c.mode }
func (c *Channel) Initial() Config     { return c.initial }
func (c *Channel) Audible() bool       { return c.state.Audible() }
func (c *Channel) StepSize() int64     { return StepSize(c.step) }
func (c *Channel) setState(s State)    { c.state = s }
func (c *Channel) Sink() GeneratorSink { return c.sink }

// StepFrequency moves the frequency by steps increments of the current step size.
// Below zero clamps to zero, at or above the maximum wraps down.
func (c *Channel) StepFrequency(steps int) {
	f := c.frequency + int64(steps)*c.StepSize()
	if f < 0 {
		f = 0
	}
	for f >= MaxFrequency {
		f -= MaxFrequency
	}
	c.frequency = f
}

// StepPhase moves the phase by steps tenths of a degree, wrapping in both directions.
func (c *Channel) StepPhase(steps int) {
	p := c.phase + steps
	for p < 0 {
		p += MaxPhase
	}
	for p >= MaxPhase {
		p -= MaxPhase
	}
	c.phase = p
}

// StepStep moves the step index. Below zero clamps, past the top it wraps by
// MaxStep so 4+1 lands on 1.
func (c *Channel) StepStep(steps int) {
	s := c.step + steps
	if s < 0 {
		s = 0
	}
	for s > MaxStep {
		s -= MaxStep
	}
	c.step = s
}

// UpdateGenerator returns the write the generator is missing, ok false when the
// cache already matches. Muted channels park on the silent frequency and leave the
// phase alone.
func (c *Channel) UpdateGenerator() (w GeneratorWrite, ok bool) {
	if !c.state.Audible() {
		if c.sent && c.lastFreq == c.silent {
			return w, false
		}
		c.sent, c.lastFreq = true, c.silent
		return GeneratorWrite{Frequency: c.silent}, true
	}
	if c.sent && c.phaseSent && c.lastFreq == c.frequency && c.lastPhase == c.phase {
		return w, false
	}
	c.sent, c.lastFreq = true, c.frequency
	c.phaseSent, c.lastPhase = true, c.phase
	return GeneratorWrite{Frequency: c.frequency, Phase: c.phase, HasPhase: true}, true
}

// Update pushes the pending generator write, if any, to the sink.
func (c *Channel) Update() error {
	w, ok := c.UpdateGenerator()
	if !ok || c.sink == nil {
		return nil
	}
	if err := c.sink.SetFrequency(w.Hz()); err != nil {
		return fmt.Errorf("channel %d: set frequency: %w", c.id, err)
	}
	if w.HasPhase {
		if err := c.sink.SetPhase(w.Phase); err != nil {
			return fmt.Errorf("channel %d: set phase: %w", c.id, err)
		}
	}
	return nil
}

// Invalidate drops the generator cache so the next Update writes unconditionally.
func (c *Channel) Invalidate() {
	c.sent = false
	c.phaseSent = false
}

// Reset restores the power-on values and invalidates the generator cache.
func (c *Channel) Reset() { c.load(c.initial) }
