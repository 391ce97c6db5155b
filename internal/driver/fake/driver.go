// Package fake holds recording sinks for headless runs and tests.
package fake

import (
	"fmt"
	"strings"
)

// LEDs records every frame written to an LED bank. With Verbose set it also
// prints a compact summary of each frame. Keep bounds the retained history.
type LEDs struct {
	N       int
	Verbose bool
	Keep    int
	Frames  [][]uint8
	Writes  int
	Closed  bool
}

func (d *LEDs) Len() int { return d.N }

func (d *LEDs) Write(levels []uint8) error {
	if len(levels) != d.N {
		return fmt.Errorf("fake leds: got %d levels for %d", len(levels), d.N)
	}
	d.Writes++
	d.Frames = append(d.Frames, append([]uint8(nil), levels...))
	if d.Keep > 0 && len(d.Frames) > d.Keep {
		d.Frames = append(d.Frames[:0], d.Frames[len(d.Frames)-d.Keep:]...)
	}
	if d.Verbose {
		var b strings.Builder
		for _, lv := range levels {
			if lv > 0 {
				b.WriteByte('*')
			} else {
				b.WriteByte('.')
			}
		}
		fmt.Printf("[leds %04d] %s\n", d.Writes, b.String())
	}
	return nil
}

func (d *LEDs) Close() error {
	d.Closed = true
	return nil
}

// Last is the most recent frame, all dark before the first write.
func (d *LEDs) Last() []uint8 {
	if len(d.Frames) == 0 {
		return make([]uint8, d.N)
	}
	return d.Frames[len(d.Frames)-1]
}

// Lit lists the indexes of the LEDs lit in the most recent frame.
func (d *LEDs) Lit() []int {
	var out []int
	for i, lv := range d.Last() {
		if lv > 0 {
			out = append(out, i)
		}
	}
	return out
}

// GeneratorCall is one recorded generator write.
type GeneratorCall struct {
	Op    string // "freq" or "phase"
	Hz    float64
	Phase int
}

// Generator records frequency and phase writes. Err, when set, is returned
// from every call after recording it.
type Generator struct {
	Calls []GeneratorCall
	Err   error
}

func (g *Generator) SetFrequency(hz float64) error {
	g.Calls = append(g.Calls, GeneratorCall{Op: "freq", Hz: hz})
	return g.Err
}

func (g *Generator) SetPhase(tenths int) error {
	g.Calls = append(g.Calls, GeneratorCall{Op: "phase", Phase: tenths})
	return g.Err
}

// Frequency is the last frequency written, ok false before any.
func (g *Generator) Frequency() (float64, bool) {
	for i := len(g.Calls) - 1; i >= 0; i-- {
		if g.Calls[i].Op == "freq" {
			return g.Calls[i].Hz, true
		}
	}
	return 0, false
}

func (g *Generator) Reset() { g.Calls = nil }

// Panel records composed panel rows.
type Panel struct {
	Writes [][]string
	Closed bool
}

func (p *Panel) WriteRows(rows []string) error {
	p.Writes = append(p.Writes, append([]string(nil), rows...))
	return nil
}

func (p *Panel) Close() error {
	p.Closed = true
	return nil
}

// Rows is the last composed panel, nil before the first write.
func (p *Panel) Rows() []string {
	if len(p.Writes) == 0 {
		return nil
	}
	return p.Writes[len(p.Writes)-1]
}
