// Package tests holds the hardware self tests run from the control socket.
package tests

import (
	"fmt"

	"github.com/coreman2200/triplewave/internal/layout"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep" // one LED at a time, full brightness
	PanelFill  Kind = "panel_fill"  // panel filled row by row with solid cells, LEDs on
	Glyphs     Kind = "glyphs"      // every custom glyph across the panel
)

// ParseKind accepts the names above.
func ParseKind(v string) (Kind, bool) {
	switch k := Kind(v); k {
	case IndexSweep, PanelFill, Glyphs:
		return k, true
	}
	return None, false
}

const solid byte = 0xFF

var glyphCycle = []byte{1, 2, 3, 223}

type Plan struct{ Kind Kind }

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner { return &Runner{plan: plan} }
func (r *Runner) Kind() Kind      { return r.plan.Kind }

// Step fills one test frame into leds and rows. It returns false, leaving
// both untouched, once the test is complete.
func (r *Runner) Step(p layout.Panel, leds []uint8, rows []string) bool {
	n := len(leds)
	switch r.plan.Kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		clear(leds)
		leds[r.step] = 255
		fillRows(p, rows, func(int, int) byte { return ' ' })
		rows[0] = pad(p, fmt.Sprintf("LED %d/%d", r.step+1, n))
	case PanelFill:
		if r.step >= p.Rows {
			return false
		}
		for i := range leds {
			leds[i] = 255
		}
		fillRows(p, rows, func(_, row int) byte {
			if row <= r.step {
				return solid
			}
			return ' '
		})
	case Glyphs:
		if r.step >= 1 {
			return false
		}
		clear(leds)
		fillRows(p, rows, func(col, row int) byte {
			return glyphCycle[p.Index(col, row)%len(glyphCycle)]
		})
	default:
		return false
	}
	r.step++
	return true
}

func fillRows(p layout.Panel, rows []string, cell func(col, row int) byte) {
	for row := 0; row < len(rows) && row < p.Rows; row++ {
		b := make([]byte, p.Cols)
		for col := range b {
			b[col] = cell(col, row)
		}
		rows[row] = string(b)
	}
}

func pad(p layout.Panel, s string) string {
	for len(s) < p.Cols {
		s += " "
	}
	return s[:p.Cols]
}
