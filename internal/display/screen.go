// Package display composes channel frames onto the character panel and
// drives the panel sinks.
package display

import (
	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/layout"
)

// Panel glyph codes. 1-3 live in the LCD's CGRAM, 223 is the ROM degree sign.
const (
	GlyphLine    byte = 1
	GlyphDots    byte = 2
	GlyphFarDots byte = 3
	GlyphDegree  byte = 223
)

// Glyphs are the CGRAM bitmaps for the separator glyphs, indexed by code.
var Glyphs = map[byte][8]byte{
	GlyphLine:    {0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04},
	GlyphDots:    {0x04, 0x00, 0x04, 0x00, 0x04, 0x00, 0x04, 0x00},
	GlyphFarDots: {0x04, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00},
}

// separator is the glyph drawn between channels on each row, fading downwards.
func separator(row int) byte {
	switch row {
	case 0:
		return GlyphLine
	case 1:
		return GlyphDots
	}
	return GlyphFarDots
}

// Sink accepts a whole composed panel, one string of raw panel bytes per row.
type Sink interface {
	WriteRows(rows []string) error
	Close() error
}

// Screen lays channel frames out in columns.
type Screen struct {
	panel layout.Panel
}

func NewScreen(p layout.Panel) *Screen { return &Screen{panel: p} }

func (s *Screen) Panel() layout.Panel { return s.panel }

// Compose renders frames in order into panel rows. Numbers are right aligned,
// the state label centred; text wider than a column is written as is and
// clipped at the panel edge.
func (s *Screen) Compose(frames []channel.Frame) []string {
	rows := make([][]byte, s.panel.Rows)
	for r := range rows {
		rows[r] = make([]byte, s.panel.Cols)
		for c := range rows[r] {
			rows[r][c] = ' '
		}
	}
	w := s.panel.TextWidth()
	for i, f := range frames {
		col := s.panel.Column(i)
		put(rows[0], col, rightAlign(f.Frequency, w))
		put(rows[1], col, rightAlign(f.Step, w))
		put(rows[2], col, rightAlign(f.Phase, w-1)+string([]byte{GlyphDegree}))
		put(rows[3], col, center(f.State, w))
	}
	for _, c := range s.panel.Separators(len(frames)) {
		for r := range rows {
			rows[r][c] = separator(r)
		}
	}
	out := make([]string, len(rows))
	for r := range rows {
		out[r] = string(rows[r])
	}
	return out
}

func put(row []byte, col int, text string) {
	for i := 0; i < len(text) && col+i < len(row); i++ {
		row[col+i] = text[i]
	}
}

func rightAlign(text string, width int) string {
	if len(text) >= width {
		return text
	}
	b := make([]byte, width-len(text), width)
	for i := range b {
		b[i] = ' '
	}
	return string(append(b, text...))
}

func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	pad := (width - len(text)) / 2
	b := make([]byte, pad, width)
	for i := range b {
		b[i] = ' '
	}
	return string(append(b, text...))
}
