// Package layout holds the character panel geometry the channels are laid out on.
package layout

import "fmt"

// Panel is a character display split into equal channel columns. Each column
// is ChannelWidth cells: text in all but the last, which holds the separator.
type Panel struct {
	Cols         int
	Rows         int
	ChannelWidth int
}

// Default is the 20x4 front panel with three 7 cell channels. That leaves six
// cells of text, so frequencies of 10 kHz and up ("10000.0") run one cell into
// the separator and the next channel, as they do on the original panel.
func Default() Panel { return Panel{Cols: 20, Rows: 4, ChannelWidth: 7} }

// Column is the first cell of channel i.
func (p Panel) Column(i int) int { return i * p.ChannelWidth }

// TextWidth is the widest value a channel can show.
func (p Panel) TextWidth() int { return p.ChannelWidth - 1 }

// Separators lists the separator columns between n channels.
func (p Panel) Separators(n int) []int {
	var out []int
	for i := 0; i < n-1; i++ {
		c := p.Column(i) + p.ChannelWidth - 1
		if c < p.Cols {
			out = append(out, c)
		}
	}
	return out
}

// Index maps col,row to a linear cell index (row major).
func (p Panel) Index(col, row int) int { return row*p.Cols + col }

// Check reports whether n channels fit on the panel.
func (p Panel) Check(n int) error {
	if p.Cols <= 0 || p.Rows < 4 || p.ChannelWidth < 2 {
		return fmt.Errorf("panel %dx%d with channel width %d: too small", p.Cols, p.Rows, p.ChannelWidth)
	}
	if need := n*p.ChannelWidth - 1; need > p.Cols {
		return fmt.Errorf("%d channels need %d columns, panel has %d", n, need, p.Cols)
	}
	return nil
}
