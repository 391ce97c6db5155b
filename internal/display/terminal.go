package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var glyphRunes = map[byte]rune{
	GlyphLine:    '│',
	GlyphDots:    '┊',
	GlyphFarDots: '╎',
	GlyphDegree:  '°',
}

// Terminal prints the panel in a box whenever it changes.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	style lipgloss.Style
	last  string
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w: w,
		style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f87af")).
			Foreground(lipgloss.Color("#87d787")).
			Padding(0, 1),
	}
}

// Text maps raw panel bytes to printable runes.
func Text(row string) string {
	var b strings.Builder
	for i := 0; i < len(row); i++ {
		if r, ok := glyphRunes[row[i]]; ok {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(row[i])
	}
	return b.String()
}

func (t *Terminal) WriteRows(rows []string) error {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = Text(r)
	}
	body := strings.Join(lines, "\n")
	t.mu.Lock()
	defer t.mu.Unlock()
	if body == t.last {
		return nil
	}
	t.last = body
	_, err := fmt.Fprintln(t.w, t.style.Render(body))
	return err
}

func (t *Terminal) Close() error { return nil }
