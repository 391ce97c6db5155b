package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/layout"
)

func frames() []channel.Frame {
	return []channel.Frame{
		{ID: 0, Frequency: "523.3", Step: "10.0", Phase: "0.0", State: "Mute"},
		{ID: 1, Frequency: "659.3", Step: "10.0", Phase: "90.5", State: "Solo"},
		{ID: 2, Frequency: "12345.6", Step: "1000.0", Phase: "359.9", State: "Sync"},
	}
}

func TestCompose(t *testing.T) {
	rows := NewScreen(layout.Default()).Compose(frames())
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Len(t, r, 20)
	}
	line, dots, far, deg := "\x01", "\x02", "\x03", "\xdf"
	assert.Equal(t, " 523.3"+line+" 659.3"+line+"12345.", rows[0], "overflow clipped at the edge")
	assert.Equal(t, "  10.0"+dots+"  10.0"+dots+"1000.0", rows[1])
	assert.Equal(t, "  0.0"+deg+far+" 90.5"+deg+far+"359.9"+deg, rows[2])
	assert.Equal(t, " Mute "+far+" Solo "+far+" Sync ", rows[3])
}

func TestComposeOverflowIntoSeparator(t *testing.T) {
	f := frames()
	f[0].Frequency = "1250000.0"
	rows := NewScreen(layout.Default()).Compose(f[:2])
	assert.Equal(t, "125000"+"\x01"+" 659.3"+strings.Repeat(" ", 7), rows[0], "separator and next channel win")
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	rows := NewScreen(layout.Default()).Compose(frames())
	require.NoError(t, term.WriteRows(rows))
	out := buf.String()
	assert.Contains(t, out, "523.3│")
	assert.Contains(t, out, "0.0°╎")
	n := buf.Len()
	require.NoError(t, term.WriteRows(rows))
	assert.Equal(t, n, buf.Len(), "unchanged panel is not reprinted")
	assert.Equal(t, "a│b", Text("a\x01b"))
}

func nop(time.Duration) {}

func TestLCDInit(t *testing.T) {
	rec := &i2ctest.Record{}
	l, err := newLCD(rec, 0, layout.Default(), nop)
	require.NoError(t, err)
	assert.Equal(t, "hd44780{record(39)}", l.String())
	require.Len(t, rec.Ops, 4+4+3*9)
	assert.Equal(t, uint16(DefaultLCDAddr), rec.Ops[0].Addr)
	assert.Equal(t, []byte{0x3C, 0x38}, rec.Ops[0].W)
	assert.Equal(t, []byte{0x2C, 0x28}, rec.Ops[3].W)
	// function set 0x28
	assert.Equal(t, []byte{0x2C, 0x28, 0x8C, 0x88}, rec.Ops[4].W)
	// CGRAM address for glyph 1
	assert.Equal(t, []byte{0x4C, 0x48, 0x8C, 0x88}, rec.Ops[8].W)
}

func TestLCDWritesChangedRows(t *testing.T) {
	rec := &i2ctest.Record{}
	l, err := newLCD(rec, 0x3F, layout.Default(), nop)
	require.NoError(t, err)
	rec.Ops = nil

	rows := []string{"A", "B", "C", "D"}
	require.NoError(t, l.WriteRows(rows))
	assert.Len(t, rec.Ops, 4*21)
	assert.Equal(t, uint16(0x3F), rec.Ops[0].Addr)
	assert.Equal(t, []byte{0x8C, 0x88, 0x0C, 0x08}, rec.Ops[0].W, "cursor row 0")
	assert.Equal(t, []byte{0x4D, 0x49, 0x1D, 0x19}, rec.Ops[1].W, "data 'A'")
	assert.Equal(t, []byte{0xCC, 0xC8, 0x0C, 0x08}, rec.Ops[21].W, "cursor row 1")

	rec.Ops = nil
	require.NoError(t, l.WriteRows(rows))
	assert.Empty(t, rec.Ops)

	rows[2] = strings.Repeat("x", 30)
	require.NoError(t, l.WriteRows(rows))
	assert.Len(t, rec.Ops, 21, "only the changed row, clipped to the panel width")

	rec.Ops = nil
	require.NoError(t, l.Close())
	assert.Equal(t, []byte{0}, rec.Ops[len(rec.Ops)-1].W)
}
