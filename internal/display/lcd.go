package display

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/coreman2200/triplewave/internal/layout"
)

// DefaultLCDAddr is the usual PCF8574 backpack address.
const DefaultLCDAddr = 0x27

// PCF8574 pin assignment on the common backpack.
const (
	pinRS        byte = 0x01
	pinEn        byte = 0x04
	pinBacklight byte = 0x08
)

// HD44780 commands.
const (
	cmdClear     byte = 0x01
	cmdEntryMode byte = 0x06 // increment, no shift
	cmdDisplayOn byte = 0x0C // display on, cursor off, blink off
	cmdFunction4 byte = 0x28 // 4 bit, 2 line, 5x8
	cmdSetCGRAM  byte = 0x40
	cmdSetDDRAM  byte = 0x80
)

var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// LCD is an HD44780 character display behind a PCF8574 I2C expander, driven
// in 4 bit mode. Only rows that changed since the last write are resent.
type LCD struct {
	mu        sync.Mutex
	d         *i2c.Dev
	panel     layout.Panel
	backlight byte
	shown     []string
	sleep     func(time.Duration)
}

// NewLCD initialises the display and loads the separator glyphs. A failure
// here means no panel is attached.
func NewLCD(bus i2c.Bus, addr uint16, p layout.Panel) (*LCD, error) {
	return newLCD(bus, addr, p, time.Sleep)
}

func newLCD(bus i2c.Bus, addr uint16, p layout.Panel, sleep func(time.Duration)) (*LCD, error) {
	if addr == 0 {
		addr = DefaultLCDAddr
	}
	if p.Rows > len(rowOffsets) {
		return nil, fmt.Errorf("lcd: %d rows unsupported", p.Rows)
	}
	l := &LCD{
		d:         &i2c.Dev{Bus: bus, Addr: addr},
		panel:     p,
		backlight: pinBacklight,
		shown:     make([]string, p.Rows),
		sleep:     sleep,
	}
	if err := l.init(); err != nil {
		return nil, fmt.Errorf("lcd init at %#x: %w", addr, err)
	}
	return l, nil
}

func (l *LCD) String() string { return fmt.Sprintf("hd44780{%s}", l.d) }

func (l *LCD) init() error {
	l.sleep(50 * time.Millisecond)
	for i, n := range []byte{0x03, 0x03, 0x03, 0x02} {
		if err := l.nibble(n, 0); err != nil {
			return err
		}
		if i == 0 {
			l.sleep(5 * time.Millisecond)
		} else {
			l.sleep(150 * time.Microsecond)
		}
	}
	for _, c := range []byte{cmdFunction4, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := l.command(c); err != nil {
			return err
		}
	}
	for _, code := range []byte{GlyphLine, GlyphDots, GlyphFarDots} {
		if err := l.createChar(code, Glyphs[code]); err != nil {
			return err
		}
	}
	return nil
}

func (l *LCD) createChar(loc byte, bitmap [8]byte) error {
	if err := l.command(cmdSetCGRAM | (loc&0x07)<<3); err != nil {
		return err
	}
	for _, b := range bitmap {
		if err := l.send(b, pinRS); err != nil {
			return err
		}
	}
	return nil
}

// nibble clocks the low four bits of n in with one enable pulse.
func (l *LCD) nibble(n, mode byte) error {
	v := n<<4 | l.backlight | mode
	_, err := l.d.Write([]byte{v | pinEn, v})
	return err
}

// send writes a full byte as two pulsed nibbles in one transaction.
func (l *LCD) send(b, mode byte) error {
	hi := b&0xF0 | l.backlight | mode
	lo := b<<4 | l.backlight | mode
	_, err := l.d.Write([]byte{hi | pinEn, hi, lo | pinEn, lo})
	return err
}

func (l *LCD) command(c byte) error {
	if err := l.send(c, 0); err != nil {
		return err
	}
	if c == cmdClear {
		l.sleep(2 * time.Millisecond)
	}
	return nil
}

func (l *LCD) setCursor(col, row int) error {
	return l.command(cmdSetDDRAM | (byte(col) + rowOffsets[row]))
}

// WriteRows sends every row that differs from what is on the glass.
func (l *LCD) WriteRows(rows []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for r := 0; r < len(rows) && r < l.panel.Rows; r++ {
		text := fit(rows[r], l.panel.Cols)
		if text == l.shown[r] {
			continue
		}
		if err := l.setCursor(0, r); err != nil {
			return fmt.Errorf("lcd row %d: %w", r, err)
		}
		for i := 0; i < len(text); i++ {
			if err := l.send(text[i], pinRS); err != nil {
				l.shown[r] = ""
				return fmt.Errorf("lcd row %d: %w", r, err)
			}
		}
		l.shown[r] = text
	}
	return nil
}

func fit(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	for len(s) < n {
		s += " "
	}
	return s
}

// Close blanks the display and turns the backlight off.
func (l *LCD) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.command(cmdClear); err != nil {
		return err
	}
	l.backlight = 0
	_, err := l.d.Write([]byte{0})
	return err
}
