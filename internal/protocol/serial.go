package protocol

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// OpenSerial opens the named serial device at the given baud rate, 8N1.
func OpenSerial(dev string, baud int) (serial.Port, error) {
	mode := &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	p, err := serial.Open(dev, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", dev, err)
	}
	log.Info().Str("dev", dev).Int("baud", baud).Msg("serial port opened")
	return p, nil
}

// Writer emits encoded events, one line per Send.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Send(e Event) error {
	if _, err := io.WriteString(w.w, e.Encode()); err != nil {
		return fmt.Errorf("send %s: %w", e, err)
	}
	return nil
}
