// Package generator drives AD9833 waveform generators, one per channel.
package generator

import (
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/coreman2200/triplewave/internal/channel"
)

// Control register bits.
const (
	regB28   uint16 = 1 << 13
	regReset uint16 = 1 << 8
	regOpbEn uint16 = 1 << 5
	regDiv2  uint16 = 1 << 3
	regMode  uint16 = 1 << 1

	freq0Reg  uint16 = 0x4000
	phase0Reg uint16 = 0xC000
)

const (
	DefaultMCLK    = 25 * physic.MegaHertz
	DefaultSPIFreq = 1 * physic.MegaHertz
)

// ModeBits returns the control register bits selecting a waveform.
func ModeBits(m channel.Mode) uint16 {
	switch m {
	case channel.Triangle:
		return regMode
	case channel.Square:
		return regOpbEn | regDiv2
	case channel.HalfSquare:
		return regOpbEn
	}
	return 0
}

// FrequencyWord converts hertz into the 28 bit FREQ register value for a master clock.
func FrequencyWord(hz float64, mclk physic.Frequency) uint32 {
	if hz <= 0 {
		return 0
	}
	w := math.Round(hz * (1 << 28) / (float64(mclk) / float64(physic.Hertz)))
	if w > (1<<28)-1 {
		w = (1 << 28) - 1
	}
	return uint32(w)
}

// PhaseWord converts tenths of a degree into the 12 bit PHASE register value.
func PhaseWord(tenths int) uint16 {
	tenths %= channel.MaxPhase
	if tenths < 0 {
		tenths += channel.MaxPhase
	}
	return uint16(tenths * 4096 / channel.MaxPhase)
}

type Opts struct {
	MCLK    physic.Frequency
	SPIFreq physic.Frequency
	Mode    channel.Mode
}

// AD9833 is a channel.GeneratorSink on an SPI port. When fsync is set the
// port's own chip select is left alone and fsync frames each word.
type AD9833 struct {
	mu    sync.Mutex
	c     spi.Conn
	fsync gpio.PinOut
	mclk  physic.Frequency
	mode  channel.Mode
	buf   [2]byte
}

// New connects to port, resets the chip and leaves it running at 0 Hz.
func New(port spi.Port, fsync gpio.PinOut, opts Opts) (*AD9833, error) {
	if opts.MCLK == 0 {
		opts.MCLK = DefaultMCLK
	}
	if opts.SPIFreq == 0 {
		opts.SPIFreq = DefaultSPIFreq
	}
	mode := spi.Mode2
	if fsync != nil {
		mode |= spi.NoCS
	}
	c, err := port.Connect(opts.SPIFreq, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("ad9833 connect: %w", err)
	}
	d := &AD9833{c: c, fsync: fsync, mclk: opts.MCLK, mode: opts.Mode}
	if fsync != nil {
		if err := fsync.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("ad9833 fsync: %w", err)
		}
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *AD9833) String() string { return fmt.Sprintf("ad9833{%s}", d.c) }

func (d *AD9833) init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(
		regB28|regReset,
		freq0Reg, freq0Reg,
		phase0Reg,
		regB28|ModeBits(d.mode),
	)
}

// SetFrequency programs FREQ0 in hertz.
func (d *AD9833) SetFrequency(hz float64) error {
	w := FrequencyWord(hz, d.mclk)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(
		regB28|ModeBits(d.mode),
		freq0Reg|uint16(w&0x3FFF),
		freq0Reg|uint16((w>>14)&0x3FFF),
	)
}

// SetPhase programs PHASE0 in tenths of a degree.
func (d *AD9833) SetPhase(tenths int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(phase0Reg | (PhaseWord(tenths) & 0x0FFF))
}

// Halt holds the DAC in reset, silencing the output.
func (d *AD9833) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(regB28 | regReset | ModeBits(d.mode))
}

// Close halts the chip so it stays silent once the controller exits. The
// shared port is left open for its owner to close.
func (d *AD9833) Close() error { return d.Halt() }

func (d *AD9833) write(words ...uint16) error {
	for _, w := range words {
		d.buf[0], d.buf[1] = byte(w>>8), byte(w)
		if d.fsync != nil {
			if err := d.fsync.Out(gpio.Low); err != nil {
				return fmt.Errorf("ad9833 fsync: %w", err)
			}
		}
		err := d.c.Tx(d.buf[:], nil)
		if d.fsync != nil {
			if ferr := d.fsync.Out(gpio.High); err == nil && ferr != nil {
				err = ferr
			}
		}
		if err != nil {
			return fmt.Errorf("ad9833 write %#04x: %w", w, err)
		}
	}
	return nil
}

var _ channel.GeneratorSink = (*AD9833)(nil)
