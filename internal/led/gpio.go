package led

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// DefaultPWMFrequency is fast enough that dimmed panel LEDs do not flicker.
const DefaultPWMFrequency = 1 * physic.KiloHertz

// GPIODriver drives one pin per LED: full and dark levels are plain writes,
// anything in between is PWM.
type GPIODriver struct {
	pins   []gpio.PinOut
	freq   physic.Frequency
	lut    [256]gpio.Duty
	last   []uint8
	synced bool
	noPWM  []bool
}

func NewGPIO(pins []gpio.PinOut, freq physic.Frequency) *GPIODriver {
	if freq == 0 {
		freq = DefaultPWMFrequency
	}
	return &GPIODriver{
		pins:  pins,
		freq:  freq,
		lut:   BuildDutyLUT(1),
		last:  make([]uint8, len(pins)),
		noPWM: make([]bool, len(pins)),
	}
}

// OpenGPIO resolves pins by name through the periph registry. host.Init must have run.
func OpenGPIO(names []string, freq physic.Frequency) (*GPIODriver, error) {
	pins := make([]gpio.PinOut, len(names))
	for i, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("led pin %q: not found", n)
		}
		pins[i] = p
	}
	return NewGPIO(pins, freq), nil
}

func (d *GPIODriver) Len() int { return len(d.pins) }

func (d *GPIODriver) Write(levels []uint8) error {
	if len(levels) != len(d.pins) {
		return fmt.Errorf("led frame: got %d levels for %d pins", len(levels), len(d.pins))
	}
	var errs []error
	for i, lv := range levels {
		if d.synced && d.last[i] == lv {
			continue
		}
		if err := d.set(i, lv); err != nil {
			errs = append(errs, err)
			continue
		}
		d.last[i] = lv
	}
	d.synced = true
	return errors.Join(errs...)
}

func (d *GPIODriver) set(i int, lv uint8) error {
	p := d.pins[i]
	switch {
	case lv == 0:
		return p.Out(gpio.Low)
	case lv == 255 || d.noPWM[i]:
		return p.Out(gpio.High)
	}
	if err := p.PWM(d.lut[lv], d.freq); err != nil {
		// Some pins cannot PWM; light them fully from now on.
		log.Warn().Err(err).Str("pin", p.Name()).Msg("pwm unavailable, using on/off")
		d.noPWM[i] = true
		return p.Out(gpio.High)
	}
	return nil
}

func (d *GPIODriver) Close() error {
	var errs []error
	for _, p := range d.pins {
		if err := p.Out(gpio.Low); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
