package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/coreman2200/triplewave/internal/app"
	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/config"
	"github.com/coreman2200/triplewave/internal/diagnostics"
	"github.com/coreman2200/triplewave/internal/display"
	"github.com/coreman2200/triplewave/internal/driver/fake"
	"github.com/coreman2200/triplewave/internal/generator"
	"github.com/coreman2200/triplewave/internal/led"
)

// lcdBlinkCode is flashed on the status pin when the panel cannot be reached.
const lcdBlinkCode = 3

var errPanel = errors.New("panel init failed")

type rig struct {
	hw      app.Hardware
	closers []io.Closer
	drivers string
}

func (r *rig) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

// openHardware picks every sink from cfg, falling back to simulation for the
// generators and LEDs. A missing LCD is returned as errPanel.
func openHardware(cfg *config.Config, sim bool, onDiag diagnostics.Sink) (*rig, error) {
	r := &rig{}
	genDrv, ledDrv, dispDrv := cfg.Generator.Driver, cfg.LEDs.Driver, cfg.Display.Driver
	if sim {
		genDrv, ledDrv, dispDrv = "sim", "sim", "terminal"
	}

	gens, gname, err := openGenerators(cfg, genDrv, r)
	if err != nil {
		log.Warn().Err(err).Str("driver", genDrv).Msg("generator init failed; falling back to SIM")
		onDiag(fallback("generator", err))
		gens, gname, _ = openGenerators(cfg, "sim", r)
	}
	r.hw.Generators = gens

	leds, lname, err := openLEDs(cfg, ledDrv, r)
	if err != nil {
		log.Warn().Err(err).Str("driver", ledDrv).Msg("LED init failed; falling back to SIM")
		onDiag(fallback("leds", err))
		leds, lname, _ = openLEDs(cfg, "sim", r)
	}
	r.hw.LEDs = leds

	switch dispDrv {
	case "lcd":
		bus, err := i2creg.Open(cfg.Display.Bus)
		if err != nil {
			return r, fmt.Errorf("%w: %v", errPanel, err)
		}
		r.closers = append(r.closers, bus)
		lcd, err := display.NewLCD(bus, cfg.Display.Addr, cfg.Panel())
		if err != nil {
			return r, fmt.Errorf("%w: %v", errPanel, err)
		}
		r.hw.Panel = lcd
	case "terminal":
		r.hw.Panel = display.NewTerminal(os.Stdout)
	case "none", "":
	default:
		return r, fmt.Errorf("unknown display driver %q", dispDrv)
	}
	r.drivers = fmt.Sprintf("gen=%s leds=%s display=%s", gname, lname, dispDrv)
	return r, nil
}

func openGenerators(cfg *config.Config, drv string, r *rig) ([]channel.GeneratorSink, string, error) {
	out := make([]channel.GeneratorSink, len(cfg.Channels))
	switch drv {
	case "sim":
		for i := range out {
			out[i] = generator.NewSim(i)
		}
		return out, "sim", nil
	case "spi":
	default:
		return nil, drv, fmt.Errorf("unknown generator driver %q", drv)
	}
	p, err := spireg.Open(cfg.Generator.Port)
	if err != nil {
		return nil, drv, err
	}
	port := generator.NewSharedPort(p)
	opts := generator.Opts{
		MCLK:    physic.Frequency(cfg.Generator.MCLKHz) * physic.Hertz,
		SPIFreq: physic.Frequency(cfg.Generator.SPIHz) * physic.Hertz,
	}
	chips := make([]io.Closer, 0, len(out))
	for i, ch := range cfg.Channels {
		var fsync gpio.PinOut
		if ch.FSync != "" {
			pin := gpioreg.ByName(ch.FSync)
			if pin == nil {
				p.Close()
				return nil, drv, fmt.Errorf("channel %d: fsync pin %q not found", i, ch.FSync)
			}
			fsync = pin
		}
		opts.Mode = ch.Mode
		d, err := generator.New(port, fsync, opts)
		if err != nil {
			p.Close()
			return nil, drv, fmt.Errorf("channel %d: %w", i, err)
		}
		out[i] = d
		chips = append(chips, d)
	}
	// Closed in reverse, so every chip is halted before the port goes.
	r.closers = append(r.closers, p)
	r.closers = append(r.closers, chips...)
	return out, drv, nil
}

func openLEDs(cfg *config.Config, drv string, r *rig) (led.Driver, string, error) {
	n := cfg.LEDCount()
	switch drv {
	case "gpio":
		d, err := led.OpenGPIO(cfg.LEDs.Pins, physic.Frequency(cfg.LEDs.PWMHz)*physic.Hertz)
		return d, drv, err
	case "nrz":
		p, err := spireg.Open(cfg.LEDs.SPIPort)
		if err != nil {
			return nil, drv, err
		}
		d, err := led.NewNRZ(p, n, nil)
		if err != nil {
			p.Close()
			return nil, drv, err
		}
		r.closers = append(r.closers, p)
		return d, drv, nil
	case "screen":
		return led.NewScreen(n, nil), drv, nil
	case "sim":
		return &fake.LEDs{N: n, Keep: 1}, drv, nil
	}
	return nil, drv, fmt.Errorf("unknown led driver %q", drv)
}

func fallback(what string, err error) diagnostics.Diagnostic {
	return diagnostics.Diagnostic{
		Severity: diagnostics.Warn,
		Code:     diagnostics.CodeDriver,
		Summary:  what + " hardware unavailable, simulating",
		Detail:   err.Error(),
	}
}

// signalPanelFailure blinks the fatal code on the status pin until ctx ends.
func signalPanelFailure(ctx context.Context, cfg *config.Config) {
	pin := gpioreg.ByName(cfg.Display.StatusPin)
	if pin == nil {
		log.Error().Str("pin", cfg.Display.StatusPin).Msg("status pin not found; waiting for signal")
		<-ctx.Done()
		return
	}
	_ = diagnostics.NewBlinker(pin).Signal(ctx, lcdBlinkCode)
}
