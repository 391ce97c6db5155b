package app

import (
	"fmt"

	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/config"
	"github.com/coreman2200/triplewave/internal/diagnostics"
	"github.com/coreman2200/triplewave/internal/display"
	"github.com/coreman2200/triplewave/internal/led"
)

// Hardware is the set of sinks the controller drives. Generators holds one
// sink per configured channel, in channel order.
type Hardware struct {
	Generators []channel.GeneratorSink
	LEDs       led.Driver
	Panel      display.Sink
}

// Options tunes a Controller beyond what the config file carries.
type Options struct {
	Lines  <-chan string
	OnDiag diagnostics.Sink
	Queue  int
	// Anim overrides the Animator options; Intensity defaults to the config's.
	Anim led.Options
}

// New builds the channel group and animation from cfg over hw.
func New(cfg *config.Config, hw Hardware, opts Options) (*Controller, error) {
	ccs := cfg.ChannelConfigs()
	if len(hw.Generators) != len(ccs) {
		return nil, fmt.Errorf("app: %d generators for %d channels", len(hw.Generators), len(ccs))
	}
	chs := make([]*channel.Channel, len(ccs))
	for i, cc := range ccs {
		ch, err := channel.New(cc, hw.Generators[i])
		if err != nil {
			return nil, err
		}
		chs[i] = ch
	}
	g, err := channel.NewGroup(chs...)
	if err != nil {
		return nil, err
	}
	if opts.Anim.Intensity == nil {
		opts.Anim.Intensity = cfg.LEDIntensity()
	}
	if opts.OnDiag == nil {
		opts.OnDiag = diagnostics.Discard
	}
	if opts.Queue <= 0 {
		opts.Queue = 32
	}
	c := &Controller{
		group:   g,
		anim:    led.NewAnimator(hw.LEDs, opts.Anim),
		screen:  display.NewScreen(cfg.Panel()),
		panel:   hw.Panel,
		lines:   opts.Lines,
		cmds:    make(chan Command, opts.Queue),
		diag:    opts.OnDiag,
		style:   cfg.Animation.Style,
		show:    cfg.Animation.ShowMs,
		blank:   cfg.Animation.BlankMs,
		flashMs: cfg.Animation.FlashMs,
		refresh: cfg.Display.RefreshMs,
	}
	return c, nil
}
