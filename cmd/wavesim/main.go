// Command wavesim replays a yaml script of encoder lines through the controller
// with simulated generators and LEDs, printing the panel as it changes.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/triplewave/internal/app"
	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/config"
	"github.com/coreman2200/triplewave/internal/display"
	"github.com/coreman2200/triplewave/internal/driver/fake"
	"github.com/coreman2200/triplewave/internal/generator"
	"github.com/coreman2200/triplewave/internal/sequence"
	"github.com/coreman2200/triplewave/internal/tick"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional config.yaml (defaults otherwise)")
		script     = flag.String("script", "", "yaml script of {at_ms, line} steps")
		stepMs     = flag.Int("step-ms", 2, "simulated poll interval")
		tailMs     = flag.Int("tail-ms", 500, "keep polling this long after the last step")
		maxMs      = flag.Int("max-ms", 60000, "stop a looping script after this long")
		leds       = flag.Bool("leds", false, "print every LED frame")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("config")
		}
		cfg = c
	}
	cfg.Display.RefreshMs = 0

	prog := demo()
	if *script != "" {
		p, err := sequence.LoadFile(*script)
		if err != nil {
			log.Fatal().Err(err).Msg("script")
		}
		prog = p
	}

	hw := app.Hardware{
		LEDs:  &fake.LEDs{N: cfg.LEDCount(), Verbose: *leds, Keep: 1},
		Panel: display.NewTerminal(os.Stdout),
	}
	sims := make([]*generator.Sim, len(cfg.Channels))
	for i := range cfg.Channels {
		sims[i] = generator.NewSim(i)
		hw.Generators = append(hw.Generators, sims[i])
	}
	ctl, err := app.New(cfg, hw, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("controller")
	}
	c := app.NewConductor(ctl, tick.NewManual(0))
	if err := c.Run(prog, *stepMs, *tailMs, *maxMs); err != nil {
		log.Fatal().Err(err).Msg("run")
	}

	for i, s := range sims {
		hz, phase := s.Output()
		fmt.Printf("gen %d: %s Hz, phase %s°\n", i, channel.Decimal(int64(math.Round(hz*10))), channel.Decimal(int64(phase)))
	}
	s := ctl.Snapshot()
	fmt.Printf("events %d, dropped %d\n", s.Events, s.Dropped)
}

// demo unmutes channel 0, solos channel 1, links every channel and tunes them
// together, then resets.
func demo() sequence.Program {
	return sequence.Program{Version: "wave.v1", Steps: []sequence.Step{
		{AtMs: 0, Line: "01", Note: "ch0 normal"},
		{AtMs: 200, Line: "02"},
		{AtMs: 400, Line: "11", Note: "ch1 normal"},
		{AtMs: 600, Line: "11", Note: "ch1 solo"},
		{AtMs: 800, Line: "11", Note: "sync all"},
		{AtMs: 1000, Line: "22"},
		{AtMs: 1200, Line: "03", Note: "step up"},
		{AtMs: 1400, Line: "00"},
		{AtMs: 2000, Line: "30", Note: "reset"},
	}}
}
