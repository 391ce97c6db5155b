// Command encoders runs on the encoder board: it polls the rotary encoders and
// buttons and writes one protocol line per event to the controller link.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/triplewave/internal/config"
	"github.com/coreman2200/triplewave/internal/input"
	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tick"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		serialDev  = flag.String("serial", "", "controller link device (overrides config)")
		stdout     = flag.Bool("stdout", false, "write lines to stdout instead of the serial link")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *serialDev != "" {
		cfg.Input.Serial = *serialDev
	}

	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("host init")
	}
	board, err := input.OpenBoard(cfg.Input.Slots, input.Timing{
		Debounce:        cfg.Input.DebounceMs,
		Repeat:          cfg.Input.RepeatMs,
		PulsesPerDetent: cfg.Input.PulsesPerDetent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("encoder board")
	}

	var out io.Writer = os.Stdout
	if !*stdout {
		port, err := protocol.OpenSerial(cfg.Input.Serial, cfg.Input.Baud)
		if err != nil {
			log.Fatal().Err(err).Msg("controller link")
		}
		defer port.Close()
		out = port
	}
	w := protocol.NewWriter(out)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info().Int("slots", len(cfg.Input.Slots)).Msg("polling encoders")
	board.Run(ctx, tick.NewSystem(), time.Duration(cfg.Input.PollMs)*time.Millisecond, func(e protocol.Event) error {
		log.Debug().Stringer("event", e).Msg("send")
		return w.Send(e)
	})
	log.Info().Msg("shutting down")
}
