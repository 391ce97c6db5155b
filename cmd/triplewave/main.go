package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/triplewave/internal/app"
	"github.com/coreman2200/triplewave/internal/config"
	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tick"
	"github.com/coreman2200/triplewave/internal/ws"
)

func main() {
	// ---- Flags (config.yaml overrides where set) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		serialDev  = flag.String("serial", "", "encoder board serial device (overrides config)")
		sim        = flag.Bool("sim", false, "simulate every sink and read encoder lines from stdin")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if *serialDev != "" {
		cfg.Input.Serial = *serialDev
	}
	if cfg.Listen != "" && !isFlagSet("addr") {
		*addr = cfg.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*sim {
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("host init failed; simulating")
			*sim = true
		}
	}

	state := ws.NewState(nil, cfg, *configPath)
	hw, err := openHardware(cfg, *sim, state.PushDiag)
	if errors.Is(err, errPanel) {
		log.Error().Err(err).Msg("display missing; signalling")
		signalPanelFailure(ctx, cfg)
		hw.Close()
		os.Exit(1)
	}
	if err != nil {
		hw.Close()
		log.Fatal().Err(err).Msg("hardware")
	}
	defer hw.Close()
	state.CurrentDriver = hw.drivers

	// ---- Encoder lines ----
	var src io.Reader
	if *sim {
		src = os.Stdin
	} else if port, err := protocol.OpenSerial(cfg.Input.Serial, cfg.Input.Baud); err != nil {
		log.Warn().Err(err).Msg("encoder link unavailable; control socket only")
	} else {
		defer port.Close()
		src = port
	}
	var lines <-chan string
	if src != nil {
		r := protocol.NewReader(src, 64)
		go r.Run(ctx)
		lines = r.Lines()
	}

	ctl, err := app.New(cfg, hw.hw, app.Options{Lines: lines, OnDiag: state.PushDiag})
	if err != nil {
		log.Fatal().Err(err).Msg("controller")
	}
	state.Ctl = ctl

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/status", state.HandleStatusWS)
	mux.HandleFunc("/diag", state.HandleDiagWS)
	mux.HandleFunc("/control", state.HandleControlWS)
	mux.HandleFunc("/health", state.HandleHealth)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run poll loop, status loop & server ----
	go state.RunStatusLoop(ctx.Done(), 100*time.Millisecond)
	go state.RunDiagLoop(ctx.Done())
	go func() {
		log.Info().Str("addr", *addr).Str("drivers", hw.drivers).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	poll := time.Duration(cfg.PollMs) * time.Millisecond
	if err := ctl.Run(ctx, tick.NewSystem(), poll); err != nil {
		log.Warn().Err(err).Msg("close sinks")
	}

	// ---- Graceful shutdown ----
	log.Info().Msg("shutting down")
	shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
