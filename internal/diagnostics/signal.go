package diagnostics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

// Blinker flashes an error code on a status LED: code short blinks, then a
// long pause, over and over.
type Blinker struct {
	Pin   gpio.PinOut
	On    time.Duration
	Off   time.Duration
	Pause time.Duration
}

func NewBlinker(pin gpio.PinOut) *Blinker {
	return &Blinker{Pin: pin, On: 200 * time.Millisecond, Off: 200 * time.Millisecond, Pause: 1500 * time.Millisecond}
}

// Signal repeats the blink code until ctx is done. It is the terminal state
// for a controller that cannot show its panel; it only returns on cancel.
func (b *Blinker) Signal(ctx context.Context, code int) error {
	if code <= 0 {
		code = 1
	}
	log.Error().Int("code", code).Str("pin", b.Pin.Name()).Msg("fatal, signalling")
	defer b.Pin.Out(gpio.Low)
	for {
		for i := 0; i < code; i++ {
			if err := b.Pin.Out(gpio.High); err != nil {
				return err
			}
			if !sleep(ctx, b.On) {
				return ctx.Err()
			}
			if err := b.Pin.Out(gpio.Low); err != nil {
				return err
			}
			if !sleep(ctx, b.Off) {
				return ctx.Err()
			}
		}
		if !sleep(ctx, b.Pause) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
