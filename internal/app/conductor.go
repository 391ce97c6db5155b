package app

import (
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/triplewave/internal/sequence"
	"github.com/coreman2200/triplewave/internal/tick"
)

// Conductor replays a script through a Controller on a hand-driven clock.
type Conductor struct {
	Ctl   *Controller
	Seq   *sequence.Player
	Clock *tick.Manual
}

func NewConductor(ctl *Controller, clock *tick.Manual) *Conductor {
	c := &Conductor{Ctl: ctl, Clock: clock}
	hooks := sequence.Hooks{
		Line: func(line string) {
			if err := ctl.Submit(Command{Op: OpLine, Line: line}); err != nil {
				log.Warn().Err(err).Str("line", line).Msg("script line dropped")
			}
		},
		Loop: func(n int) { log.Debug().Int("loop", n).Msg("script loop") },
	}
	c.Seq = sequence.NewPlayer(hooks)
	return c
}

// Run plays prog from the current clock time, polling every stepMs, until the
// script is done and tailMs more have passed. Looping scripts stop after maxMs.
func (c *Conductor) Run(prog sequence.Program, stepMs, tailMs, maxMs int) error {
	if stepMs <= 0 {
		stepMs = 2
	}
	if err := c.Seq.Load(prog); err != nil {
		return err
	}
	start := c.Clock.Now()
	c.Ctl.Start(start)
	c.Seq.Start(start)
	var doneAt tick.Millis
	finished := false
	for {
		now := c.Clock.Advance(stepMs)
		c.Seq.Tick(now)
		c.Ctl.Poll(now)
		if !finished && c.Seq.State == sequence.Done {
			finished = true
			doneAt = now
		}
		if finished && tick.Reached(now, doneAt.Add(tailMs)) {
			return nil
		}
		if maxMs > 0 && now.Since(start) >= uint32(maxMs) {
			return nil
		}
	}
}
