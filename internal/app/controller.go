// Package app is the poll loop: it routes encoder events and control commands to
// the channel group and keeps the generators, LEDs and panel in step with it.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/diagnostics"
	"github.com/coreman2200/triplewave/internal/display"
	"github.com/coreman2200/triplewave/internal/led"
	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tests"
	"github.com/coreman2200/triplewave/internal/tick"
)

// Status is a point-in-time copy of the controller for monitors.
type Status struct {
	Channels []channel.Frame `json:"channels"`
	Synced   bool            `json:"synced"`
	Active   int             `json:"active"`
	Style    string          `json:"style"`
	Flash    string          `json:"flash"`
	Test     string          `json:"test,omitempty"`
	Rows     []string        `json:"rows"`
	Levels   []int           `json:"levels"`
	Events   uint64          `json:"events"`
	Dropped  uint64          `json:"dropped"`
}

// Controller owns every channel, the animator and the panel. Poll, Start and
// Close must be called from one goroutine; Submit and Snapshot are safe from any.
type Controller struct {
	group  *channel.Group
	anim   *led.Animator
	screen *display.Screen
	panel  display.Sink
	lines  <-chan string
	cmds   chan Command
	diag   diagnostics.Sink

	style   led.Style
	show    int
	blank   int
	flashMs int
	refresh int

	mask     []bool
	flashing bool
	rows     []string
	dirty    bool
	nextDraw tick.Millis

	test     *tests.Runner
	testNext tick.Millis

	events  uint64
	dropped uint64

	mu   sync.Mutex
	snap Status
}

func (c *Controller) Group() *channel.Group { return c.group }

// Start programs every generator with its initial settings, composes the
// first panel and starts the animation.
func (c *Controller) Start(now tick.Millis) {
	c.group.Invalidate()
	c.propagate()
	c.render()
	c.restartAnimation(now)
	c.refreshDisplay(now)
	c.publish()
}

// Poll runs one cooperative tick: animation, display refresh, input, dispatch.
func (c *Controller) Poll(now tick.Millis) {
	c.stepLEDs(now)
	c.refreshDisplay(now)
	for _, cmd := range c.drain() {
		c.execute(now, cmd)
	}
	c.publish()
}

func (c *Controller) stepLEDs(now tick.Millis) {
	if c.test != nil {
		c.stepTest(now)
		return
	}
	if c.flashing {
		if c.anim.StepFlash(now) {
			return
		}
		c.flashing = false
		c.restartAnimation(now)
	}
	c.anim.Step(now)
}

// restartAnimation begins the animation over the audible channels.
func (c *Controller) restartAnimation(now tick.Millis) {
	c.mask = c.group.Audible()
	c.anim.Begin(now, c.style, c.show, c.blank, c.mask)
}

func (c *Controller) refreshDisplay(now tick.Millis) {
	if !c.dirty || c.test != nil || c.panel == nil {
		return
	}
	if c.refresh > 0 && !tick.Reached(now, c.nextDraw) {
		return
	}
	c.dirty = false
	c.nextDraw = now.Add(c.refresh)
	if err := c.panel.WriteRows(c.rows); err != nil {
		log.Warn().Err(err).Msg("panel write")
		c.raise(diagnostics.Warn, diagnostics.CodeDisplay, "panel write failed", err)
	}
}

// drain collects every pending line and command without blocking. A closed
// line source is dropped.
func (c *Controller) drain() []Command {
	var out []Command
	for c.lines != nil {
		select {
		case line, ok := <-c.lines:
			if !ok {
				c.lines = nil
				continue
			}
			out = append(out, Command{Op: OpLine, Line: line})
			continue
		default:
		}
		break
	}
	for {
		select {
		case cmd := <-c.cmds:
			out = append(out, cmd)
		default:
			return out
		}
	}
}

// Submit queues cmd for the next poll.
func (c *Controller) Submit(cmd Command) error {
	select {
	case c.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Controller) execute(now tick.Millis, cmd Command) {
	var err error
	switch cmd.Op {
	case OpLine:
		ev, derr := protocol.Decode(cmd.Line)
		if derr != nil {
			c.dropped++
			log.Debug().Err(derr).Str("line", cmd.Line).Msg("discarded")
			return
		}
		c.Dispatch(now, ev)
		return
	case OpReset:
		c.reset(now)
		return
	case OpSelfTest:
		c.beginTest(now, cmd.Test)
		return
	case OpAnimation:
		c.style = cmd.Style
		if c.test == nil && !c.flashing {
			c.restartAnimation(now)
		}
		log.Info().Stringer("style", cmd.Style).Msg("animation")
		return
	case OpFrequency:
		err = c.group.StepFrequency(cmd.Channel, cmd.Steps)
	case OpPhase:
		err = c.group.StepPhase(cmd.Channel, cmd.Steps)
	case OpStep:
		err = c.group.StepStep(cmd.Channel, cmd.Steps)
	case OpToggle:
		_, err = c.group.Toggle(cmd.Channel)
	case OpState:
		err = c.group.SetState(cmd.Channel, cmd.State)
	default:
		err = fmt.Errorf("unknown op %q", cmd.Op)
	}
	if err != nil {
		log.Warn().Err(err).Stringer("cmd", cmd).Msg("command rejected")
		return
	}
	log.Debug().Stringer("cmd", cmd).Msg("command")
	c.settle(now)
}

// Dispatch applies one encoder event: state first, then every generator in id
// order, then the render.
func (c *Controller) Dispatch(now tick.Millis, ev protocol.Event) {
	c.events++
	if ev.Reset() {
		c.reset(now)
		return
	}
	var err error
	switch ev.Kind {
	case protocol.Increment, protocol.Decrement:
		err = c.group.StepFrequency(ev.Channel, ev.Kind.Delta())
	case protocol.Press:
		var s channel.State
		s, err = c.group.Toggle(ev.Channel)
		if err == nil {
			log.Info().Int("channel", ev.Channel).Stringer("state", s).Msg("toggle")
		}
	case protocol.Repeat:
		err = c.group.StepStep(ev.Channel, 1)
	}
	if err != nil {
		log.Warn().Err(err).Stringer("event", ev).Msg("dispatch")
		return
	}
	c.settle(now)
}

func (c *Controller) settle(now tick.Millis) {
	c.propagate()
	c.render()
	if m := c.group.Audible(); !slices.Equal(m, c.mask) && c.test == nil && !c.flashing {
		c.restartAnimation(now)
	}
}

func (c *Controller) reset(now tick.Millis) {
	c.group.Reset()
	c.propagate()
	c.render()
	if c.test != nil {
		c.test = nil
	}
	c.anim.BeginFlash(now, c.style&led.Mirror != 0, c.flashMs)
	c.flashing = true
	log.Info().Msg("reset")
	c.raise(diagnostics.Info, diagnostics.CodeReset, "channels reset to initial settings", nil)
}

func (c *Controller) propagate() {
	if err := c.group.Propagate(); err != nil {
		log.Warn().Err(err).Msg("generator write")
		c.raise(diagnostics.Warn, diagnostics.CodeGenerator, "generator write failed", err)
	}
}

func (c *Controller) render() {
	c.rows = c.screen.Compose(c.group.Render())
	c.dirty = true
}

func (c *Controller) beginTest(now tick.Millis, k tests.Kind) {
	if _, ok := tests.ParseKind(string(k)); !ok {
		c.raise(diagnostics.Warn, diagnostics.CodeTestUnknown, fmt.Sprintf("unknown self test %q", k), nil)
		return
	}
	c.flashing = false
	c.test = tests.NewRunner(tests.Plan{Kind: k})
	c.testNext = now
	c.raise(diagnostics.Info, diagnostics.CodeTestRunning, fmt.Sprintf("self test %s running", k), nil)
}

func (c *Controller) stepTest(now tick.Millis) {
	if !tick.Reached(now, c.testNext) {
		return
	}
	p := c.screen.Panel()
	levels := make([]uint8, len(c.anim.Levels()))
	rows := make([]string, p.Rows)
	if !c.test.Step(p, levels, rows) {
		k := c.test.Kind()
		c.test = nil
		c.restartAnimation(now)
		c.dirty = true
		c.nextDraw = now
		c.raise(diagnostics.Info, diagnostics.CodeTestDone, fmt.Sprintf("self test %s done", k), nil)
		return
	}
	c.anim.Show(levels)
	if c.panel != nil {
		if err := c.panel.WriteRows(rows); err != nil {
			log.Warn().Err(err).Msg("panel write")
		}
	}
	c.testNext = now.Add(c.show)
}

func (c *Controller) raise(sev diagnostics.Severity, code, summary string, err error) {
	d := diagnostics.Diagnostic{Severity: sev, Code: code, Summary: summary, Time: time.Now()}
	if err != nil {
		d.Detail = err.Error()
	}
	c.diag(d)
}

func (c *Controller) publish() {
	s := Status{
		Channels: c.group.Render(),
		Synced:   c.group.Synced(),
		Active:   c.anim.Active(),
		Style:    c.style.String(),
		Flash:    c.anim.Flash().String(),
		Events:   c.events,
		Dropped:  c.dropped,
	}
	for _, lv := range c.anim.Levels() {
		s.Levels = append(s.Levels, int(lv))
	}
	if c.test != nil {
		s.Test = string(c.test.Kind())
	}
	for _, r := range c.rows {
		s.Rows = append(s.Rows, display.Text(r))
	}
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// Snapshot returns the status as of the last poll.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Run polls on every interval tick until ctx is done, then closes the sinks.
func (c *Controller) Run(ctx context.Context, clock tick.Clock, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Millisecond
	}
	c.Start(clock.Now())
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return c.Close()
		case <-t.C:
			c.Poll(clock.Now())
		}
	}
}

// Close darkens the LEDs and releases the panel.
func (c *Controller) Close() error {
	c.anim.DeactivateAll(false)
	var errs []error
	if err := c.anim.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.panel != nil {
		if err := c.panel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
