package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/config"
	"github.com/coreman2200/triplewave/internal/diagnostics"
	"github.com/coreman2200/triplewave/internal/driver/fake"
	"github.com/coreman2200/triplewave/internal/led"
	"github.com/coreman2200/triplewave/internal/tests"
	"github.com/coreman2200/triplewave/internal/tick"
)

type rig struct {
	ctl   *Controller
	lines chan string
	gens  []*fake.Generator
	leds  *fake.LEDs
	panel *fake.Panel
	diags []diagnostics.Diagnostic
}

func newRig(t *testing.T, states ...channel.State) *rig {
	t.Helper()
	cfg := config.Default()
	cfg.Display.RefreshMs = 0
	for i, s := range states {
		cfg.Channels[i].State = s
	}
	r := &rig{lines: make(chan string, 16), leds: &fake.LEDs{N: 3}, panel: &fake.Panel{}}
	hw := Hardware{LEDs: r.leds, Panel: r.panel}
	for range cfg.Channels {
		g := &fake.Generator{}
		r.gens = append(r.gens, g)
		hw.Generators = append(hw.Generators, g)
	}
	ctl, err := New(cfg, hw, Options{
		Lines:  r.lines,
		OnDiag: func(d diagnostics.Diagnostic) { r.diags = append(r.diags, d) },
	})
	require.NoError(t, err)
	r.ctl = ctl
	ctl.Start(0)
	return r
}

func (r *rig) states() []channel.State {
	var out []channel.State
	for _, c := range r.ctl.Group().Channels() {
		out = append(out, c.State())
	}
	return out
}

func (r *rig) freqs() []int64 {
	var out []int64
	for _, c := range r.ctl.Group().Channels() {
		out = append(out, c.Frequency())
	}
	return out
}

func (r *rig) codes() []string {
	var out []string
	for _, d := range r.diags {
		out = append(out, d.Code)
	}
	return out
}

func TestStartProgramsEveryGenerator(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Muted, channel.Normal)
	hz, ok := r.gens[0].Frequency()
	require.True(t, ok)
	assert.InDelta(t, 523.3, hz, 1e-9)
	assert.Len(t, r.gens[0].Calls, 2)
	hz, _ = r.gens[1].Frequency()
	assert.Equal(t, 100000.0, hz)
	assert.Len(t, r.gens[1].Calls, 1)
	require.Len(t, r.panel.Writes, 1)
	assert.True(t, strings.Contains(r.panel.Rows()[3], "Mute"))
}

func TestPressEntersSolo(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Normal, channel.Normal)
	r.lines <- "11"
	r.ctl.Poll(10)
	assert.Equal(t, []channel.State{channel.Muted, channel.Solo, channel.Muted}, r.states())
	hz, _ := r.gens[0].Frequency()
	assert.Equal(t, 100000.0, hz)
	hz, _ = r.gens[2].Frequency()
	assert.Equal(t, 100000.0, hz)

	r.ctl.Poll(20)
	assert.Contains(t, r.panel.Rows()[3], "Solo")
	assert.Equal(t, []int{1}, r.leds.Lit(), "only the audible channel animates")
}

func TestMalformedLinesDiscarded(t *testing.T) {
	r := newRig(t)
	before := r.states()
	for _, l := range []string{"9", "45", "1x", "123", ""} {
		r.lines <- l
	}
	r.ctl.Poll(10)
	assert.Equal(t, before, r.states())
	s := r.ctl.Snapshot()
	assert.Equal(t, uint64(5), s.Dropped)
	assert.Equal(t, uint64(0), s.Events)
}

func TestSyncRotationMovesEveryChannel(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Normal, channel.Normal)
	r.lines <- "01"
	r.lines <- "01"
	r.ctl.Poll(10)
	require.Equal(t, []channel.State{channel.Sync, channel.Sync, channel.Sync}, r.states())

	r.lines <- "12"
	r.ctl.Poll(20)
	assert.Equal(t, []int64{5333, 6693, 8039}, r.freqs())
	for i, g := range r.gens {
		hz, _ := g.Frequency()
		assert.InDelta(t, float64(r.freqs()[i])/10, hz, 1e-9)
	}
}

func TestRepeatCyclesStep(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Normal, channel.Normal)
	r.lines <- "23"
	r.lines <- "22"
	r.ctl.Poll(10)
	assert.Equal(t, 3, r.ctl.Group().Channels()[2].Step())
	assert.Equal(t, int64(7939+1000), r.freqs()[2])
}

func TestResetRestoresAndFlashes(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Normal, channel.Normal)
	r.lines <- "02"
	r.lines <- "11"
	r.ctl.Poll(10)
	require.NotEqual(t, int64(5233), r.freqs()[0])

	r.lines <- "30"
	r.ctl.Poll(20)
	assert.Equal(t, []int64{5233, 6593, 7939}, r.freqs())
	assert.Equal(t, []channel.State{channel.Normal, channel.Normal, channel.Normal}, r.states())
	assert.Equal(t, []uint8{255, 255, 255}, r.leds.Last())
	assert.Equal(t, "on", r.ctl.Snapshot().Flash)
	assert.Contains(t, r.codes(), diagnostics.CodeReset)

	r.ctl.Poll(119)
	assert.Equal(t, []uint8{255, 255, 255}, r.leds.Last(), "flash holds until its deadline")
	r.ctl.Poll(120)
	assert.Len(t, r.leds.Lit(), 1, "animation resumes after the flash")
}

func TestCommands(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Normal, channel.Normal)
	require.NoError(t, r.ctl.Submit(Command{Op: OpPhase, Channel: 0, Steps: -1}))
	require.NoError(t, r.ctl.Submit(Command{Op: OpState, Channel: 2, State: channel.Muted}))
	require.NoError(t, r.ctl.Submit(Command{Op: OpFrequency, Channel: 7, Steps: 1}))
	r.ctl.Poll(10)
	assert.Equal(t, 3599, r.ctl.Group().Channels()[0].Phase())
	assert.Equal(t, channel.Muted, r.states()[2])
	assert.Equal(t, "frequency ch7 +1", Command{Op: OpFrequency, Channel: 7, Steps: 1}.String())

	require.NoError(t, r.ctl.Submit(Command{Op: OpAnimation, Style: led.Plain}))
	r.ctl.Poll(20)
	assert.Equal(t, "plain", r.ctl.Snapshot().Style)
}

func TestSelfTest(t *testing.T) {
	r := newRig(t, channel.Normal, channel.Normal, channel.Normal)
	require.NoError(t, r.ctl.Submit(Command{Op: OpSelfTest, Test: "bogus"}))
	require.NoError(t, r.ctl.Submit(Command{Op: OpSelfTest, Test: tests.IndexSweep}))
	now := tick.Millis(10)
	r.ctl.Poll(now)
	assert.Equal(t, []string{diagnostics.CodeTestUnknown, diagnostics.CodeTestRunning}, r.codes())
	assert.Equal(t, string(tests.IndexSweep), r.ctl.Snapshot().Test)

	for i := 0; i < 3; i++ {
		now = now.Add(led.PanelShow)
		r.ctl.Poll(now)
		want := make([]uint8, 3)
		want[i] = 255
		assert.Equal(t, want, r.leds.Last())
		assert.True(t, strings.HasPrefix(r.panel.Rows()[0], "LED "))
	}
	now = now.Add(led.PanelShow)
	r.ctl.Poll(now)
	assert.Contains(t, r.codes(), diagnostics.CodeTestDone)
	assert.Empty(t, r.ctl.Snapshot().Test)
	assert.Contains(t, r.panel.Rows()[3], "Norm")
}

func TestNewRejectsGeneratorMismatch(t *testing.T) {
	_, err := New(config.Default(), Hardware{LEDs: &fake.LEDs{N: 3}}, Options{})
	assert.Error(t, err)
}

func TestCloseReleasesSinks(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.ctl.Close())
	assert.True(t, r.leds.Closed)
	assert.True(t, r.panel.Closed)
}
