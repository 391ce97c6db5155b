package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	op    string
	hz    float64
	phase int
}

type recordingSink struct {
	calls []sinkCall
	err   error
}

func (r *recordingSink) SetFrequency(hz float64) error {
	r.calls = append(r.calls, sinkCall{op: "freq", hz: hz})
	return r.err
}

func (r *recordingSink) SetPhase(tenths int) error {
	r.calls = append(r.calls, sinkCall{op: "phase", phase: tenths})
	return r.err
}

func mustChannel(t *testing.T, cfg Config, sink GeneratorSink) *Channel {
	t.Helper()
	c, err := New(cfg, sink)
	require.NoError(t, err)
	return c
}

func TestNewRejectsOutOfRange(t *testing.T) {
	for _, cfg := range []Config{
		{ID: -1},
		{Frequency: -1},
		{Frequency: MaxFrequency},
		{Phase: MaxPhase},
		{Phase: -1},
		{Step: MaxStep + 1},
		{State: Sync + 1},
	} {
		_, err := New(cfg, nil)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestStepFrequency(t *testing.T) {
	c := mustChannel(t, Config{Frequency: 5233, Step: 2}, nil)
	c.StepFrequency(1)
	assert.Equal(t, int64(5333), c.Frequency())

	c.StepFrequency(-100)
	assert.Equal(t, int64(0), c.Frequency(), "clamps at zero")

	c = mustChannel(t, Config{Frequency: MaxFrequency - 5, Step: 1}, nil)
	c.StepFrequency(1)
	assert.Equal(t, int64(MaxFrequency-5+10-MaxFrequency), c.Frequency(), "wraps past the top")
}

func TestStepFrequencyStaysInRange(t *testing.T) {
	c := mustChannel(t, Config{Frequency: 1000, Step: 4}, nil)
	for i := 0; i < 20000; i++ {
		dir := 1
		if i%7 == 3 {
			dir = -3
		}
		c.StepFrequency(dir * 997)
		f := c.Frequency()
		if f < 0 || f >= MaxFrequency {
			t.Fatalf("step %d: frequency %d out of range", i, f)
		}
	}
}

func TestStepPhaseWraps(t *testing.T) {
	c := mustChannel(t, Config{Phase: 3595}, nil)
	c.StepPhase(10)
	assert.Equal(t, 5, c.Phase())
	c.StepPhase(-10)
	assert.Equal(t, 3595, c.Phase())
	c.StepPhase(-2 * MaxPhase)
	assert.Equal(t, 3595, c.Phase())
	for i := 0; i < 5000; i++ {
		c.StepPhase(i*37 - 1000)
		if p := c.Phase(); p < 0 || p >= MaxPhase {
			t.Fatalf("phase %d out of range", p)
		}
	}
}

func TestStepStepWrap(t *testing.T) {
	c := mustChannel(t, Config{Step: 4}, nil)
	c.StepStep(1)
	assert.Equal(t, 1, c.Step(), "index past the top lands on 1")
	assert.Equal(t, int64(10), c.StepSize())

	c = mustChannel(t, Config{Step: 0}, nil)
	c.StepStep(-1)
	assert.Equal(t, 0, c.Step(), "clamps at zero")

	c.StepStep(9)
	assert.Equal(t, 1, c.Step())
}

func TestStepSizeTable(t *testing.T) {
	assert.Equal(t, int64(1), StepSize(0))
	assert.Equal(t, int64(10000), StepSize(4))
	assert.Equal(t, int64(10), StepSize(9))
}

func TestUpdateGeneratorMemoized(t *testing.T) {
	c := mustChannel(t, Config{Frequency: 5233, Phase: 900}, nil)

	w, ok := c.UpdateGenerator()
	require.True(t, ok)
	assert.Equal(t, GeneratorWrite{Frequency: 5233, Phase: 900, HasPhase: true}, w)
	assert.InDelta(t, 523.3, w.Hz(), 1e-9)

	_, ok = c.UpdateGenerator()
	assert.False(t, ok, "second update with no change writes nothing")

	c.StepPhase(1)
	w, ok = c.UpdateGenerator()
	require.True(t, ok)
	assert.Equal(t, 901, w.Phase)
}

func TestUpdateGeneratorMuted(t *testing.T) {
	sink := &recordingSink{}
	c := mustChannel(t, Config{Frequency: 5233, State: Muted}, sink)

	require.NoError(t, c.Update())
	require.NoError(t, c.Update())
	require.Len(t, sink.calls, 1)
	assert.Equal(t, sinkCall{op: "freq", hz: 100000}, sink.calls[0])

	c.StepFrequency(5)
	require.NoError(t, c.Update())
	assert.Len(t, sink.calls, 1, "muted frequency edits stay silent")

	c.setState(Normal)
	require.NoError(t, c.Update())
	require.Len(t, sink.calls, 3)
	assert.Equal(t, "freq", sink.calls[1].op)
	assert.Equal(t, "phase", sink.calls[2].op)
}

func TestUpdateWrapsSinkError(t *testing.T) {
	boom := errors.New("boom")
	c := mustChannel(t, Config{ID: 2, Frequency: 10}, &recordingSink{err: boom})
	err := c.Update()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "channel 2")
}

func TestResetRestoresAndInvalidates(t *testing.T) {
	sink := &recordingSink{}
	c := mustChannel(t, Config{Frequency: 5233, Step: 2, Phase: 10}, sink)
	require.NoError(t, c.Update())
	c.StepFrequency(3)
	c.StepPhase(40)
	c.StepStep(1)
	c.setState(Solo)

	c.Reset()
	assert.Equal(t, int64(5233), c.Frequency())
	assert.Equal(t, 10, c.Phase())
	assert.Equal(t, 2, c.Step())
	assert.Equal(t, Normal, c.State())

	require.NoError(t, c.Update())
	assert.Len(t, sink.calls, 4, "reset forces a rewrite of unchanged values")
}

func TestRender(t *testing.T) {
	c := mustChannel(t, Config{ID: 1, Frequency: 6593, Step: 2, Phase: 905, State: Solo}, nil)
	f := c.Render()
	assert.Equal(t, Frame{ID: 1, Frequency: "659.3", Step: "10.0", Phase: "90.5", State: "Solo", Audible: true}, f)
	assert.Equal(t, [4]string{"659.3", "10.0", "90.5", "Solo"}, f.Rows())
	assert.Equal(t, "0.1", Decimal(1))
	assert.Equal(t, "-1.5", Decimal(-15))
}
