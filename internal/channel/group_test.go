package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroup(t *testing.T, states ...State) (*Group, []*recordingSink) {
	t.Helper()
	chs := make([]*Channel, len(states))
	sinks := make([]*recordingSink, len(states))
	for i, s := range states {
		sinks[i] = &recordingSink{}
		chs[i] = mustChannel(t, Config{ID: i, Frequency: int64(5000 + 1000*i), Step: 2, State: s}, sinks[i])
	}
	g, err := NewGroup(chs...)
	require.NoError(t, err)
	return g, sinks
}

func states(g *Group) []State {
	out := make([]State, g.Len())
	for i, c := range g.Channels() {
		out[i] = c.State()
	}
	return out
}

func TestToggleCycle(t *testing.T) {
	s := Muted
	seen := []State{s}
	for i := 0; i < 4; i++ {
		s, _ = Toggle(s)
		seen = append(seen, s)
	}
	assert.Equal(t, []State{Muted, Normal, Solo, Sync, Muted}, seen)
}

func TestResolve(t *testing.T) {
	cases := []struct {
		from, to State
		want     Broadcast
	}{
		{Muted, Normal, BroadcastNone},
		{Normal, Solo, BroadcastMute},
		{Solo, Sync, BroadcastSync},
		{Sync, Muted, BroadcastMute},
		{Sync, Normal, BroadcastNormal},
		{Normal, Muted, BroadcastNone},
		{Muted, Sync, BroadcastSync},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Resolve(tc.from, tc.to), "%v -> %v", tc.from, tc.to)
	}
}

func TestNewGroupValidation(t *testing.T) {
	a := mustChannel(t, Config{ID: 1}, nil)
	b := mustChannel(t, Config{ID: 1}, nil)
	_, err := NewGroup(a, b)
	assert.ErrorIs(t, err, ErrDuplicateID)

	a = mustChannel(t, Config{ID: 0, State: Sync}, nil)
	b = mustChannel(t, Config{ID: 1, State: Normal}, nil)
	_, err = NewGroup(a, b)
	assert.ErrorIs(t, err, ErrPartialSync)

	_, err = NewGroup()
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestGroupOrdersByID(t *testing.T) {
	a := mustChannel(t, Config{ID: 2}, nil)
	b := mustChannel(t, Config{ID: 0}, nil)
	c := mustChannel(t, Config{ID: 1}, nil)
	g, err := NewGroup(a, b, c)
	require.NoError(t, err)
	for i, ch := range g.Channels() {
		assert.Equal(t, i, ch.ID())
	}
	_, err = g.Channel(7)
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestToggleBroadcasts(t *testing.T) {
	g, _ := newGroup(t, Muted, Muted, Muted)

	s, err := g.Toggle(1)
	require.NoError(t, err)
	assert.Equal(t, Normal, s)
	assert.Equal(t, []State{Muted, Normal, Muted}, states(g))

	_, err = g.Toggle(1)
	require.NoError(t, err)
	assert.Equal(t, []State{Muted, Solo, Muted}, states(g))

	_, err = g.Toggle(1)
	require.NoError(t, err)
	assert.Equal(t, []State{Sync, Sync, Sync}, states(g))
	assert.True(t, g.Synced())

	_, err = g.Toggle(2)
	require.NoError(t, err)
	assert.Equal(t, []State{Muted, Muted, Muted}, states(g))
	assert.False(t, g.Synced())
}

func TestSoloMutesEveryPeer(t *testing.T) {
	g, _ := newGroup(t, Normal, Normal, Normal, Normal)
	require.NoError(t, g.SetState(2, Solo))
	n := 0
	for _, c := range g.Channels() {
		if c.State() == Muted {
			n++
		}
	}
	assert.Equal(t, g.Len()-1, n)
	assert.Equal(t, []bool{false, false, true, false}, g.Audible())
}

func TestSetStateUnlinksSync(t *testing.T) {
	g, _ := newGroup(t, Sync, Sync, Sync)
	require.NoError(t, g.SetState(0, Normal))
	assert.Equal(t, []State{Normal, Normal, Normal}, states(g))

	require.NoError(t, g.SetState(0, Muted))
	assert.Equal(t, []State{Muted, Normal, Normal}, states(g))

	assert.Error(t, g.SetState(0, Sync+1))
	assert.ErrorIs(t, g.SetState(5, Normal), ErrNoChannel)
}

func TestSyncRotationReachesEveryChannel(t *testing.T) {
	g, _ := newGroup(t, Sync, Sync, Sync)
	require.NoError(t, g.StepFrequency(0, 1))
	for i, c := range g.Channels() {
		assert.Equal(t, int64(5000+1000*i+100), c.Frequency())
	}
	require.NoError(t, g.StepPhase(2, 15))
	for _, c := range g.Channels() {
		assert.Equal(t, 15, c.Phase())
	}
	require.NoError(t, g.StepStep(1, 1))
	assert.Equal(t, []int{2, 3, 2}, []int{g.Channels()[0].Step(), g.Channels()[1].Step(), g.Channels()[2].Step()})
}

func TestUnsyncedRotationStaysLocal(t *testing.T) {
	g, _ := newGroup(t, Normal, Normal, Normal)
	require.NoError(t, g.StepFrequency(1, -1))
	assert.Equal(t, int64(5000), g.Channels()[0].Frequency())
	assert.Equal(t, int64(5900), g.Channels()[1].Frequency())
	assert.Equal(t, int64(7000), g.Channels()[2].Frequency())
}

func TestPropagateWritesOnlyChanges(t *testing.T) {
	g, sinks := newGroup(t, Normal, Muted, Normal)
	require.NoError(t, g.Propagate())
	assert.Len(t, sinks[0].calls, 2)
	assert.Len(t, sinks[1].calls, 1)
	assert.Len(t, sinks[2].calls, 2)

	require.NoError(t, g.StepFrequency(2, 1))
	require.NoError(t, g.Propagate())
	assert.Len(t, sinks[0].calls, 2)
	assert.Len(t, sinks[1].calls, 1)
	assert.Len(t, sinks[2].calls, 4)
	assert.Equal(t, 710.0, sinks[2].calls[2].hz)

	g.Reset()
	require.NoError(t, g.Propagate())
	assert.Len(t, sinks[0].calls, 4)
	assert.Equal(t, 700.0, sinks[2].calls[4].hz)
}

func TestGroupRender(t *testing.T) {
	g, _ := newGroup(t, Normal, Muted, Normal)
	frames := g.Render()
	require.Len(t, frames, 3)
	assert.Equal(t, "500.0", frames[0].Frequency)
	assert.Equal(t, "Mute", frames[1].State)
	assert.False(t, frames[1].Audible)
}

func TestInvalidateRewritesAll(t *testing.T) {
	g, sinks := newGroup(t, Normal, Muted)
	require.NoError(t, g.Propagate())
	require.NoError(t, g.Propagate())
	assert.Len(t, sinks[0].calls, 2)
	g.Invalidate()
	require.NoError(t, g.Propagate())
	assert.Len(t, sinks[0].calls, 4)
	assert.Len(t, sinks[1].calls, 2)
}
