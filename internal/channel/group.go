package channel

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrDuplicateID = errors.New("duplicate channel id")
	ErrPartialSync = errors.New("sync must hold for all channels or none")
	ErrNoChannel   = errors.New("no such channel")
	ErrEmptyGroup  = errors.New("group needs at least one channel")
)

// Group owns a fixed set of channels in id order. Id order is both the
// display order and the order broadcasts and generator updates run in.
type Group struct {
	channels []*Channel
	byID     map[int]*Channel
}

func NewGroup(chs ...*Channel) (*Group, error) {
	if len(chs) == 0 {
		return nil, ErrEmptyGroup
	}
	g := &Group{
		channels: append([]*Channel(nil), chs...),
		byID:     make(map[int]*Channel, len(chs)),
	}
	sort.SliceStable(g.channels, func(i, j int) bool { return g.channels[i].id < g.channels[j].id })
	synced := 0
	for _, c := range g.channels {
		if _, dup := g.byID[c.id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, c.id)
		}
		g.byID[c.id] = c
		if c.state == Sync {
			synced++
		}
	}
	if synced != 0 && synced != len(g.channels) {
		return nil, fmt.Errorf("%w: %d of %d synced", ErrPartialSync, synced, len(g.channels))
	}
	return g, nil
}

func (g *Group) Len() int { return len(g.channels) }

// Channels returns the channels in id order. The slice is shared.
func (g *Group) Channels() []*Channel { return g.channels }

func (g *Group) Channel(id int) (*Channel, error) {
	c, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoChannel, id)
	}
	return c, nil
}

// Synced reports whether the group is in sync. Sync is all-or-none so the first
// channel decides.
func (g *Group) Synced() bool { return g.channels[0].state == Sync }

// Audible is the per-channel sounding mask in id order.
func (g *Group) Audible() []bool {
	out := make([]bool, len(g.channels))
	for i, c := range g.channels {
		out[i] = c.Audible()
	}
	return out
}

// Toggle advances channel id through the cycle and applies the peer broadcast.
func (g *Group) Toggle(id int) (State, error) {
	c, err := g.Channel(id)
	if err != nil {
		return Normal, err
	}
	next, b := Toggle(c.state)
	g.apply(c, next, b)
	return next, nil
}

// SetState jumps channel id straight to s, resolving the peer broadcast the
// same way a toggle would.
func (g *Group) SetState(id int, s State) error {
	if s > Sync {
		return fmt.Errorf("set state: %v", s)
	}
	c, err := g.Channel(id)
	if err != nil {
		return err
	}
	g.apply(c, s, Resolve(c.state, s))
	return nil
}

func (g *Group) apply(c *Channel, next State, b Broadcast) {
	c.setState(next)
	peer, ok := b.Peer()
	if !ok {
		return
	}
	for _, p := range g.channels {
		if p != c {
			p.setState(peer)
		}
	}
}

// targets is the set a rotation-class change lands on.
func (g *Group) targets(id int) ([]*Channel, error) {
	c, err := g.Channel(id)
	if err != nil {
		return nil, err
	}
	if g.Synced() {
		return g.channels, nil
	}
	return []*Channel{c}, nil
}

// StepFrequency applies a frequency change to id, or to every channel while synced.
func (g *Group) StepFrequency(id, steps int) error {
	ts, err := g.targets(id)
	if err != nil {
		return err
	}
	for _, c := range ts {
		c.StepFrequency(steps)
	}
	return nil
}

// StepPhase applies a phase change to id, or to every channel while synced.
func (g *Group) StepPhase(id, steps int) error {
	ts, err := g.targets(id)
	if err != nil {
		return err
	}
	for _, c := range ts {
		c.StepPhase(steps)
	}
	return nil
}

// StepStep changes the step index of id only, synced or not.
func (g *Group) StepStep(id, steps int) error {
	c, err := g.Channel(id)
	if err != nil {
		return err
	}
	c.StepStep(steps)
	return nil
}

// Propagate runs every channel's generator update in id order. One failing
// sink does not stop the rest.
func (g *Group) Propagate() error {
	var errs []error
	for _, c := range g.channels {
		if err := c.Update(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset restores every channel's power-on values and forces the next Propagate to write.
func (g *Group) Reset() {
	for _, c := range g.channels {
		c.Reset()
	}
}

// Invalidate forces the next Propagate to write every generator.
func (g *Group) Invalidate() {
	for _, c := range g.channels {
		c.Invalidate()
	}
}

// Render returns one frame per channel in id order.
func (g *Group) Render() []Frame {
	out := make([]Frame, len(g.channels))
	for i, c := range g.channels {
		out[i] = c.Render()
	}
	return out
}
