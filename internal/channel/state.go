package channel

import (
	"fmt"
	"strings"
)

// State is a channel's place in the mute/solo/sync cycle.
type State uint8

const (
	Normal State = iota
	Muted
	Solo
	Sync
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Muted:
		return "muted"
	case Solo:
		return "solo"
	case Sync:
		return "sync"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Label is the four-letter text shown on the panel's state row.
func (s State) Label() string {
	switch s {
	case Normal:
		return "Norm"
	case Muted:
		return "Mute"
	case Solo:
		return "Solo"
	case Sync:
		return "Sync"
	}
	return "????"
}

// Audible reports whether the generator should be sounding in this state.
func (s State) Audible() bool { return s != Muted }

func ParseState(v string) (State, error) {
	switch strings.ToLower(v) {
	case "normal", "norm", "":
		return Normal, nil
	case "muted", "mute":
		return Muted, nil
	case "solo":
		return Solo, nil
	case "sync":
		return Sync, nil
	}
	return Normal, fmt.Errorf("unknown channel state %q", v)
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Broadcast is the forced change a transition applies to every peer of the initiator.
type Broadcast uint8

const (
	BroadcastNone Broadcast = iota
	BroadcastMute
	BroadcastSync
	BroadcastNormal
)

func (b Broadcast) String() string {
	switch b {
	case BroadcastNone:
		return "none"
	case BroadcastMute:
		return "mute"
	case BroadcastSync:
		return "sync"
	case BroadcastNormal:
		return "normal"
	}
	return fmt.Sprintf("Broadcast(%d)", uint8(b))
}

// Peer is the state a peer is forced into, ok false when the broadcast leaves peers alone.
func (b Broadcast) Peer() (State, bool) {
	switch b {
	case BroadcastMute:
		return Muted, true
	case BroadcastSync:
		return Sync, true
	case BroadcastNormal:
		return Normal, true
	}
	return Normal, false
}

// Next is the toggle cycle Muted → Normal → Solo → Sync → Muted.
func Next(s State) State {
	switch s {
	case Muted:
		return Normal
	case Normal:
		return Solo
	case Solo:
		return Sync
	default:
		return Muted
	}
}

// Resolve returns the peer broadcast for a channel moving from one state to another.
// Sync is group-wide, so leaving it always resolves the peers to a concrete state.
func Resolve(from, to State) Broadcast {
	switch {
	case to == Solo:
		return BroadcastMute
	case to == Sync:
		return BroadcastSync
	case from == Sync && to == Muted:
		return BroadcastMute
	case from == Sync && to == Normal:
		return BroadcastNormal
	}
	return BroadcastNone
}

// Toggle is the single-button transition.
func Toggle(s State) (State, Broadcast) {
	n := Next(s)
	return n, Resolve(s, n)
}
