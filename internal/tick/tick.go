// Package tick provides the millisecond counter every cooperative poll is driven by.
package tick

import (
	"sync"
	"time"
)

// Millis is a free-running millisecond counter. It wraps after ~49.7 days.
type Millis uint32

// Add returns m advanced by d milliseconds, wrapping like the counter does.
func (m Millis) Add(d int) Millis { return m + Millis(d) }

// Since returns the milliseconds elapsed from earlier to m, modulo the counter width.
func (m Millis) Since(earlier Millis) uint32 { return uint32(m - earlier) }

// Reached reports whether now is at or past deadline. The comparison is modular so a
// deadline armed just before the counter wraps still fires just after it.
func Reached(now, deadline Millis) bool {
	return int32(now-deadline) >= 0
}

// Clock samples the counter once per poll.
type Clock interface {
	Now() Millis
}

// System is a Clock over the monotonic wall clock, counting from its creation.
type System struct {
	start time.Time
}

func NewSystem() *System { return &System{start: time.Now()} }

func (s *System) Now() Millis {
	return Millis(uint64(time.Since(s.start).Milliseconds()))
}

// Manual is a hand-driven Clock for tests and scripted simulation.
type Manual struct {
	mu  sync.Mutex
	now Millis
}

func NewManual(start Millis) *Manual { return &Manual{now: start} }

func (m *Manual) Now() Millis {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(ms int) Millis {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(ms)
	return m.now
}

func (m *Manual) Set(t Millis) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
