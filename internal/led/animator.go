package led

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/triplewave/internal/tick"
)

// Style is a bit set of animation behaviours. Plain is the empty set.
type Style uint8

const (
	Plain    Style = 0
	Random   Style = 1 << 0 // pick the next LED at random
	Blanking Style = 1 << 1 // dark frame between activations
	Mirror   Style = 1 << 2 // upper half of the bank repeats the lower half
)

func (s Style) String() string {
	if s == Plain {
		return "plain"
	}
	var parts []string
	if s&Random != 0 {
		parts = append(parts, "random")
	}
	if s&Blanking != 0 {
		parts = append(parts, "blanking")
	}
	if s&Mirror != 0 {
		parts = append(parts, "mirror")
	}
	return strings.Join(parts, "+")
}

// ParseStyle reads a "+" or "," separated list such as "random+blanking".
func ParseStyle(v string) (Style, bool) {
	var s Style
	for _, f := range strings.FieldsFunc(strings.ToLower(v), func(r rune) bool { return r == '+' || r == ',' || r == ' ' }) {
		switch f {
		case "plain":
		case "random":
			s |= Random
		case "blanking", "blank":
			s |= Blanking
		case "mirror":
			s |= Mirror
		default:
			return Plain, false
		}
	}
	return s, true
}

func (s Style) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Style) UnmarshalText(b []byte) error {
	v, ok := ParseStyle(string(b))
	if !ok {
		return fmt.Errorf("unknown animation style %q", b)
	}
	*s = v
	return nil
}

// Timing defaults in milliseconds.
const (
	DefaultShow  = 250
	DefaultBlank = 250
	DefaultFlash = 100

	PanelShow  = 750
	PanelBlank = 350
)

// FlashState is the one-shot flash overlay.
type FlashState uint8

const (
	FlashIdle FlashState = iota
	FlashOn
	FlashDone
)

func (f FlashState) String() string {
	switch f {
	case FlashOn:
		return "on"
	case FlashDone:
		return "done"
	}
	return "idle"
}

// Options configures an Animator. Intensity holds one entry per LED, 0 for a
// plain on/off LED.
type Options struct {
	Intensity []uint8
	Rand      *rand.Rand
}

// Animator steps one lit LED around a bank on millisecond deadlines. It never
// blocks; callers poll Step and StepFlash with the current time.
type Animator struct {
	drv       Driver
	n         int
	intensity []uint8
	levels    []uint8
	dirty     bool
	rng       *rand.Rand
	cand      []int

	style     Style
	show      int
	blank     int
	frame     int
	numFrames int
	numStates int
	active    int
	last      int
	next      tick.Millis
	enabled   []bool

	flash       FlashState
	flashMirror bool
	flashUntil  tick.Millis
}

func NewAnimator(drv Driver, opts Options) *Animator {
	n := drv.Len()
	in := make([]uint8, n)
	copy(in, opts.Intensity)
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Animator{
		drv:       drv,
		n:         n,
		intensity: in,
		levels:    make([]uint8, n),
		rng:       rng,
		active:    -1,
		last:      -1,
	}
}

// Begin restarts the animation. show and blank of 0 take the defaults. An
// enabled mask with no true entry is ignored.
func (a *Animator) Begin(now tick.Millis, style Style, show, blank int, enabled []bool) {
	if show <= 0 {
		show = DefaultShow
	}
	if blank <= 0 {
		blank = DefaultBlank
	}
	if a.n < 2 {
		style &^= Random
	}
	if a.n%2 != 0 {
		style &^= Mirror
	}
	if a.active >= 0 {
		a.deactivate(a.active, a.style&Mirror != 0)
	}

	a.style, a.show, a.blank = style, show, blank
	a.enabled = nil
	for _, e := range enabled {
		if e {
			a.enabled = append([]bool(nil), enabled...)
			break
		}
	}

	a.numFrames = a.n
	if style&Blanking != 0 {
		a.numFrames *= 2
	}
	a.numStates = a.n
	if style&Mirror != 0 {
		a.numFrames /= 2
		a.numStates /= 2
	}
	a.frame = -1
	a.active = -1
	a.last = -1
	a.next = now
	a.flush()
}

// Step advances one frame once the deadline has passed.
func (a *Animator) Step(now tick.Millis) {
	if a.numFrames == 0 || !tick.Reached(now, a.next) {
		return
	}
	mirror := a.style&Mirror != 0
	if a.active >= 0 {
		a.deactivate(a.active, mirror)
		a.active = -1
	}

	a.frame++
	if a.frame >= a.numFrames {
		a.frame = 0
	}
	blank := a.style&Blanking != 0 && a.frame%2 == 1
	if blank {
		a.next = now.Add(a.blank)
	} else {
		if s := a.pick(); s >= 0 {
			a.activate(s, mirror)
			a.active, a.last = s, s
		}
		a.next = now.Add(a.show)
	}
	a.flush()
}

func (a *Animator) allowed(i int) bool {
	if a.enabled == nil {
		return true
	}
	return i < len(a.enabled) && a.enabled[i]
}

// pick returns the next state to light, -1 for none. Random never repeats the
// previous state while another is allowed; Plain walks forward skipping
// disabled states.
func (a *Animator) pick() int {
	if a.style&Random != 0 {
		a.cand = a.cand[:0]
		for i := 0; i < a.numStates; i++ {
			if i != a.last && a.allowed(i) {
				a.cand = append(a.cand, i)
			}
		}
		if len(a.cand) == 0 {
			if a.last >= 0 && a.allowed(a.last) {
				return a.last
			}
			return -1
		}
		return a.cand[a.rng.Intn(len(a.cand))]
	}
	next := a.last
	for i := 0; i < a.numStates; i++ {
		next++
		if next >= a.numStates {
			next = 0
		}
		if a.allowed(next) {
			return next
		}
	}
	return -1
}

// Active is the lit state, -1 when none is.
func (a *Animator) Active() int { return a.active }

func (a *Animator) Style() Style { return a.style }

// Levels is the brightness last written per LED.
func (a *Animator) Levels() []uint8 { return append([]uint8(nil), a.levels...) }

// BeginFlash lights every LED at full brightness until now+on ms. on of 0
// takes DefaultFlash.
func (a *Animator) BeginFlash(now tick.Millis, mirror bool, on int) {
	if on <= 0 {
		on = DefaultFlash
	}
	a.flashMirror = mirror
	for i := 0; i < a.effective(mirror); i++ {
		a.set(i, mirror, 255)
	}
	a.flash = FlashOn
	a.flashUntil = now.Add(on)
	a.flush()
}

// StepFlash reports whether the flash is still lit. The first call past the
// deadline turns the LEDs off; after that it is a no-op returning false.
func (a *Animator) StepFlash(now tick.Millis) bool {
	if a.flash != FlashOn {
		return false
	}
	if !tick.Reached(now, a.flashUntil) {
		return true
	}
	for i := 0; i < a.effective(a.flashMirror); i++ {
		a.set(i, a.flashMirror, 0)
	}
	a.flash = FlashDone
	a.flush()
	return false
}

func (a *Animator) Flash() FlashState { return a.flash }

// ActivateAll lights or darkens every LED at its configured intensity.
func (a *Animator) ActivateAll(on, mirror bool) {
	for i := 0; i < a.effective(mirror); i++ {
		if on {
			a.activate(i, mirror)
		} else {
			a.deactivate(i, mirror)
		}
	}
	a.flush()
}

func (a *Animator) DeactivateAll(mirror bool) { a.ActivateAll(false, mirror) }

// ActivateStates lights LED i when states[i] is set and darkens it otherwise.
func (a *Animator) ActivateStates(states []bool, mirror bool) {
	for i := 0; i < a.effective(mirror); i++ {
		if i < len(states) && states[i] {
			a.activate(i, mirror)
		} else {
			a.deactivate(i, mirror)
		}
	}
	a.flush()
}

func (a *Animator) effective(mirror bool) int {
	if mirror {
		return a.n / 2
	}
	return a.n
}

func (a *Animator) activate(i int, mirror bool) {
	a.put(i, Level(a.intensity[i]))
	if mirror {
		j := i + a.n/2
		a.put(j, Level(a.intensity[j]))
	}
}

func (a *Animator) deactivate(i int, mirror bool) { a.set(i, mirror, 0) }

func (a *Animator) set(i int, mirror bool, lv uint8) {
	a.put(i, lv)
	if mirror {
		a.put(i+a.n/2, lv)
	}
}

func (a *Animator) put(i int, lv uint8) {
	if a.levels[i] != lv {
		a.levels[i] = lv
		a.dirty = true
	}
}

func (a *Animator) flush() {
	if !a.dirty {
		return
	}
	a.dirty = false
	if err := a.drv.Write(a.levels); err != nil {
		log.Warn().Err(err).Msg("led write")
	}
}

// Show writes raw levels straight to the bank, bypassing intensity. The
// animation stays paused until the next Begin.
func (a *Animator) Show(levels []uint8) {
	a.numFrames = 0
	a.active = -1
	for i := range a.levels {
		var lv uint8
		if i < len(levels) {
			lv = levels[i]
		}
		a.put(i, lv)
	}
	a.flush()
}

// Close darkens the bank and releases the driver.
func (a *Animator) Close() error { return a.drv.Close() }
