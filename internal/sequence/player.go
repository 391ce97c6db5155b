package sequence

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/triplewave/internal/tick"
)

// Player owns the current Program timeline and uses Hooks to feed lines.
type Player struct {
	State PlayerState

	prog  Program
	idx   int
	start tick.Millis
	// elapsed at the moment of pausing
	held  uint32
	loops int

	hooks Hooks
}

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// LoadFile reads a yaml script from disk.
func LoadFile(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	var prog Program
	if err := yaml.Unmarshal(b, &prog); err != nil {
		return Program{}, fmt.Errorf("script %s: %w", path, err)
	}
	return prog, nil
}

// Load replaces the current program. Resets position and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Steps) == 0 {
		return errors.New("program has no steps")
	}
	sort.SliceStable(prog.Steps, func(i, j int) bool { return prog.Steps[i].AtMs < prog.Steps[j].AtMs })
	p.prog = prog
	p.State = Idle
	p.idx = 0
	p.held = 0
	p.loops = 0
	return nil
}

// Start moves to Running with time zero at now.
func (p *Player) Start(now tick.Millis) {
	if p.State == Running || len(p.prog.Steps) == 0 {
		return
	}
	p.State = Running
	p.idx = 0
	p.loops = 0
	p.start = now
}

// Pause pauses playback.
func (p *Player) Pause(now tick.Millis) {
	if p.State == Running {
		p.held = now.Since(p.start)
		p.State = Paused
	}
}

// Resume resumes playback from where it was paused.
func (p *Player) Resume(now tick.Millis) {
	if p.State == Paused {
		p.start = now.Add(-int(p.held))
		p.State = Running
	}
}

// Stop stops and rewinds.
func (p *Player) Stop() {
	p.State = Idle
	p.idx = 0
	p.held = 0
}

// Duration is the time of the last step plus any loop padding.
func (p *Player) Duration() uint32 {
	if len(p.prog.Steps) == 0 {
		return 0
	}
	return p.prog.Steps[len(p.prog.Steps)-1].AtMs + p.prog.LoopMs
}

// Tick emits every step whose time has been reached. It returns how many
// lines were emitted.
func (p *Player) Tick(now tick.Millis) int {
	if p.State != Running {
		return 0
	}
	n := 0
	for {
		elapsed := now.Since(p.start)
		for p.idx < len(p.prog.Steps) && p.prog.Steps[p.idx].AtMs <= elapsed {
			if p.hooks.Line != nil {
				p.hooks.Line(p.prog.Steps[p.idx].Line)
			}
			p.idx++
			n++
		}
		if p.idx < len(p.prog.Steps) {
			return n
		}
		if !p.prog.Loop {
			p.State = Done
			if p.hooks.Finished != nil {
				p.hooks.Finished()
			}
			return n
		}
		d := p.Duration()
		if elapsed < d || d == 0 {
			return n
		}
		p.start = p.start.Add(int(d))
		p.idx = 0
		p.loops++
		if p.hooks.Loop != nil {
			p.hooks.Loop(p.loops)
		}
	}
}
