package sequence

// Step feeds one protocol line to the dispatcher at AtMs after start.
type Step struct {
	AtMs uint32 `yaml:"at_ms"`
	Line string `yaml:"line"`
	Note string `yaml:"note,omitempty"`
}

// Program is a full script; steps are sorted by AtMs on Load.
type Program struct {
	Version string `yaml:"version"` // e.g. "wave.v1"
	Loop    bool   `yaml:"loop,omitempty"`
	// LoopMs pads the end of a looping script before it restarts.
	LoopMs uint32 `yaml:"loop_ms,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
	Done    PlayerState = "done"
)

// Hooks are dependency-injected callbacks into the dispatcher.
type Hooks struct {
	// Line receives each scripted line, in order, when its time is reached.
	Line func(line string)
	// Loop is called each time a looping script wraps.
	Loop func(count int)
	// Finished is called once when a non-looping script runs out of steps.
	Finished func()
}
