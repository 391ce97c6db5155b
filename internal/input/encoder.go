package input

// DefaultPulsesPerDetent matches the encoders fitted to the front panel.
const DefaultPulsesPerDetent = 2

// Encoder turns a raw quadrature count into detent steps. Sub-detent jitter
// never produces a step.
type Encoder struct {
	ppd        int64
	primed     bool
	lastRaw    int64
	lastDetent int64
}

func NewEncoder(pulsesPerDetent int) *Encoder {
	if pulsesPerDetent <= 0 {
		pulsesPerDetent = DefaultPulsesPerDetent
	}
	return &Encoder{ppd: int64(pulsesPerDetent)}
}

// Step feeds the current raw count and returns the signed number of detents
// crossed since the last emitted step. The first call only records the
// starting position.
func (e *Encoder) Step(raw int64) (int, bool) {
	if !e.primed {
		e.primed = true
		e.lastRaw, e.lastDetent = raw, e.detent(raw)
		return 0, false
	}
	if raw == e.lastRaw {
		return 0, false
	}
	e.lastRaw = raw
	d := e.detent(raw)
	if d == e.lastDetent {
		return 0, false
	}
	delta := d - e.lastDetent
	e.lastDetent = d
	return int(delta), true
}

// detent floors rather than truncating toward zero. Truncation would make
// detent 0 span 2*ppd-1 pulses (-ppd+1..ppd-1), so the first detent below
// zero would need one extra pulse; flooring keeps every detent ppd wide and
// deliberately departs from the truncated division of the original firmware.
func (e *Encoder) detent(raw int64) int64 {
	d := raw / e.ppd
	if raw%e.ppd != 0 && raw < 0 {
		d--
	}
	return d
}
