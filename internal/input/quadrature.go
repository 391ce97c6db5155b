package input

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// transitions is indexed by old AB << 2 | new AB. Invalid double steps count as 0.
var transitions = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// Quadrature decodes two encoder pins by polling. Sample must run faster
// than the pins can change.
type Quadrature struct {
	a, b  gpio.PinIn
	state uint8
	count int64
}

// NewQuadrature configures both pins as pulled-up inputs.
func NewQuadrature(a, b gpio.PinIn) (*Quadrature, error) {
	for _, p := range []gpio.PinIn{a, b} {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("quadrature pin %s: %w", p, err)
		}
	}
	q := &Quadrature{a: a, b: b}
	q.state = q.read()
	return q, nil
}

func (q *Quadrature) read() uint8 {
	var s uint8
	if q.a.Read() == gpio.High {
		s |= 2
	}
	if q.b.Read() == gpio.High {
		s |= 1
	}
	return s
}

// Sample reads both pins and returns the updated count.
func (q *Quadrature) Sample() int64 {
	s := q.read()
	q.count += int64(transitions[q.state<<2|s])
	q.state = s
	return q.count
}

func (q *Quadrature) Count() int64 { return q.count }
