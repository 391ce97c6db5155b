package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tick"
)

func set(p *gpiotest.Pin, l gpio.Level) {
	p.Lock()
	p.L = l
	p.Unlock()
}

func TestQuadratureCounts(t *testing.T) {
	a, b := &gpiotest.Pin{N: "A"}, &gpiotest.Pin{N: "B"}
	q, err := NewQuadrature(a, b)
	require.NoError(t, err)
	assert.Equal(t, gpio.PullUp, a.Pull())

	cw := []struct{ a, b gpio.Level }{
		{gpio.Low, gpio.High},
		{gpio.Low, gpio.Low},
		{gpio.High, gpio.Low},
		{gpio.High, gpio.High},
	}
	for _, s := range cw {
		set(a, s.a)
		set(b, s.b)
		q.Sample()
	}
	assert.Equal(t, int64(4), q.Count())

	for i := len(cw) - 2; i >= 0; i-- {
		set(a, cw[i].a)
		set(b, cw[i].b)
		q.Sample()
	}
	set(a, gpio.High)
	set(b, gpio.High)
	q.Sample()
	assert.Equal(t, int64(0), q.Count())
}

func TestBoardPoll(t *testing.T) {
	btn := &gpiotest.Pin{N: "SW", L: gpio.High}
	a, b := &gpiotest.Pin{N: "CLK"}, &gpiotest.Pin{N: "DT"}
	q, err := NewQuadrature(a, b)
	require.NoError(t, err)
	board := NewBoard(&Slot{ID: 1, Button: NewButton(0, 0), Pin: btn, Encoder: NewEncoder(2), Quad: q})

	assert.Empty(t, board.Poll(0), "first poll primes the encoder")

	set(btn, gpio.Low)
	assert.Empty(t, board.Poll(1))
	assert.Equal(t, []protocol.Event{{Channel: 1, Kind: protocol.Press}}, board.Poll(51))
	set(btn, gpio.High)
	assert.Empty(t, board.Poll(52))

	cw := []struct{ a, b gpio.Level }{
		{gpio.Low, gpio.High},
		{gpio.Low, gpio.Low},
		{gpio.High, gpio.Low},
		{gpio.High, gpio.High},
	}
	var got []protocol.Event
	for i, s := range cw {
		set(a, s.a)
		set(b, s.b)
		got = append(got, board.Poll(tick.Millis(60+i))...)
	}
	assert.Equal(t, []protocol.Event{
		{Channel: 1, Kind: protocol.Increment},
		{Channel: 1, Kind: protocol.Increment},
	}, got)

	got = nil
	for i := len(cw) - 2; i >= 0; i-- {
		set(a, cw[i].a)
		set(b, cw[i].b)
		got = append(got, board.Poll(tick.Millis(70+i))...)
	}
	set(a, gpio.High)
	set(b, gpio.High)
	got = append(got, board.Poll(80)...)
	assert.Equal(t, []protocol.Event{
		{Channel: 1, Kind: protocol.Decrement},
		{Channel: 1, Kind: protocol.Decrement},
	}, got)
}
