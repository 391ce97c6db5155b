package generator

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/triplewave/internal/channel"
)

func words(ops []conntest.IO) []uint16 {
	out := make([]uint16, 0, len(ops))
	for _, op := range ops {
		out = append(out, uint16(op.W[0])<<8|uint16(op.W[1]))
	}
	return out
}

func TestAD9833Init(t *testing.T) {
	rec := &spitest.Record{}
	_, err := New(rec, nil, Opts{Mode: channel.Square})
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x2100, 0x4000, 0x4000, 0xC000, 0x2028}, words(rec.Ops))
}

func TestAD9833Frequency(t *testing.T) {
	rec := &spitest.Record{}
	d, err := New(rec, nil, Opts{})
	require.NoError(t, err)
	rec.Ops = nil

	require.NoError(t, d.SetFrequency(1000))
	assert.Equal(t, []uint16{0x2000, 0x69F1, 0x4000}, words(rec.Ops))

	rec.Ops = nil
	require.NoError(t, d.SetFrequency(100000))
	assert.Equal(t, []uint16{0x2000, 0x624E, 0x4041}, words(rec.Ops))
}

func TestAD9833Phase(t *testing.T) {
	rec := &spitest.Record{}
	d, err := New(rec, nil, Opts{})
	require.NoError(t, err)
	rec.Ops = nil

	require.NoError(t, d.SetPhase(900))
	require.NoError(t, d.SetPhase(3599))
	assert.Equal(t, []uint16{0xC400, 0xCFFE}, words(rec.Ops))

	rec.Ops = nil
	require.NoError(t, d.Halt())
	assert.Equal(t, []uint16{0x2100}, words(rec.Ops))
}

func TestAD9833CloseHalts(t *testing.T) {
	rec := &spitest.Record{}
	d, err := New(rec, nil, Opts{Mode: channel.Square})
	require.NoError(t, err)
	rec.Ops = nil

	var c io.Closer = d
	require.NoError(t, c.Close())
	assert.Equal(t, []uint16{0x2100 | ModeBits(channel.Square)}, words(rec.Ops))
}

func TestAD9833FSync(t *testing.T) {
	rec := &spitest.Record{}
	cs := &gpiotest.Pin{N: "FSYNC1", L: gpio.Low}
	d, err := New(rec, cs, Opts{Mode: channel.Triangle})
	require.NoError(t, err)
	require.NoError(t, d.SetPhase(0))
	assert.Equal(t, gpio.High, cs.Read(), "fsync released after each word")
	assert.Len(t, rec.Ops, 6)
	assert.Equal(t, uint16(0x2002), words(rec.Ops)[4])
}

func TestWords(t *testing.T) {
	assert.Equal(t, uint32(0), FrequencyWord(-1, DefaultMCLK))
	assert.Equal(t, uint32(1<<28-1), FrequencyWord(1e9, DefaultMCLK))
	assert.Equal(t, uint16(0), PhaseWord(3600))
	assert.Equal(t, uint16(3072), PhaseWord(-900))
	assert.Equal(t, uint16(0x0020), ModeBits(channel.HalfSquare))
	assert.Equal(t, uint16(0), ModeBits(channel.Sine))
}

func TestSim(t *testing.T) {
	var s channel.GeneratorSink = NewSim(1)
	require.NoError(t, s.SetFrequency(523.3))
	require.NoError(t, s.SetPhase(45))
	hz, ph := s.(*Sim).Output()
	assert.Equal(t, 523.3, hz)
	assert.Equal(t, 45, ph)
}

func TestSharedPort(t *testing.T) {
	rec := &spitest.Record{}
	port := NewSharedPort(rec)
	a, err := New(port, &gpiotest.Pin{N: "FSYNC0"}, Opts{})
	require.NoError(t, err)
	b, err := New(port, &gpiotest.Pin{N: "FSYNC1"}, Opts{Mode: channel.Triangle})
	require.NoError(t, err)
	rec.Ops = nil

	require.NoError(t, a.SetPhase(900))
	require.NoError(t, b.SetPhase(0))
	assert.Equal(t, []uint16{0xC400, 0xC000}, words(rec.Ops))

	_, err = port.Connect(DefaultSPIFreq, spi.Mode0, 8)
	assert.Error(t, err, "settings must match the first connect")
}
