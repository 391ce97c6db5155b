package generator

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/triplewave/internal/channel"
)

// Sim stands in for a generator when no SPI hardware is present.
type Sim struct {
	mu    sync.Mutex
	id    int
	hz    float64
	phase int
}

func NewSim(id int) *Sim { return &Sim{id: id} }

func (s *Sim) SetFrequency(hz float64) error {
	s.mu.Lock()
	s.hz = hz
	s.mu.Unlock()
	log.Debug().Int("channel", s.id).Float64("hz", hz).Msg("sim generator frequency")
	return nil
}

func (s *Sim) SetPhase(tenths int) error {
	s.mu.Lock()
	s.phase = tenths
	s.mu.Unlock()
	log.Debug().Int("channel", s.id).Int("phase", tenths).Msg("sim generator phase")
	return nil
}

// Output returns the last programmed frequency and phase.
func (s *Sim) Output() (hz float64, phase int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hz, s.phase
}

var _ channel.GeneratorSink = (*Sim)(nil)
