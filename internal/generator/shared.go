package generator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SharedPort lets several chips, each framed by its own fsync pin, connect to
// one SPI port. The first Connect configures the port; later calls must ask
// for the same settings and get the same connection back.
type SharedPort struct {
	port spi.Port

	mu   sync.Mutex
	c    *sharedConn
	f    physic.Frequency
	mode spi.Mode
	bits int
}

func NewSharedPort(port spi.Port) *SharedPort { return &SharedPort{port: port} }

func (s *SharedPort) String() string { return s.port.String() }

func (s *SharedPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		if f != s.f || mode != s.mode || bits != s.bits {
			return nil, fmt.Errorf("shared spi %s: already connected at %s mode %s %d bits", s.port, s.f, s.mode, s.bits)
		}
		return s.c, nil
	}
	c, err := s.port.Connect(f, mode, bits)
	if err != nil {
		return nil, err
	}
	s.c = &sharedConn{c: c}
	s.f, s.mode, s.bits = f, mode, bits
	return s.c, nil
}

type sharedConn struct {
	mu sync.Mutex
	c  spi.Conn
}

func (s *sharedConn) String() string { return s.c.String() }

func (s *sharedConn) Duplex() conn.Duplex { return s.c.Duplex() }

func (s *sharedConn) Tx(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Tx(w, r)
}

func (s *sharedConn) TxPackets(p []spi.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.TxPackets(p)
}
