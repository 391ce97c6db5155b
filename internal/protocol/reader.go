package protocol

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxLine bounds a buffered line. Longer runs are line noise: they are skipped up
// to the next newline and reading carries on.
const MaxLine = 64

// Reader pumps raw lines from a byte stream into a channel so the poll loop can drain
// them without ever blocking on the transport.
type Reader struct {
	src   io.Reader
	lines chan string
}

func NewReader(src io.Reader, buffer int) *Reader {
	if buffer <= 0 {
		buffer = 64
	}
	return &Reader{src: src, lines: make(chan string, buffer)}
}

// Lines is closed when the source is exhausted or Run's context ends.
func (r *Reader) Lines() <-chan string { return r.lines }

// Run blocks reading the source; call it on its own goroutine.
func (r *Reader) Run(ctx context.Context) {
	defer close(r.lines)
	br := bufio.NewReaderSize(r.src, MaxLine)
	skipping := false
	for {
		b, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !skipping {
				log.Debug().Int("max", MaxLine).Msg("over-long line skipped")
			}
			skipping = true
			continue
		}
		if len(b) > 0 {
			if skipping {
				skipping = false
			} else {
				line := strings.TrimSuffix(strings.TrimSuffix(string(b), "\n"), "\r")
				select {
				case r.lines <- line:
				case <-ctx.Done():
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				log.Warn().Err(err).Msg("line reader stopped")
			}
			return
		}
	}
}
