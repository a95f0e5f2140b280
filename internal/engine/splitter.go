package engine

import (
	"fmt"
	"time"

	"audiofw/internal/block"
	"audiofw/internal/errs"
	"audiofw/internal/log"
	"audiofw/internal/queue"
)

// Splitter is the 1-in/N-out fan-out primitive: it takes one block and
// shares it across N output queues via reference counting, with no copy.
// Downstream nodes that need to mutate the shared block trigger
// copy-on-write locally via block.Pool.MakeWritable, isolating divergent
// processing paths from one another.
//
// A "copy storm" is possible when a splitter feeds many mutating nodes
// at once; size the pool for the worst-case simultaneous fan-out.
type Splitter struct {
	in          *queue.Queue
	outs        []*queue.Queue
	maxOuts     int
	pool        *block.Pool
	takeTimeout time.Duration
	logger      *log.Logger
}

// NewSplitter creates a Splitter reading from in, with room for up to
// maxOuts (SPLITTER_MAX_OUTS) output queues. takeTimeout bounds each
// Step's wait on the input queue so the worker can notice Stop promptly.
func NewSplitter(in *queue.Queue, maxOuts int, pool *block.Pool, takeTimeout time.Duration, logger *log.Logger) *Splitter {
	return &Splitter{
		in:          in,
		maxOuts:     maxOuts,
		pool:        pool,
		takeTimeout: takeTimeout,
		logger:      logger.Named("splitter"),
	}
}

// AddOutput registers another output queue. It fails with errs.ErrFull
// once maxOuts outputs are already attached.
func (s *Splitter) AddOutput(q *queue.Queue) error {
	if len(s.outs) >= s.maxOuts {
		return fmt.Errorf("%w: splitter already has %d outputs", errs.ErrFull, s.maxOuts)
	}
	s.outs = append(s.outs, q)
	return nil
}

// OutputCount returns the number of outputs currently attached.
func (s *Splitter) OutputCount() int {
	return len(s.outs)
}

// Step takes one block and distributes it to every attached output.
// It adds N-1 references before any Put, so that no consumer can ever
// observe a block whose refcount understates the number of holders —
// the increment happens-before every enqueue, never after.
func (s *Splitter) Step() {
	b, ok := s.in.Take(s.takeTimeout)
	if !ok {
		return
	}

	n := len(s.outs)
	if n == 0 {
		s.pool.Release(b)
		return
	}

	if n > 1 {
		s.pool.RetainN(b, int32(n-1))
	}

	for _, out := range s.outs {
		if !out.Put(b) {
			// Consumer's queue is full: this output never actually took a
			// reference, so give it back.
			s.pool.Release(b)
			s.logger.Warnf("output queue full, dropped one fan-out reference")
		}
	}
}

// Reset is a no-op: the splitter holds no internal state beyond its
// wiring, which is fixed after AddOutput calls during pipeline build.
func (s *Splitter) Reset() {}
