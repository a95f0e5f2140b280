// Package strip implements THE CORE sequential execution model: a
// channel strip owning an ordered chain of sequential nodes processed by
// a single worker, and a mixer composing several strips in lock-step.
//
// This is the recommended model for real-time paths: it eliminates the
// per-edge context switches and queue handoffs the concurrent engine
// pays for, at the cost of losing per-node independent scheduling.
package strip

import (
	"fmt"
	"sync/atomic"
	"time"

	"audiofw/internal/block"
	"audiofw/internal/errs"
	"audiofw/internal/log"
	"audiofw/internal/node"
	"audiofw/internal/queue"
)

// ChannelStrip is an ordered, fixed-capacity array of sequential nodes
// plus an input queue, an optional output queue, and (once Start is
// called) a single worker goroutine. The node array is frozen — no
// AddNode or Clear — for as long as the worker is running.
type ChannelStrip struct {
	Name string

	nodes    []node.Sequential
	maxNodes int

	in  *queue.Queue
	out *queue.Queue

	pool   *block.Pool
	logger *log.Logger

	running     atomic.Bool
	stop        atomic.Bool
	done        chan struct{}
	takeTimeout time.Duration
}

// New creates an empty channel strip named name, with room for up to
// maxNodes sequential nodes (STRIP_MAX_NODES) and an input queue of the
// given capacity.
func New(name string, maxNodes, inputQueueCapacity int, pool *block.Pool, logger *log.Logger) *ChannelStrip {
	if name == "" {
		name = "unnamed"
	}
	return &ChannelStrip{
		Name:     name,
		maxNodes: maxNodes,
		in:       queue.New(inputQueueCapacity),
		pool:     pool,
		logger:   logger.Named("strip." + name),
	}
}

// AddNode appends a node to the end of the processing chain. It fails
// with errs.ErrFull once maxNodes nodes are already present, and with
// errs.ErrInvalid while the strip's worker is running.
func (s *ChannelStrip) AddNode(n node.Sequential) error {
	if s.running.Load() {
		return fmt.Errorf("%w: cannot add a node while the strip is running", errs.ErrInvalid)
	}
	if len(s.nodes) >= s.maxNodes {
		return fmt.Errorf("%w: strip %q already has %d nodes", errs.ErrFull, s.Name, s.maxNodes)
	}
	s.nodes = append(s.nodes, n)
	return nil
}

// Clear removes every node from the chain. It is a no-op error while the
// worker is running.
func (s *ChannelStrip) Clear() error {
	if s.running.Load() {
		return fmt.Errorf("%w: cannot clear a running strip", errs.ErrInvalid)
	}
	s.nodes = s.nodes[:0]
	return nil
}

// NodeCount returns the number of nodes currently in the chain.
func (s *ChannelStrip) NodeCount() int {
	return len(s.nodes)
}

// SetOutput attaches (or clears, with nil) the strip's output queue.
func (s *ChannelStrip) SetOutput(q *queue.Queue) {
	s.out = q
}

// PushInput enqueues a block from an external producer. Ownership
// transfers to the strip.
func (s *ChannelStrip) PushInput(b *block.Block) bool {
	return s.in.Put(b)
}

// ProcessBlock is the core sequential kernel: it visits every node in
// insertion order, threading the result of each into the next. If any
// node returns nil, the block is dropped for this cycle and ProcessBlock
// returns nil immediately — the remaining nodes do not run, and the
// dropped block is not retried with the next cycle's input.
func (s *ChannelStrip) ProcessBlock(b *block.Block) *block.Block {
	for _, n := range s.nodes {
		b = n.Step(b)
		if b == nil {
			return nil
		}
	}
	return b
}

// Start launches the strip's worker goroutine: it blocks on the input
// queue (bounded by takeTimeout so Stop is noticed promptly), runs
// ProcessBlock, and either enqueues the result on the output queue or
// releases it.
func (s *ChannelStrip) Start(priority int, takeTimeout time.Duration) {
	s.running.Store(true)
	s.stop.Store(false)
	s.done = make(chan struct{})
	s.takeTimeout = takeTimeout

	go func() {
		defer close(s.done)
		s.logger.Infof("strip worker started (priority=%d)", priority)
		for !s.stop.Load() {
			b, ok := s.in.Take(s.takeTimeout)
			if !ok {
				continue
			}
			result := s.ProcessBlock(b)
			if result == nil {
				continue
			}
			if s.out != nil && s.out.Put(result) {
				continue
			}
			s.pool.Release(result)
		}
		s.logger.Infof("strip worker stopped")
	}()
}

// Stop requests the worker exit after its current cycle, and blocks
// until it has.
func (s *ChannelStrip) Stop() {
	if !s.running.Load() {
		return
	}
	s.stop.Store(true)
	<-s.done
	s.running.Store(false)
}

// Running reports whether the strip's worker is currently active.
func (s *ChannelStrip) Running() bool {
	return s.running.Load()
}
