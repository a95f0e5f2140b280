// Package engine implements THE CORE concurrent execution model: one
// worker goroutine per node, each looping on the node's Step, with
// queues as edges.
package engine

import (
	"sync/atomic"

	"audiofw/internal/block"
	"audiofw/internal/log"
	"audiofw/internal/node"
	"audiofw/internal/queue"
)

// IO is the queue wiring a concurrent node holds: exactly one input
// queue and at most one output queue reference, plus the pool its blocks
// are drawn from and returned to. Nodes embed an IO (or reimplement the
// same shape, as Splitter does for its multiple outputs) to get
// PushOutput for free.
type IO struct {
	In   *queue.Queue
	Out  *queue.Queue
	Pool *block.Pool
}

// PushOutput implements the framework's push_output primitive: if an
// output queue is set, the block is enqueued; otherwise (a dead end) it
// is released immediately. If the output queue is full, the block is
// also released rather than silently leaked — a full output queue is
// equivalent to no consumer keeping up.
func (io *IO) PushOutput(b *block.Block) {
	if io.Out != nil && io.Out.Put(b) {
		return
	}
	io.Pool.Release(b)
}

// Worker drives one concurrent node's Step in a loop on its own
// goroutine, standing in for a dedicated fixed-priority thread on a
// preemptive kernel. Go has no user-settable thread priority, so
// Priority is recorded for observability only; scheduling fairness is
// left to the Go runtime.
type Worker struct {
	stop     atomic.Bool
	done     chan struct{}
	priority int
}

// Start launches a worker goroutine that calls n.Step() in a loop until
// Stop is called. The loop never terminates on its own — per the spec,
// a concurrent node's only legal suspension point is its own input
// queue's Take(timeout), so nodes should use a bounded timeout (rather
// than an unbounded wait) if prompt shutdown matters; an in-flight block
// held across a Stop is lost, same as an abort at a suspension point on
// the original target.
func Start(n node.Concurrent, priority int, logger *log.Logger) *Worker {
	w := &Worker{done: make(chan struct{}), priority: priority}
	lg := logger.Named("engine")
	go func() {
		defer close(w.done)
		lg.Infof("worker started (priority=%d)", priority)
		for !w.stop.Load() {
			n.Step()
		}
		lg.Infof("worker stopped (priority=%d)", priority)
	}()
	return w
}

// Stop requests the worker's loop exit after its current Step call
// returns. It does not wait for the goroutine to actually exit; call
// Wait for that.
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// Wait blocks until the worker goroutine has exited following Stop.
func (w *Worker) Wait() {
	<-w.done
}

// Priority returns the priority the worker was started with.
func (w *Worker) Priority() int {
	return w.priority
}
