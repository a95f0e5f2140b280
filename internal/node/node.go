// Package node defines the uniform "process one step" contract shared by
// every processing unit in the framework, in its two disjoint flavors.
//
// The original design expressed this as a vtable (a function-table
// pointer plus an opaque context) on a single node struct. In Go the
// natural equivalent is two small interfaces — there is exactly one
// indirect call per node per block either way, but no manual vtable
// wiring and no unsafe context casting.
package node

import "audiofw/internal/block"

// Concurrent is a node that runs in its own worker, pulling input from
// its own queue and pushing output (if any) itself. See internal/engine
// for the worker loop that drives it.
type Concurrent interface {
	// Step performs one unit of work: take from the input queue, produce
	// zero or more output blocks, and push or release them. Step must not
	// block on anything other than its own input queue's Take.
	Step()

	// Reset clears internal state (phase, accumulators, counters) back to
	// its post-construction value. Nodes with no state may no-op.
	Reset()
}

// Sequential is a node driven by a channel strip: it takes an input
// block (which may be nil for a generator) and returns an output block,
// or nil to drop the block for this cycle (e.g. a gate).
type Sequential interface {
	// Step processes in and returns the block to hand to the next node,
	// or nil to drop it. Implementations that mutate in place must first
	// ensure unique ownership (block.Pool.MakeWritable); implementations
	// that generate their own output must release in if it is non-nil.
	Step(in *block.Block) *block.Block

	// Reset clears internal state back to its post-construction value.
	Reset()
}
