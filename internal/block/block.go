// Package block implements THE CORE block memory subsystem: fixed-size
// PCM buffers wrapped in reference-counted descriptors, drawn from
// bounded free-lists so the audio path never touches the heap once
// running.
package block

import "sync/atomic"

// Block is a fixed-size chunk of PCM samples with its descriptor. It is
// created exclusively by Pool.Acquire and destroyed only when its
// reference count transitions from 1 to 0 via Pool.Release.
//
// A Block with a reference count greater than one must be treated as
// immutable by every holder; MakeWritable is the only legal path to
// mutation in that state. Only the current unique owner (refcount == 1)
// may write into Data.
type Block struct {
	// Data holds BLOCK_SAMPLES signed 16-bit PCM samples. Len(Data) may
	// only shrink from the pool's fixed block size, never grow.
	Data []int16

	refs atomic.Int32
	pool *Pool
}

// Len returns the number of valid samples in the block.
func (b *Block) Len() int {
	return len(b.Data)
}

// RefCount returns the block's current reference count. Intended for
// diagnostics and tests; callers must not use the returned value to
// decide whether to mutate the block (use MakeWritable instead), since
// the count can change concurrently.
func (b *Block) RefCount() int32 {
	return b.refs.Load()
}
