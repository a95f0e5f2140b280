package block

import (
	"fmt"

	"audiofw/internal/errs"
	"audiofw/internal/log"
)

// Pool is a pair of bounded free-lists — one for block descriptors, one
// for PCM sample buffers — each of fixed capacity. Acquire and Release are
// O(1) and safe to call from any goroutine; Acquire never blocks, it
// fails by returning errs.ErrOutOfMemory when either free-list is empty.
//
// There is deliberately no heap fallback: exhaustion is an observable
// condition (see Stats), not a panic.
type Pool struct {
	blockSamples int
	capacity     int
	descriptors  chan *Block
	buffers      chan []int16
	logger       *log.Logger
}

// NewPool creates a Pool with the given capacity (number of blocks it can
// have outstanding simultaneously) and blockSamples (the fixed PCM sample
// count of every block, BLOCK_SAMPLES in the spec). Both free-lists are
// pre-populated so the first `capacity` acquisitions never allocate.
func NewPool(capacity, blockSamples int, logger *log.Logger) *Pool {
	p := &Pool{
		blockSamples: blockSamples,
		capacity:     capacity,
		descriptors:  make(chan *Block, capacity),
		buffers:      make(chan []int16, capacity),
		logger:       logger,
	}
	for i := 0; i < capacity; i++ {
		p.descriptors <- &Block{}
		p.buffers <- make([]int16, blockSamples)
	}
	return p
}

// BlockSamples returns the fixed sample count of every block in the pool.
func (p *Pool) BlockSamples() int { return p.blockSamples }

// Capacity returns the pool's configured capacity.
func (p *Pool) Capacity() int { return p.capacity }

// Stats reports the number of descriptors and buffers currently free.
// Both values equal Capacity() when the pool is fully idle; a value
// trending toward zero under load is the observable signal that the
// pool is undersized for the pipeline's worst-case fan-out.
type Stats struct {
	FreeDescriptors int
	FreeBuffers     int
}

// Stats returns a snapshot of free-list occupancy. It is a diagnostic
// only: the values can change the instant after the call returns.
func (p *Pool) Stats() Stats {
	return Stats{
		FreeDescriptors: len(p.descriptors),
		FreeBuffers:     len(p.buffers),
	}
}

// Acquire atomically obtains one free descriptor and one free buffer,
// zeroes the buffer, and returns a Block with refcount 1. It fails with
// errs.ErrOutOfMemory when either free-list is empty and never blocks.
//
// If the descriptor free-list has a spare entry but the buffer free-list
// does not, the descriptor is returned to its pool before the error is
// reported, so a partial acquisition never leaks a descriptor.
func (p *Pool) Acquire() (*Block, error) {
	var desc *Block
	select {
	case desc = <-p.descriptors:
	default:
		return nil, fmt.Errorf("%w: descriptor pool exhausted (capacity %d)", errs.ErrOutOfMemory, p.capacity)
	}

	var buf []int16
	select {
	case buf = <-p.buffers:
	default:
		p.descriptors <- desc
		return nil, fmt.Errorf("%w: buffer pool exhausted (capacity %d)", errs.ErrOutOfMemory, p.capacity)
	}

	for i := range buf {
		buf[i] = 0
	}
	desc.Data = buf[:p.blockSamples]
	desc.pool = p
	desc.refs.Store(1)

	p.logger.Debugf("acquired block (free desc=%d buf=%d)", len(p.descriptors), len(p.buffers))
	return desc, nil
}

// Retain atomically increments a block's reference count. The caller
// must already hold a valid reference (retaining a freed block is a
// usage error, as is any use of a block once its refcount reaches zero).
func (p *Pool) Retain(b *Block) {
	b.refs.Add(1)
}

// RetainN atomically adds delta references in a single operation. It is
// used by fan-out primitives (the splitter) that must grant N-1 new
// references to a block before handing it to N consumers, so that no
// consumer ever observes a window where the count understates the true
// number of holders.
func (p *Pool) RetainN(b *Block, delta int32) {
	if delta == 0 {
		return
	}
	b.refs.Add(delta)
}

// Release atomically decrements a block's reference count. If the
// reference count reaches zero, the buffer and then the descriptor are
// returned to their free-lists, in that order. Double-release of a block
// already at zero references is undefined behavior — the framework
// relies on linear ownership handoff, not a self-defending refcount.
func (p *Pool) Release(b *Block) {
	if b == nil {
		return
	}
	if remaining := b.refs.Add(-1); remaining == 0 {
		pool := b.pool
		if pool == nil {
			pool = p
		}
		buf := b.Data
		b.Data = nil
		b.pool = nil

		select {
		case pool.buffers <- buf[:cap(buf)]:
		default:
			pool.logger.Errorf("buffer free-list full on release; dropping buffer (capacity misconfigured?)")
		}
		select {
		case pool.descriptors <- b:
		default:
			pool.logger.Errorf("descriptor free-list full on release; dropping descriptor (capacity misconfigured?)")
		}
		pool.logger.Debugf("released block to zero refs (free desc=%d buf=%d)", len(pool.descriptors), len(pool.buffers))
	}
}

// MakeWritable implements copy-on-write. If b's reference count is 1 it
// is returned unchanged (zero copies performed). Otherwise a fresh block
// is acquired, the full buffer is copied into it, the caller's reference
// to the original is released, and the new block (refcount 1) is
// returned. It fails only when the pool is exhausted, in which case the
// original block is left exactly as it was (still owned by the caller).
func (p *Pool) MakeWritable(b *Block) (*Block, error) {
	if b.refs.Load() == 1 {
		return b, nil
	}

	fresh, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	copy(fresh.Data, b.Data)
	p.Release(b)
	return fresh, nil
}
