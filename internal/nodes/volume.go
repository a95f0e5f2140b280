package nodes

import (
	"math"
	"sync/atomic"

	"audiofw/internal/block"
	"audiofw/internal/pcm"
)

// Volume multiplies every sample by a factor, clamping to the signed
// 16-bit range. It requires a non-nil input and claims unique ownership
// via block.Pool.MakeWritable before mutating in place, so it is safe to
// drop into either execution model without an extra copy unless the
// block is actually shared.
//
// Factor can be changed live with SetFactor while a strip carrying this
// node is running — the strip's node list is still frozen, only this
// leaf's internal parameter moves, so this does not reopen the
// pipeline's static-topology guarantee.
type Volume struct {
	pool   *block.Pool
	factor atomic.Uint64 // math.Float64bits(factor)
}

// NewVolume creates a volume node at the given initial factor (1.0 = unity).
func NewVolume(pool *block.Pool, factor float64) *Volume {
	v := &Volume{pool: pool}
	v.SetFactor(factor)
	return v
}

// SetFactor atomically updates the gain applied by subsequent Step calls.
func (v *Volume) SetFactor(factor float64) {
	v.factor.Store(math.Float64bits(factor))
}

// Factor returns the currently configured gain.
func (v *Volume) Factor() float64 {
	return math.Float64frombits(v.factor.Load())
}

// Step scales in's samples in place and returns it. A nil input is
// passed through as nil: this node has nothing to generate on its own.
func (v *Volume) Step(in *block.Block) *block.Block {
	if in == nil {
		return nil
	}
	b, err := v.pool.MakeWritable(in)
	if err != nil {
		v.pool.Release(in)
		return nil
	}

	factor := v.Factor()
	for i, s := range b.Data {
		b.Data[i] = pcm.ClampSample(int32(float64(s) * factor))
	}
	return b
}

// Reset is a no-op: volume carries no state beyond the factor itself,
// which survives a reset.
func (v *Volume) Reset() {}
