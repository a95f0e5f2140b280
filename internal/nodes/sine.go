// Package nodes provides the leaf sequential nodes named as external
// collaborators: a sine generator, a volume control, an RMS/peak
// analyzer, and a log sink. None of these are THE CORE — they exist to
// exercise and illustrate the node.Sequential contract end to end.
package nodes

import (
	"math"

	"audiofw/internal/block"
)

// Sine is a source node: it ignores its input (releasing it if
// non-nil), acquires a fresh block from the pool, and fills it with a
// sine wave at a fixed frequency and 50% of full 16-bit amplitude,
// advancing phase modulo 2π across calls so consecutive blocks are
// phase-continuous.
type Sine struct {
	pool       *block.Pool
	sampleRate float64

	phase          float64
	phaseIncrement float64
}

// NewSine creates a sine generator at freqHz, sampling at sampleRate.
func NewSine(pool *block.Pool, freqHz, sampleRate float64) *Sine {
	return &Sine{
		pool:           pool,
		sampleRate:     sampleRate,
		phaseIncrement: 2 * math.Pi * freqHz / sampleRate,
	}
}

const sineAmplitude = 0.5 * math.MaxInt16

// Step discards in and emits one block of sine samples.
func (s *Sine) Step(in *block.Block) *block.Block {
	if in != nil {
		s.pool.Release(in)
	}

	out, err := s.pool.Acquire()
	if err != nil {
		return nil
	}

	for i := range out.Data {
		out.Data[i] = int16(math.Sin(s.phase) * sineAmplitude)
		s.phase += s.phaseIncrement
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return out
}

// Reset returns the phase to zero, so the next Step reproduces the
// generator's first-ever output sample.
func (s *Sine) Reset() {
	s.phase = 0
}
