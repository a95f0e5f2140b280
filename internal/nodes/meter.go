package nodes

import (
	"math"
	"sync"

	"audiofw/internal/block"
	"audiofw/internal/pcm"
)

// Meter is a pass-through analyzer: it computes each block's peak and
// RMS level, exponentially smooths the RMS across blocks, and exposes
// the smoothed readouts under a lock. It never modifies the block.
type Meter struct {
	pool   *block.Pool
	smooth float64 // in [0,1): weight given to the previous smoothed RMS

	mu       sync.Mutex
	rms      float64 // smoothed, linear [0,1]
	peak     float64 // last block's peak, linear [0,1]
	clipping bool
}

// NewMeter creates a meter with the given smoothing factor (0 = no
// smoothing — each block replaces the prior RMS outright; values closer
// to 1 weight history more heavily).
func NewMeter(pool *block.Pool, smooth float64) *Meter {
	if smooth < 0 {
		smooth = 0
	}
	if smooth >= 1 {
		smooth = 0.999
	}
	return &Meter{pool: pool, smooth: smooth}
}

// Step computes this block's peak/RMS/clipping and folds the RMS into
// the running smoothed value, then returns the block unchanged.
func (m *Meter) Step(in *block.Block) *block.Block {
	if in == nil {
		return nil
	}

	var sumSquares float64
	var peak int16
	clipping := false
	for _, s := range in.Data {
		av := s
		if av < 0 {
			av = -av
		}
		if av > peak {
			peak = av
		}
		if pcm.IsClipping(s) {
			clipping = true
		}
		norm := float64(s) / math.MaxInt16
		sumSquares += norm * norm
	}

	blockRMS := 0.0
	if len(in.Data) > 0 {
		blockRMS = math.Sqrt(sumSquares / float64(len(in.Data)))
	}
	blockPeak := float64(peak) / math.MaxInt16

	m.mu.Lock()
	if m.smooth == 0 {
		m.rms = blockRMS
	} else {
		m.rms = m.smooth*m.rms + (1-m.smooth)*blockRMS
	}
	m.peak = blockPeak
	m.clipping = clipping
	m.mu.Unlock()

	return in
}

// linearToDB converts a linear [0,1] magnitude to dBFS, floored at -120dB
// to avoid -Inf for silence.
func linearToDB(v float64) float64 {
	const floor = -120.0
	if v <= 0 {
		return floor
	}
	db := 20 * math.Log10(v)
	if db < floor {
		return floor
	}
	return db
}

// Levels is the readout snapshot returned by Meter.Levels.
type Levels struct {
	RMSdB    float64
	PeakdB   float64
	Clipping bool
}

// Levels returns the current smoothed levels under the lock.
func (m *Meter) Levels() Levels {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Levels{
		RMSdB:    linearToDB(m.rms),
		PeakdB:   linearToDB(m.peak),
		Clipping: m.clipping,
	}
}

// Reset clears the smoothed state back to silence.
func (m *Meter) Reset() {
	m.mu.Lock()
	m.rms = 0
	m.peak = 0
	m.clipping = false
	m.mu.Unlock()
}
