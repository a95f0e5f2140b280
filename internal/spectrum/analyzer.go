// Package spectrum implements the streaming spectrum analyzer: the one
// representative hard-engineering node whose accumulation, windowing,
// overlap, and lock-protected readout logic exercises every demanding
// property of the framework. It is a sequential pass-through node: the
// audio block flows through unchanged, and the analyzer's own outputs
// are a slowly-updating, concurrently-readable side channel.
package spectrum

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	"audiofw/internal/block"
	"audiofw/internal/errs"
	"audiofw/internal/spectrum/window"
	"audiofw/pkg/bitint"
)

// MaxInstances bounds the number of analyzer contexts the framework will
// construct from this process (MAX_SPECTRUM_INSTANCES in the spec,
// typical value 4). It is enforced by a package-level counter, the Go
// equivalent of the original's static instance table.
const MaxInstances = 4

var instanceCount atomic.Int32

// Config configures an Analyzer at construction; every field is fixed
// for the analyzer's lifetime (Reset preserves configuration).
type Config struct {
	// FFTSize must be a power of two in [32, 2048]. Other values fail
	// initialization with errs.ErrInvalid.
	FFTSize int
	// HopSize is in [1, FFTSize]; 0 means "use FFTSize" (non-overlapping).
	HopSize int
	// Window selects the coefficient kind applied before the FFT.
	Window window.Kind
	// ComputePhase enables the (otherwise unpopulated) phase spectrum.
	ComputePhase bool
	// MagnitudeFloorDB floors magnitude-to-dB conversions; must be negative.
	MagnitudeFloorDB float64
	// SampleRate is used only to convert bins to frequencies.
	SampleRate float64
}

// DefaultMagnitudeFloorDB matches the analyzer's documented default.
const DefaultMagnitudeFloorDB = -120.0

func (c Config) validate() error {
	if c.FFTSize < 32 || c.FFTSize > 2048 || !bitint.IsPowerOfTwo(c.FFTSize) {
		return fmt.Errorf("%w: fft_size %d must be a power of two in [32, 2048]", errs.ErrInvalid, c.FFTSize)
	}
	if c.HopSize < 0 || c.HopSize > c.FFTSize {
		return fmt.Errorf("%w: hop_size %d must be in [0, fft_size]", errs.ErrInvalid, c.HopSize)
	}
	if c.MagnitudeFloorDB >= 0 {
		return fmt.Errorf("%w: magnitude_floor_db must be negative", errs.ErrInvalid)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive", errs.ErrInvalid)
	}
	return nil
}

// Analyzer accumulates PCM samples into a fixed-size window, runs a real
// FFT once the window fills, and publishes magnitude/phase/peak results
// under a lock. It passes every input block through unchanged.
type Analyzer struct {
	cfg    Config
	hop    int
	window []float64
	fft    *fourier.FFT

	accum []int16
	pos   int

	fftInput  []float64
	fftOutput []complex128

	mu            sync.Mutex
	magnitude     []float64
	phase         []float64
	ready         bool
	processCount  uint64
	peakFrequency float64
	peakMagnitude float64
}

// New constructs an Analyzer. It fails with errs.ErrInvalid if cfg is
// out of range, and with errs.ErrOutOfMemory if MaxInstances analyzers
// already exist in this process.
func New(cfg Config) (*Analyzer, error) {
	if cfg.MagnitudeFloorDB == 0 {
		cfg.MagnitudeFloorDB = DefaultMagnitudeFloorDB
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	for {
		n := instanceCount.Load()
		if n >= MaxInstances {
			return nil, fmt.Errorf("%w: at most %d spectrum analyzer instances permitted", errs.ErrOutOfMemory, MaxInstances)
		}
		if instanceCount.CompareAndSwap(n, n+1) {
			break
		}
	}

	hop := cfg.HopSize
	if hop == 0 {
		hop = cfg.FFTSize
	}

	numBins := cfg.FFTSize / 2
	a := &Analyzer{
		cfg:       cfg,
		hop:       hop,
		window:    window.Generate(cfg.Window, cfg.FFTSize),
		fft:       fourier.NewFFT(cfg.FFTSize),
		accum:     make([]int16, cfg.FFTSize),
		fftInput:  make([]float64, cfg.FFTSize),
		fftOutput: make([]complex128, cfg.FFTSize/2+1),
		magnitude: make([]float64, numBins),
	}
	if cfg.ComputePhase {
		a.phase = make([]float64, numBins)
	}
	return a, nil
}

// Close releases this analyzer's slot in the process-wide instance cap.
// Safe to call at most once.
func (a *Analyzer) Close() {
	instanceCount.Add(-1)
}

// Step accumulates in's samples, running an FFT and publishing results
// whenever the accumulation buffer fills, then returns in unchanged. A
// nil input returns nil (there is nothing to accumulate or pass along).
func (a *Analyzer) Step(in *block.Block) *block.Block {
	if in == nil {
		return nil
	}

	n := copy(a.accum[a.pos:a.cfg.FFTSize], in.Data)
	a.pos += n

	if a.pos < a.cfg.FFTSize {
		return in
	}

	a.computeAndPublish()

	if a.hop < a.cfg.FFTSize {
		copy(a.accum, a.accum[a.hop:a.cfg.FFTSize])
		a.pos = a.cfg.FFTSize - a.hop
	} else {
		a.pos = 0
	}

	return in
}

func (a *Analyzer) computeAndPublish() {
	for i, s := range a.accum {
		a.fftInput[i] = (float64(s) / math.MaxInt16) * a.window[i]
	}

	a.fft.Coefficients(a.fftOutput, a.fftInput)

	numBins := a.cfg.FFTSize / 2
	magnitude := make([]float64, numBins)
	var phase []float64
	if a.cfg.ComputePhase {
		phase = make([]float64, numBins)
	}

	var peakMag float64
	var peakBin int
	for i := 0; i < numBins; i++ {
		re := real(a.fftOutput[i])
		im := imag(a.fftOutput[i])
		mag := math.Sqrt(re*re+im*im) / float64(a.cfg.FFTSize)
		magnitude[i] = mag
		if phase != nil {
			phase[i] = math.Atan2(im, re)
		}
		if i >= 1 && mag > peakMag {
			peakMag = mag
			peakBin = i
		}
	}

	a.mu.Lock()
	copy(a.magnitude, magnitude)
	if phase != nil {
		copy(a.phase, phase)
	}
	a.peakFrequency = BinToFreq(peakBin, a.cfg.FFTSize, a.cfg.SampleRate)
	a.peakMagnitude = peakMag
	a.processCount++
	a.ready = true
	a.mu.Unlock()
}

// Reset clears accumulation, the ready flag, process count, and peak
// fields, but preserves configuration (window coefficients, FFT plan).
func (a *Analyzer) Reset() {
	a.pos = 0
	for i := range a.accum {
		a.accum[i] = 0
	}

	a.mu.Lock()
	for i := range a.magnitude {
		a.magnitude[i] = 0
	}
	for i := range a.phase {
		a.phase[i] = 0
	}
	a.ready = false
	a.processCount = 0
	a.peakFrequency = 0
	a.peakMagnitude = 0
	a.mu.Unlock()
}

// GetSpectrum copies min(len(out), fft_size/2) magnitude bins into out,
// returning the number of bins copied. It returns errs.ErrNotReady
// before the first completed FFT.
func (a *Analyzer) GetSpectrum(out []float64) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return 0, errs.ErrNotReady
	}
	n := copy(out, a.magnitude)
	return n, nil
}

// GetSpectrumDB is GetSpectrum converted to dBFS relative to ref, each
// bin floored at the configured magnitude floor before conversion.
func (a *Analyzer) GetSpectrumDB(out []float64, ref float64) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return 0, errs.ErrNotReady
	}
	floor := math.Pow(10, a.cfg.MagnitudeFloorDB/20)
	n := len(out)
	if n > len(a.magnitude) {
		n = len(a.magnitude)
	}
	for i := 0; i < n; i++ {
		mag := a.magnitude[i]
		if mag < floor {
			mag = floor
		}
		out[i] = 20 * math.Log10(mag/ref)
	}
	return n, nil
}

// GetPhase copies min(len(out), fft_size/2) phase bins into out. It
// returns errs.ErrNotSupported if the analyzer was not configured with
// ComputePhase, and errs.ErrNotReady before the first completed FFT.
func (a *Analyzer) GetPhase(out []float64) (int, error) {
	if !a.cfg.ComputePhase {
		return 0, errs.ErrNotSupported
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return 0, errs.ErrNotReady
	}
	n := copy(out, a.phase)
	return n, nil
}

// GetPeak returns the peak bin's frequency and magnitude from the most
// recently completed FFT, or errs.ErrNotReady before the first one.
func (a *Analyzer) GetPeak() (freq, mag float64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return 0, 0, errs.ErrNotReady
	}
	return a.peakFrequency, a.peakMagnitude, nil
}

// ProcessCount returns the number of FFTs completed since construction
// or the last Reset.
func (a *Analyzer) ProcessCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.processCount
}

// BinToFreq converts an FFT bin index to a frequency in Hz.
func BinToFreq(bin, fftSize int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(fftSize)
}
