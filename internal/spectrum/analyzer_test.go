package spectrum

import (
	"errors"
	"math"
	"testing"

	"audiofw/internal/block"
	"audiofw/internal/errs"
	"audiofw/internal/spectrum/window"
)

const testSampleRate = 48000.0

func feedSine(t *testing.T, a *Analyzer, pool *block.Pool, freqHz float64, totalSamples int) {
	t.Helper()
	phase := 0.0
	step := 2 * math.Pi * freqHz / testSampleRate
	const blockSamples = 64

	remaining := totalSamples
	for remaining > 0 {
		n := blockSamples
		if n > remaining {
			n = remaining
		}
		b, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		b.Data = b.Data[:n]
		for i := 0; i < n; i++ {
			b.Data[i] = int16(0.5 * math.MaxInt16 * math.Sin(phase))
			phase += step
		}
		out := a.Step(b)
		pool.Release(out)
		remaining -= n
	}
}

func TestAnalyzerPeakDetection(t *testing.T) {
	pool := block.NewPool(4, 64, nil)
	a, err := New(Config{FFTSize: 512, Window: window.Hann, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	feedSine(t, a, pool, 1000, 512)

	freq, mag, err := a.GetPeak()
	if err != nil {
		t.Fatalf("GetPeak: %v", err)
	}

	tolerance := (testSampleRate / 512) * 2
	if math.Abs(freq-1000) > tolerance {
		t.Errorf("peak freq = %v, want within %v of 1000", freq, tolerance)
	}
	if mag <= 0.4 {
		t.Errorf("peak magnitude = %v, want > 0.4", mag)
	}
}

func TestAnalyzerSilenceProducesLowMagnitudes(t *testing.T) {
	pool := block.NewPool(4, 64, nil)
	a, err := New(Config{FFTSize: 256, Window: window.Hann, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	b, _ := pool.Acquire()
	b.Data = b.Data[:64]
	out := a.Step(b)
	pool.Release(out)
	for i := 0; i < 3; i++ {
		b, _ := pool.Acquire()
		b.Data = b.Data[:64]
		out := a.Step(b)
		pool.Release(out)
	}

	spectrum := make([]float64, 128)
	if _, err := a.GetSpectrum(spectrum); err != nil {
		t.Fatalf("GetSpectrum: %v", err)
	}
	for i, v := range spectrum {
		if v >= 0.01 {
			t.Errorf("bin %d = %v, want < 0.01 on silence", i, v)
		}
	}
}

func TestAnalyzerGetSpectrumNotReadyBeforeFirstFFT(t *testing.T) {
	a, err := New(Config{FFTSize: 64, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	out := make([]float64, 32)
	if _, err := a.GetSpectrum(out); !errors.Is(err, errs.ErrNotReady) {
		t.Errorf("GetSpectrum before first FFT: err = %v, want ErrNotReady", err)
	}
	if _, _, err := a.GetPeak(); !errors.Is(err, errs.ErrNotReady) {
		t.Errorf("GetPeak before first FFT: err = %v, want ErrNotReady", err)
	}
}

func TestAnalyzerPhaseNotSupportedWhenDisabled(t *testing.T) {
	a, err := New(Config{FFTSize: 64, SampleRate: testSampleRate, ComputePhase: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	out := make([]float64, 32)
	if _, err := a.GetPhase(out); !errors.Is(err, errs.ErrNotSupported) {
		t.Errorf("GetPhase: err = %v, want ErrNotSupported", err)
	}
}

func TestAnalyzerInvalidFFTSizeFailsInit(t *testing.T) {
	if _, err := New(Config{FFTSize: 1000, SampleRate: testSampleRate}); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("New with fft_size=1000: err = %v, want ErrInvalid", err)
	}
}

func TestAnalyzerMaxInstancesEnforced(t *testing.T) {
	var created []*Analyzer
	defer func() {
		for _, a := range created {
			a.Close()
		}
	}()

	for i := 0; i < MaxInstances; i++ {
		a, err := New(Config{FFTSize: 32, SampleRate: testSampleRate})
		if err != nil {
			t.Fatalf("New #%d: %v", i, err)
		}
		created = append(created, a)
	}

	if _, err := New(Config{FFTSize: 32, SampleRate: testSampleRate}); !errors.Is(err, errs.ErrOutOfMemory) {
		t.Errorf("New beyond MaxInstances: err = %v, want ErrOutOfMemory", err)
	}
}

func TestAnalyzerBoundedAccumulationPosition(t *testing.T) {
	pool := block.NewPool(4, 64, nil)
	a, err := New(Config{FFTSize: 128, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	for i := 0; i < 10; i++ {
		b, _ := pool.Acquire()
		b.Data = b.Data[:64]
		out := a.Step(b)
		pool.Release(out)
		if a.pos < 0 || a.pos >= a.cfg.FFTSize {
			t.Fatalf("pos = %d out of bounds after step %d", a.pos, i)
		}
	}
}

func TestBinToFreqEndpoints(t *testing.T) {
	const fftSize = 512
	if got := BinToFreq(0, fftSize, testSampleRate); got != 0 {
		t.Errorf("BinToFreq(0) = %v, want 0", got)
	}
	want := testSampleRate / 2
	if got := BinToFreq(fftSize/2, fftSize, testSampleRate); got != want {
		t.Errorf("BinToFreq(fftSize/2) = %v, want %v", got, want)
	}
}

func TestAnalyzerResetClearsReadyAndPreservesConfig(t *testing.T) {
	pool := block.NewPool(4, 64, nil)
	a, err := New(Config{FFTSize: 64, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	feedSine(t, a, pool, 1000, 64)
	if _, _, err := a.GetPeak(); err != nil {
		t.Fatalf("expected ready after a full window: %v", err)
	}

	a.Reset()
	if _, _, err := a.GetPeak(); !errors.Is(err, errs.ErrNotReady) {
		t.Errorf("after Reset: err = %v, want ErrNotReady", err)
	}
	if cnt := a.ProcessCount(); cnt != 0 {
		t.Errorf("ProcessCount after Reset = %d, want 0", cnt)
	}
	if a.cfg.FFTSize != 64 {
		t.Errorf("Reset must preserve configuration, fft_size = %d", a.cfg.FFTSize)
	}
}
