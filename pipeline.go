// Package audiofw wires THE CORE collaborators together into a ready to
// run pipeline: a block pool, a mixer bus, a spectrum analyzer tapping
// the mixer's output, and zero or more network transports publishing
// analyzer snapshots. It is a convenience for integrators, not a new
// layer of abstraction — every type it touches is fully usable on its
// own from internal/block, internal/strip, internal/spectrum and
// internal/transport.
//
// No cmd/ application or interactive device picker is built on top of
// this; topology (which strips feed which mixer, which transports are
// attached) is assembled once at startup and is not meant to change
// while the pipeline runs.
package audiofw

import (
	"sync/atomic"
	"time"

	"audiofw/internal/block"
	"audiofw/internal/config"
	"audiofw/internal/log"
	"audiofw/internal/queue"
	"audiofw/internal/spectrum"
	"audiofw/internal/strip"
	"audiofw/internal/transport"
)

// Pipeline bundles a block pool, a mixer, and a spectrum analyzer
// tapping the mixer's output stream, publishing snapshots to any
// attached transports as FFTs complete.
type Pipeline struct {
	Pool     *block.Pool
	Mixer    *strip.Mixer
	Analyzer *spectrum.Analyzer

	cfg    *config.Config
	logger *log.Logger
	out    *queue.Queue

	transports []transport.Transport

	running atomic.Bool
	stop    atomic.Bool
	done    chan struct{}
	seq     atomic.Uint64
}

// New builds a Pipeline from cfg: a pool sized by BlockSamples/
// PoolCapacity, an empty mixer with room for MixerMaxChannels channel
// strips, and a spectrum analyzer tapping the mixer's output. The
// analyzer is always built: New fails if cfg.Spectrum is out of range
// (an FFTSize of zero included). Callers still attach channel strips via
// Mixer.AddChannel and transports via AddTransport before calling Start.
func New(cfg *config.Config, logger *log.Logger) (*Pipeline, error) {
	logger = logger.Named("audiofw")

	pool := block.NewPool(cfg.PoolCapacity, cfg.BlockSamples, logger.Named("pool"))
	mixer := strip.NewMixer(cfg.MixerMaxChannels, cfg.PoolCapacity, pool, logger)

	analyzer, err := spectrum.New(spectrum.Config{
		FFTSize:          cfg.Spectrum.FFTSize,
		HopSize:          cfg.Spectrum.HopSize,
		Window:           cfg.WindowKind(),
		ComputePhase:     cfg.Spectrum.ComputePhase,
		MagnitudeFloorDB: cfg.Spectrum.MagnitudeFloorDB,
		SampleRate:       float64(cfg.SampleRate),
	})
	if err != nil {
		return nil, err
	}

	out := queue.New(cfg.PoolCapacity)
	mixer.SetOutput(out)

	return &Pipeline{
		Pool:     pool,
		Mixer:    mixer,
		Analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
		out:      out,
	}, nil
}

// AddTransport attaches a transport that will receive a transport.Snapshot
// every time the analyzer completes an FFT while the pipeline is running.
// Transports must be attached before Start.
func (p *Pipeline) AddTransport(t transport.Transport) {
	p.transports = append(p.transports, t)
}

// PushInput feeds one block into the mixer, as an external capture
// source (see internal/capture) would. Ownership transfers to the
// mixer.
func (p *Pipeline) PushInput(b *block.Block) bool {
	return p.Mixer.PushInput(b)
}

// Start launches the mixer's worker and a drain goroutine that runs
// every mixed block through the spectrum analyzer, releases it, and
// publishes a snapshot to every attached transport whenever the
// analyzer's process count advances.
func (p *Pipeline) Start(priority int, takeTimeout time.Duration) {
	p.running.Store(true)
	p.stop.Store(false)
	p.done = make(chan struct{})

	p.Mixer.Start(priority, takeTimeout)

	go func() {
		defer close(p.done)
		lastCount := p.Analyzer.ProcessCount()
		for !p.stop.Load() {
			b, ok := p.out.Take(takeTimeout)
			if !ok {
				continue
			}
			out := p.Analyzer.Step(b)
			p.Pool.Release(out)

			if n := p.Analyzer.ProcessCount(); n != lastCount {
				lastCount = n
				p.publish()
			}
		}
	}()
}

// publish builds a transport.Snapshot from the analyzer's latest readout
// and sends it to every attached transport, best-effort.
func (p *Pipeline) publish() {
	numBins := p.cfg.Spectrum.FFTSize / 2
	mags := make([]float32, numBins)
	buf := make([]float64, numBins)
	n, err := p.Analyzer.GetSpectrum(buf)
	if err != nil {
		return
	}
	for i := 0; i < n; i++ {
		mags[i] = float32(buf[i])
	}

	freq, mag, err := p.Analyzer.GetPeak()
	if err != nil {
		return
	}

	snapshot := transport.Snapshot{
		SequenceNumber: p.seq.Add(1),
		TimestampNanos: time.Now().UnixNano(),
		Magnitudes:     mags,
		PeakFrequency:  freq,
		PeakMagnitude:  mag,
	}

	for _, t := range p.transports {
		if err := t.Send(snapshot); err != nil {
			p.logger.Warnf("transport send failed: %v", err)
		}
	}
}

// Stop halts the drain goroutine and the mixer's worker, in that order,
// blocking until both have exited.
func (p *Pipeline) Stop() {
	if !p.running.Load() {
		return
	}
	p.stop.Store(true)
	<-p.done
	p.Mixer.Stop()
	p.running.Store(false)
}

// Close releases the analyzer's process-wide instance slot and closes
// every attached transport. It should be called once, after Stop.
func (p *Pipeline) Close() error {
	p.Analyzer.Close()
	var firstErr error
	for _, t := range p.transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
