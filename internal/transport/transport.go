// Package transport fans spectrum analyzer snapshots out to external
// subscribers over the network — the "safe concurrent readout" named in
// the analyzer's readout contract, extended past the process boundary
// for integrators who want to observe a running pipeline from outside.
package transport

// Transport defines a generic interface for sending processed data or
// events. Implementations must be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Snapshot is the serializable readout of one completed spectrum
// analyzer cycle, the unit published to every Transport.
type Snapshot struct {
	SequenceNumber uint64    `json:"seq"`
	TimestampNanos int64     `json:"ts"`
	Magnitudes     []float32 `json:"magnitudes"`
	PeakFrequency  float64   `json:"peak_freq"`
	PeakMagnitude  float64   `json:"peak_mag"`
}

// SpectrumSource is the minimal view of a spectrum.Analyzer a publisher
// needs: enough to pull a snapshot without importing the full analyzer
// API surface.
type SpectrumSource interface {
	GetSpectrum(out []float64) (int, error)
	GetPeak() (freq, mag float64, err error)
}
