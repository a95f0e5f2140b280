// Package utils holds small test fixtures shared across package test
// files: synthetic PCM waveform generators and a peak-bin finder for
// verifying spectrum output, plus a MockTransport standing in for a
// real network transport in tests that only care what was published.
package utils

import "math"

// MockTransport implements transport.Transport for testing: instead of
// sending anywhere, it appends every value passed to Send to LastData, in
// order, so a test can assert on what a pipeline published.
type MockTransport struct {
	LastData []any
	closed   bool
}

// Send records data for later inspection instead of transmitting it.
func (m *MockTransport) Send(data any) error {
	m.LastData = append(m.LastData, data)
	return nil
}

// Close marks the transport closed; Closed reports the result.
func (m *MockTransport) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockTransport) Closed() bool { return m.closed }

// GenerateComplexWave fills a buffer of int16 PCM samples with a
// 440/880/1320 Hz harmonic series at 90% of full scale, mirroring the
// kind of fixture the spectrum analyzer's peak-detection tests feed in.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = int16(signal * math.MaxInt16 * 0.9)
	}
	return buffer
}

// GenerateSineWave fills a buffer of int16 PCM samples with a single
// sine tone at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin] inclusive, clamping the range to the
// slice's bounds. It returns 0 for an empty slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
