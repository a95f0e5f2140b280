// Package errs defines the error taxonomy shared across the pipeline
// framework. Every package in the core returns one of these sentinels
// (wrapped with context via fmt.Errorf("%w: ...")) instead of inventing
// its own error kind, so callers can branch with errors.Is regardless of
// which component failed.
package errs

import "errors"

var (
	// ErrOutOfMemory is returned when a fixed-capacity pool is exhausted.
	// Producers skip output for that step; mutators release the block and
	// emit nothing; mixers treat the affected channel as silent.
	ErrOutOfMemory = errors.New("audiofw: out of memory")

	// ErrInvalid is returned for bad construction-time configuration (for
	// example a non-power-of-two FFT size). The object is left
	// uninitialized.
	ErrInvalid = errors.New("audiofw: invalid configuration")

	// ErrNotReady is returned by a readout attempted before enough data
	// has accumulated to produce a result.
	ErrNotReady = errors.New("audiofw: not ready")

	// ErrNotSupported is returned for a feature query against a
	// capability that was not enabled at construction time.
	ErrNotSupported = errors.New("audiofw: not supported")

	// ErrFull is returned when a static-capacity collection (strip node
	// list, mixer channel list, splitter output list) is already at its
	// configured limit.
	ErrFull = errors.New("audiofw: capacity exceeded")
)
