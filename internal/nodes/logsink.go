package nodes

import (
	"audiofw/internal/block"
	"audiofw/internal/log"
)

// LogSink is a terminal node: it consumes a block, logs its peak sample
// and current reference count, releases it, and returns nil — nothing
// downstream of a log sink ever runs.
type LogSink struct {
	pool   *block.Pool
	logger *log.Logger
}

// NewLogSink creates a log sink that releases every block it sees back
// to pool, reporting through logger.
func NewLogSink(pool *block.Pool, logger *log.Logger) *LogSink {
	return &LogSink{pool: pool, logger: logger.Named("logsink")}
}

// Step reports in's peak and refcount, releases it, and returns nil.
func (n *LogSink) Step(in *block.Block) *block.Block {
	if in == nil {
		return nil
	}

	var peak int16
	for _, s := range in.Data {
		av := s
		if av < 0 {
			av = -av
		}
		if av > peak {
			peak = av
		}
	}

	n.logger.Infof("block peak=%d refcount=%d", peak, in.RefCount())
	n.pool.Release(in)
	return nil
}

// Reset is a no-op: the sink carries no state.
func (n *LogSink) Reset() {}
