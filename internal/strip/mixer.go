package strip

import (
	"fmt"
	"sync/atomic"
	"time"

	"audiofw/internal/block"
	"audiofw/internal/errs"
	"audiofw/internal/log"
	"audiofw/internal/pcm"
	"audiofw/internal/queue"
)

// Mixer composes several channel strips and an optional master strip,
// processed in lock-step: on iteration k every attached channel runs
// against the same input block index before iteration k+1 begins. It is
// the unique owner of its channels' input for the duration of its
// worker — strips attached to a mixer must not be driven externally
// while attached.
type Mixer struct {
	channels    []*ChannelStrip
	maxChannels int
	master      *ChannelStrip

	in  *queue.Queue
	out *queue.Queue

	pool   *block.Pool
	logger *log.Logger

	running     atomic.Bool
	stop        atomic.Bool
	done        chan struct{}
	takeTimeout time.Duration
}

// NewMixer creates an empty mixer with room for up to maxChannels
// (MIXER_MAX_CHANNELS) channel strips and an input queue of the given
// capacity.
func NewMixer(maxChannels, inputQueueCapacity int, pool *block.Pool, logger *log.Logger) *Mixer {
	return &Mixer{
		maxChannels: maxChannels,
		in:          queue.New(inputQueueCapacity),
		pool:        pool,
		logger:      logger.Named("mixer"),
	}
}

// AddChannel attaches a channel strip, returning its channel index. It
// fails with errs.ErrFull once maxChannels channels are attached.
func (m *Mixer) AddChannel(s *ChannelStrip) (int, error) {
	if len(m.channels) >= m.maxChannels {
		return -1, fmt.Errorf("%w: mixer already has %d channels", errs.ErrFull, m.maxChannels)
	}
	m.channels = append(m.channels, s)
	return len(m.channels) - 1, nil
}

// SetMaster attaches (or clears, with nil) the master bus strip that the
// summed channel output is run through before being returned.
func (m *Mixer) SetMaster(s *ChannelStrip) {
	m.master = s
}

// ChannelCount returns the number of attached channel strips.
func (m *Mixer) ChannelCount() int {
	return len(m.channels)
}

// SetOutput attaches (or clears, with nil) the mixer's output queue.
func (m *Mixer) SetOutput(q *queue.Queue) {
	m.out = q
}

// PushInput enqueues a block from an external producer.
func (m *Mixer) PushInput(b *block.Block) bool {
	return m.in.Put(b)
}

// ProcessBlock runs in through every channel strip, sums the results
// with saturation, and (if a master strip is set) runs the sum through
// it. A channel whose per-channel block cannot be acquired contributes
// silence for that iteration rather than aborting the whole mix — the
// shortfall is only observable via the pool's Stats, not an error.
func (m *Mixer) ProcessBlock(in *block.Block) *block.Block {
	if in == nil {
		return nil
	}

	mix, err := m.pool.Acquire()
	if err != nil {
		m.pool.Release(in)
		return nil
	}

	for _, ch := range m.channels {
		chBlock, err := m.pool.Acquire()
		if err != nil {
			m.logger.Warnf("channel %q silent this cycle: %v", ch.Name, err)
			continue
		}
		copy(chBlock.Data, in.Data)

		result := ch.ProcessBlock(chBlock)
		if result == nil {
			continue
		}
		pcm.SumSaturate(mix.Data, result.Data)
		m.pool.Release(result)
	}

	m.pool.Release(in)

	if m.master != nil {
		return m.master.ProcessBlock(mix)
	}
	return mix
}

// Start launches the mixer's synchronized worker goroutine.
func (m *Mixer) Start(priority int, takeTimeout time.Duration) {
	m.running.Store(true)
	m.stop.Store(false)
	m.done = make(chan struct{})
	m.takeTimeout = takeTimeout

	go func() {
		defer close(m.done)
		m.logger.Infof("mixer worker started (priority=%d, channels=%d)", priority, len(m.channels))
		for !m.stop.Load() {
			b, ok := m.in.Take(m.takeTimeout)
			if !ok {
				continue
			}
			result := m.ProcessBlock(b)
			if result == nil {
				continue
			}
			if m.out != nil && m.out.Put(result) {
				continue
			}
			m.pool.Release(result)
		}
		m.logger.Infof("mixer worker stopped")
	}()
}

// Stop requests the worker exit after its current cycle, and blocks
// until it has.
func (m *Mixer) Stop() {
	if !m.running.Load() {
		return
	}
	m.stop.Store(true)
	<-m.done
	m.running.Store(false)
}
