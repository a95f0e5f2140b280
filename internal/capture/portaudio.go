// Package capture adapts a real input device into THE CORE's block
// pipeline. It is explicitly an external collaborator: hardware I/O sits
// outside the block pool / queue / node model, but the framework needs a
// named seam for it so a channel strip or engine can be fed from a
// microphone or line input instead of a synthetic source.
package capture

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"audiofw/internal/block"
	"audiofw/internal/errs"
	"audiofw/internal/log"
	"audiofw/internal/queue"
)

// Source is the minimal capability a capture backend must provide:
// start delivering blocks into its output queue, and stop.
type Source interface {
	Start() error
	Stop() error
	Close() error
}

// MinDeviceID requests the platform default input device.
const MinDeviceID = -1

// PortAudioSource captures from a PortAudio input stream, keeps only the
// first channel of each frame when the device has more than one input
// channel (the other channels are discarded, not mixed in), converts
// PortAudio's native int32 samples to the pipeline's int16 PCM, and
// pushes one pool block per callback onto Out.
//
// Like the teacher's processInputStream, the portaudio callback runs on
// its own realtime thread; PortAudioSource never allocates once Start
// has returned, reusing a single downmix buffer for the stream's
// lifetime.
type PortAudioSource struct {
	pool *block.Pool
	out  *queue.Queue

	device          *portaudio.DeviceInfo
	stream          *portaudio.Stream
	channels        int
	framesPerBuffer int
	lowLatency      bool

	inputBuffer []int32
	monoBuffer  []int32

	logger *log.Logger
}

// Config describes how to open the input stream.
type Config struct {
	DeviceIndex     int // MinDeviceID for the platform default.
	InputChannels   int
	FramesPerBuffer int
	SampleRate      float64
	LowLatency      bool
}

// NewPortAudioSource resolves deviceID to a concrete input device and
// prepares (but does not start) a PortAudioSource delivering blocks of
// cfg.FramesPerBuffer samples to out. The pool's block size must equal
// cfg.FramesPerBuffer.
func NewPortAudioSource(cfg Config, pool *block.Pool, out *queue.Queue, logger *log.Logger) (*PortAudioSource, error) {
	if pool.BlockSamples() != cfg.FramesPerBuffer {
		return nil, fmt.Errorf("%w: pool block size %d does not match frames_per_buffer %d",
			errs.ErrInvalid, pool.BlockSamples(), cfg.FramesPerBuffer)
	}
	if cfg.InputChannels <= 0 {
		return nil, fmt.Errorf("%w: input_channels must be positive, got %d", errs.ErrInvalid, cfg.InputChannels)
	}

	device, err := inputDevice(cfg.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("capture: resolve input device: %w", err)
	}

	s := &PortAudioSource{
		pool:            pool,
		out:             out,
		device:          device,
		channels:        cfg.InputChannels,
		framesPerBuffer: cfg.FramesPerBuffer,
		lowLatency:      cfg.LowLatency,
		inputBuffer:     make([]int32, cfg.FramesPerBuffer*cfg.InputChannels),
		logger:          logger.Named("capture.portaudio"),
	}
	if cfg.InputChannels > 1 {
		s.monoBuffer = make([]int32, cfg.FramesPerBuffer)
	}
	return s, nil
}

// Start opens and starts the PortAudio input stream. Each callback
// acquires one block from the pool, writes the first channel of the
// callback's samples into it downconverted to int16, and pushes it to Out. If the pool is
// exhausted or Out is full, the block for that callback is dropped —
// capture never blocks the realtime audio thread.
func (s *PortAudioSource) Start() error {
	latency := s.device.DefaultHighInputLatency
	if s.lowLatency {
		latency = s.device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: s.channels,
			Device:   s.device,
			Latency:  latency,
		},
		FramesPerBuffer: s.framesPerBuffer,
		SampleRate:      s.device.DefaultSampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.onCallback)
	if err != nil {
		return fmt.Errorf("capture: open stream: %w", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		s.stream = nil
		return fmt.Errorf("capture: start stream: %w", err)
	}
	s.logger.Infof("capture started on %q (%d ch, %d frames/buffer)", s.device.Name, s.channels, s.framesPerBuffer)
	return nil
}

// onCallback is the PortAudio realtime callback: no allocation, no
// blocking, drop-on-backpressure.
func (s *PortAudioSource) onCallback(in []int32) {
	copy(s.inputBuffer, in)

	mono := s.inputBuffer
	if s.channels > 1 {
		for i := 0; i < s.framesPerBuffer; i++ {
			idx := i * s.channels
			if idx < len(s.inputBuffer) {
				s.monoBuffer[i] = s.inputBuffer[idx]
			} else {
				s.monoBuffer[i] = 0
			}
		}
		mono = s.monoBuffer
	}

	b, err := s.pool.Acquire()
	if err != nil {
		return
	}
	n := s.framesPerBuffer
	if n > len(b.Data) {
		n = len(b.Data)
	}
	for i := 0; i < n; i++ {
		b.Data[i] = int16(mono[i] >> 16)
	}

	if !s.out.Put(b) {
		s.pool.Release(b)
	}
}

// Stop stops and closes the PortAudio stream. It is safe to call Stop
// without a prior Start.
func (s *PortAudioSource) Stop() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("capture: stop stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("capture: close stream: %w", err)
	}
	s.stream = nil
	s.logger.Infof("capture stopped")
	return nil
}

// Close stops the stream if running. PortAudioSource does not own the
// package-level PortAudio subsystem; callers must pair Initialize/
// Terminate around the lifetime of every PortAudioSource they create.
func (s *PortAudioSource) Close() error {
	return s.Stop()
}

var _ Source = (*PortAudioSource)(nil)

// Initialize sets up the PortAudio subsystem. Must be called once before
// constructing any PortAudioSource, paired with a deferred Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("capture: initialize portaudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("capture: terminate portaudio: %w", err)
	}
	return nil
}

func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == MinDeviceID {
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: invalid device id %d", errs.ErrInvalid, deviceID)
	}
	return devices[deviceID], nil
}

// pollTimeout is the interval an integrator's draining loop should use
// when taking blocks off Out; exported as a documented default rather
// than a magic number scattered across call sites.
const pollTimeout = 50 * time.Millisecond

// PollTimeout returns the recommended Take timeout for a consumer
// draining a PortAudioSource's output queue.
func PollTimeout() time.Duration { return pollTimeout }
