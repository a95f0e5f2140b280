// Package capturewav is a debug sink: it taps a channel strip's or
// mixer's output stream and, while armed, writes every block it sees to
// a WAV file on disk for offline inspection. It is an auxiliary
// collaborator, not a rendering mode — nothing downstream of THE CORE
// depends on it being present.
package capturewav

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"audiofw/internal/block"
	"audiofw/internal/log"
)

// Writer is a node.Sequential that passes every block through unchanged
// while optionally recording it to a WAV file. Start/Stop arm and disarm
// recording independently of the strip's own lifecycle, mirroring the
// teacher's StartRecording/StopRecording split between "stream running"
// and "recording active."
type Writer struct {
	sampleRate int
	channels   int
	logger     *log.Logger

	mu        sync.Mutex
	file      *os.File
	enc       *wav.Encoder
	sampleBuf *audio.IntBuffer
	recording atomic.Bool
}

// NewWriter creates a Writer for PCM recorded at sampleRate with the
// given WAV channel count. Step writes each block's samples as they are,
// read as interleaved frames of that many channels; a channel strip's
// and a mixer's output blocks are both mono, so use 1 for either.
func NewWriter(sampleRate, channels int, logger *log.Logger) *Writer {
	return &Writer{
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger.Named("capturewav"),
	}
}

// Start opens filename and arms recording. It is an error to call Start
// while already recording.
func (w *Writer) Start(filename string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.recording.Load() {
		return fmt.Errorf("capturewav: already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("capturewav: create %s: %w", filename, err)
	}
	w.file = file
	w.enc = wav.NewEncoder(file, w.sampleRate, 16, w.channels, 1)
	w.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: w.channels,
			SampleRate:  w.sampleRate,
		},
		SourceBitDepth: 16,
	}

	w.recording.Store(true)
	w.logger.Infof("recording started: %s", filename)
	return nil
}

// Stop disarms recording and flushes the WAV encoder and file. It is a
// no-op if recording is not currently active.
func (w *Writer) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.recording.Load() {
		return nil
	}
	w.recording.Store(false)

	var err error
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
		w.file = nil
	}
	w.logger.Infof("recording stopped")
	return err
}

// Step writes in to the active WAV file, if recording, and always
// passes the block through to the next node unchanged. Step never
// releases or mutates in; capturewav is purely an observer on the data
// path, matching every other pass-through node's contract.
func (w *Writer) Step(in *block.Block) *block.Block {
	if in == nil || !w.recording.Load() {
		return in
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return in
	}

	n := in.Len()
	if cap(w.sampleBuf.Data) < n {
		w.sampleBuf.Data = make([]int, n)
	}
	w.sampleBuf.Data = w.sampleBuf.Data[:n]
	for i, s := range in.Data {
		w.sampleBuf.Data[i] = int(s)
	}

	if err := w.enc.Write(w.sampleBuf); err != nil {
		w.logger.Errorf("write failed: %v", err)
	}
	return in
}

// Reset is a no-op: the writer holds no per-block accumulator state,
// only the file handle managed by Start/Stop.
func (w *Writer) Reset() {}

// Close stops any in-progress recording and releases file resources. It
// should be deferred immediately after NewWriter by owners that may
// exit while still armed.
func (w *Writer) Close() error {
	return w.Stop()
}
