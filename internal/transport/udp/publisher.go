package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"audiofw/internal/log"
	"audiofw/internal/transport"
)

// UDPPublisher periodically fetches the spectrum magnitudes from a
// transport.SpectrumSource, packs them into a defined binary format, and
// sends them over UDP using a UDPSender. The peak readout is not fetched
// or sent. It runs in a separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender               // The underlying UDP sender instance.
	source   transport.SpectrumSource // Where magnitudes and peak come from.
	interval time.Duration            // The interval at which packets are sent.
	logger   *log.Logger

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Pre-allocated buffers to reduce allocations in the hot path (buildAndSendPacket).
	udpMagBuffer []float64     // Buffer to receive float64 magnitudes from the source.
	udpF32Buffer []float32     // Buffer to hold float32 magnitudes for binary packing.
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates and initializes a new UDPPublisher. binCount is
// the number of magnitude bins the source will return on each GetSpectrum
// call (fft_size/2 for a spectrum.Analyzer), used to pre-size the packing
// buffers.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source transport.SpectrumSource, binCount int, logger *log.Logger) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: spectrum source cannot be nil")
	}
	if binCount <= 0 {
		return nil, fmt.Errorf("UDPPublisher: binCount must be positive, got %d", binCount)
	}

	logger = logger.Named("transport.udp.publisher")

	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		logger.Warnf("invalid interval provided, defaulting to %s", interval)
	}

	logger.Infof("initializing (interval: %s, bins: %d)", interval, binCount)

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		logger:       logger,
		udpMagBuffer: make([]float64, binCount),
		udpF32Buffer: make([]float32, binCount),
		packetBuffer: new(bytes.Buffer),
		// mu, sequenceNum are zero-value ready
		// ticker, doneChan, stopOnce, wg are initialized in Start/Stop
	}, nil
}

// Start begins the periodic publishing process.
// It launches a goroutine that ticks at the configured interval, calling
// buildAndSendPacket on each tick until Stop is called.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	// Prevent starting if already running
	if p.ticker != nil {
		p.mu.Unlock()
		p.logger.Warnf("Start called but already running.")
		return
	}

	// Initialize resources for this run
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{} // Reset stopOnce for this run

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock() // Unlock before starting the potentially long-running goroutine

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.logger.Infof("publisher goroutine started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				// Time to send a packet
				p.buildAndSendPacket()
			case <-doneChan:
				// Stop signal received
				p.logger.Infof("publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It stops the internal ticker and closes the done channel.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	// Check if already stopped or never started
	if p.ticker == nil {
		p.mu.Unlock()
		p.logger.Debugf("Stop called but not running.")
		return nil
	}

	// Use sync.Once to ensure stop logic (closing channel, stopping ticker) runs only once
	p.stopOnce.Do(func() {
		p.logger.Infof("initiating stop sequence...")
		close(p.doneChan) // Signal the goroutine to exit
		p.ticker.Stop()   // Stop the ticker
		p.ticker = nil    // Mark as stopped
	})

	p.mu.Unlock() // Unlock before waiting

	// Wait for the publisher goroutine to finish processing the stop signal
	p.logger.Debugf("waiting for publisher goroutine to finish...")
	p.wg.Wait()
	p.logger.Infof("publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Array of spectrum bins  |
+-----------------------------------------------------------------------------+
*/

// buildAndSendPacket is the core function executed on each ticker interval.
// It fetches the latest spectrum magnitudes, packs the sequence number,
// timestamp, count and magnitudes into a binary buffer, and sends the
// packet using the UDPSender.
func (p *UDPPublisher) buildAndSendPacket() {
	n, err := p.source.GetSpectrum(p.udpMagBuffer)
	if err != nil {
		p.logger.Errorf("error getting spectrum: %v", err)
		return // Skip sending this packet
	}

	mags := p.udpMagBuffer[:n]
	if len(p.udpF32Buffer) < n {
		p.udpF32Buffer = make([]float32, n)
	}
	f32 := p.udpF32Buffer[:n]
	for i, v := range mags {
		f32[i] = float32(v)
	}

	// Prepare metadata for the packet header.
	p.sequenceNum++                    // Increment sequence number for this packet.
	timestamp := time.Now().UnixNano() // Get current time for the timestamp.
	magnitudeCount := uint16(n)        // Get the number of magnitude values.

	// Reset the reusable buffer before writing new packet data.
	p.packetBuffer.Reset()

	// Write header fields (Sequence, Timestamp, Count) using BigEndian byte order.
	// Chain error checks for cleaner code.
	err = binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, magnitudeCount)
	}

	// Write payload (Magnitudes) using BigEndian byte order.
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, f32)
	}

	if err != nil {
		p.logger.Errorf("error packing data into binary buffer: %v", err)
		return // Skip sending this packet
	}

	// Get the packed bytes from the buffer.
	packetBytes := p.packetBuffer.Bytes()

	// Send the packet using the underlying sender.
	if err := p.sender.Send(packetBytes); err != nil {
		// Error logging is handled within sender.Send.
		return
	}
	p.logger.Debugf("sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	p.logger.Debugf("Close called, stopping publisher...")
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
