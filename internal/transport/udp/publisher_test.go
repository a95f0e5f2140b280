package udp

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"
)

type fakeSource struct {
	mags []float64
	freq float64
	mag  float64
	err  error
}

func (f *fakeSource) GetSpectrum(out []float64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := copy(out, f.mags)
	return n, nil
}

func (f *fakeSource) GetPeak() (float64, float64, error) {
	return f.freq, f.mag, f.err
}

func listenUDP(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	return conn, conn.LocalAddr().String()
}

func TestUDPPublisherSendsPacketOnTick(t *testing.T) {
	conn, addr := listenUDP(t)
	defer conn.Close()

	sender, err := NewUDPSender(addr, nil)
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	source := &fakeSource{mags: []float64{0.1, 0.2, 0.3}}
	pub, err := NewUDPPublisher(5*time.Millisecond, sender, source, 3, nil)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}

	pub.Start()
	defer pub.Stop()

	buf := make([]byte, 1024)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if n < 14 {
		t.Fatalf("packet too short: %d bytes", n)
	}
	seq := binary.BigEndian.Uint32(buf[0:4])
	if seq == 0 {
		t.Errorf("sequence number = 0, want nonzero")
	}
	count := binary.BigEndian.Uint16(buf[12:14])
	if count != 3 {
		t.Errorf("magnitude count = %d, want 3", count)
	}
	if n != 14+4*3 {
		t.Errorf("packet length = %d, want %d", n, 14+4*3)
	}
}

func TestUDPPublisherSkipsPacketOnSourceError(t *testing.T) {
	conn, addr := listenUDP(t)
	defer conn.Close()

	sender, err := NewUDPSender(addr, nil)
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	source := &fakeSource{err: errors.New("not ready")}
	pub, err := NewUDPPublisher(5*time.Millisecond, sender, source, 3, nil)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}

	pub.Start()
	defer pub.Stop()

	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 1024)
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected no packet to arrive while the source errors")
	}
}

func TestUDPPublisherStartStopIsIdempotent(t *testing.T) {
	conn, addr := listenUDP(t)
	defer conn.Close()

	sender, err := NewUDPSender(addr, nil)
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	source := &fakeSource{mags: []float64{0.5}}
	pub, err := NewUDPPublisher(5*time.Millisecond, sender, source, 1, nil)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}

	pub.Start()
	pub.Start() // no-op, already running
	if err := pub.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNewUDPPublisherRejectsNilCollaborators(t *testing.T) {
	conn, addr := listenUDP(t)
	defer conn.Close()
	sender, err := NewUDPSender(addr, nil)
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	if _, err := NewUDPPublisher(time.Millisecond, nil, &fakeSource{}, 1, nil); err == nil {
		t.Error("expected error for nil sender")
	}
	if _, err := NewUDPPublisher(time.Millisecond, sender, nil, 1, nil); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewUDPPublisher(time.Millisecond, sender, &fakeSource{}, 0, nil); err == nil {
		t.Error("expected error for non-positive binCount")
	}
}
