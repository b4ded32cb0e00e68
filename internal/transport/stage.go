package transport

import (
	"context"
	"sync"

	"primestream/pkg/models"
)

// Stage owns the transport session for one stream: it serializes packets
// through the sender, keeps packet/byte counters and folds protocol feedback
// into the network statistics between sends.
type Stage struct {
	dial DialFunc

	mu        sync.Mutex
	sender    Sender
	connected bool
	stats     models.NetworkStats
}

// DialFunc establishes a transport session to host:port
type DialFunc func(ctx context.Context, host string, port int) (Sender, error)

// NewStage creates a transport stage for the given protocol
func NewStage(protocol Protocol, cfg SenderConfig) *Stage {
	return NewStageWithDialer(func(ctx context.Context, host string, port int) (Sender, error) {
		return Connect(ctx, protocol, host, port, cfg)
	})
}

// NewStageWithDialer creates a transport stage over a custom dialer
func NewStageWithDialer(dial DialFunc) *Stage {
	return &Stage{dial: dial}
}

// Connect establishes the transport session. Fails with ErrConnectionFailed
// and leaves the stage disconnected on any backend error.
func (s *Stage) Connect(ctx context.Context, host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	sender, err := s.dial(ctx, host, port)
	if err != nil {
		return err
	}

	s.sender = sender
	s.connected = true
	s.stats = models.NetworkStats{}
	return nil
}

// SendPacket delivers one encoded packet and updates counters. The packet is
// consumed: its payload must not be reused by the caller after this returns.
func (s *Stage) SendPacket(packet *models.EncodedPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}

	n, err := s.sender.Send(packet)
	if err != nil {
		return err
	}

	s.stats.PacketsSent++
	s.stats.BytesSent += uint64(n)

	// Fold protocol feedback, keeping our own monotonic counters when the
	// backend does not track them itself.
	fb := s.sender.Feedback()
	if fb.PacketsSent > s.stats.PacketsSent {
		s.stats.PacketsSent = fb.PacketsSent
	}
	if fb.BytesSent > s.stats.BytesSent {
		s.stats.BytesSent = fb.BytesSent
	}
	s.stats.PacketsLost = fb.PacketsLost
	if fb.RTT > 0 {
		s.stats.RTT = fb.RTT
	}
	if fb.Jitter > 0 {
		s.stats.Jitter = fb.Jitter
	}
	if fb.BandwidthKbps > 0 {
		s.stats.BandwidthKbps = fb.BandwidthKbps
	}
	return nil
}

// Disconnect closes the session. Idempotent, always succeeds.
func (s *Stage) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sender != nil {
		s.sender.Close()
		s.sender = nil
	}
	s.connected = false
}

// Connected reports whether a session is established
func (s *Stage) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Stats returns a snapshot of the network statistics
func (s *Stage) Stats() models.NetworkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
