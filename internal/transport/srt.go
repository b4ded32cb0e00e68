package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	gosrt "github.com/datarhei/gosrt"

	"primestream/pkg/models"
)

// srtSender delivers packets over an SRT connection in live transmission
// mode. SRT handles retransmission and pacing internally; link estimates
// come from the connection's own statistics.
type srtSender struct {
	conn gosrt.Conn

	mu     sync.Mutex
	closed bool
}

func connectSRT(ctx context.Context, host string, port int, cfg SenderConfig) (Sender, error) {
	config := gosrt.DefaultConfig()
	config.TransmissionType = "live"
	if cfg.LatencyMS > 0 {
		config.Latency = time.Duration(cfg.LatencyMS) * time.Millisecond
	}
	if cfg.StreamKey != "" {
		config.StreamId = cfg.StreamKey
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := gosrt.Dial("srt", addr, config)
	if err != nil {
		return nil, fmt.Errorf("%w: srt dial %s: %v", ErrConnectionFailed, addr, err)
	}
	return &srtSender{conn: conn}, nil
}

// Send writes one encoded payload as a single SRT message
func (s *srtSender) Send(packet *models.EncodedPacket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrNotConnected
	}
	n, err := s.conn.Write(packet.Payload)
	if err != nil {
		return n, fmt.Errorf("srt write: %w", err)
	}
	return n, nil
}

// Feedback maps SRT connection statistics onto NetworkStats
func (s *srtSender) Feedback() models.NetworkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.NetworkStats{}
	}

	var stats gosrt.Statistics
	s.conn.Stats(&stats)

	return models.NetworkStats{
		PacketsSent: stats.Accumulated.PktSent,
		PacketsLost: stats.Accumulated.PktSendLoss,
		BytesSent:   stats.Accumulated.ByteSent,
		RTT:         time.Duration(stats.Instantaneous.MsRTT * float64(time.Millisecond)),
	}
}

// Close tears the SRT connection down
func (s *srtSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.Close()
	return nil
}
