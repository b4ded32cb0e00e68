package transport

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yutopp/go-rtmp"
	rtmpmsg "github.com/yutopp/go-rtmp/message"

	"primestream/pkg/models"
)

const (
	rtmpChunkSize     = 128
	rtmpVideoChunkSID = 6
)

// rtmpSender publishes encoded video to an RTMP ingest endpoint. RTMP rides
// on TCP, so there is no loss feedback; counters come from the stage.
type rtmpSender struct {
	conn   *rtmp.ClientConn
	stream *rtmp.Stream

	mu     sync.Mutex
	closed bool
}

func connectRTMP(host string, port int, cfg SenderConfig) (Sender, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	conn, err := rtmp.Dial("rtmp", addr, &rtmp.ConnConfig{})
	if err != nil {
		return nil, fmt.Errorf("%w: rtmp dial %s: %v", ErrConnectionFailed, addr, err)
	}

	if err := conn.Connect(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: rtmp connect: %v", ErrConnectionFailed, err)
	}

	stream, err := conn.CreateStream(nil, rtmpChunkSize)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: rtmp create stream: %v", ErrConnectionFailed, err)
	}

	name := cfg.StreamKey
	if name == "" {
		name = "primestream"
	}
	if err := stream.Publish(&rtmpmsg.NetStreamPublish{
		PublishingName: name,
		PublishingType: "live",
	}); err != nil {
		stream.Close()
		conn.Close()
		return nil, fmt.Errorf("%w: rtmp publish: %v", ErrConnectionFailed, err)
	}

	return &rtmpSender{conn: conn, stream: stream}, nil
}

// Send writes one encoded frame as an RTMP video message
func (s *rtmpSender) Send(packet *models.EncodedPacket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrNotConnected
	}

	timestamp := uint32(packet.PTS.Milliseconds())
	msg := &rtmpmsg.VideoMessage{Payload: bytes.NewReader(packet.Payload)}
	if err := s.stream.Write(rtmpVideoChunkSID, timestamp, msg); err != nil {
		return 0, fmt.Errorf("rtmp write: %w", err)
	}
	return len(packet.Payload), nil
}

// Feedback returns zero estimates; RTMP has no receiver reporting
func (s *rtmpSender) Feedback() models.NetworkStats {
	return models.NetworkStats{}
}

// Close tears the publish session down
func (s *rtmpSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stream != nil {
		s.stream.Close()
	}
	return s.conn.Close()
}
