package transport

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"primestream/pkg/models"
)

const (
	rtpHeaderSize      = 12
	rtpVersion         = 2
	rtpPayloadType     = 96 // dynamic
	rtpClockRate       = 90000
	rtcpReceiverReport = 201

	defaultMaxPacketSize = 1400
)

// rtpSender packetizes encoded frames onto a UDP socket with RTP framing and
// folds RTCP receiver reports into its link estimates.
type rtpSender struct {
	conn       *net.UDPConn
	ssrc       uint32
	maxPayload int

	mu       sync.Mutex
	sequence uint16
	closed   bool
	feedback models.NetworkStats
}

func connectRTP(host string, port int, cfg SenderConfig) (Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	maxPacket := cfg.MaxPacketSize
	if maxPacket <= rtpHeaderSize {
		maxPacket = defaultMaxPacketSize
	}
	maxPayload := maxPacket - rtpHeaderSize
	if cfg.FECPercent > 0 {
		// Leave headroom in each datagram for the repair stream.
		maxPayload = maxPayload * 100 / (100 + cfg.FECPercent)
	}

	s := &rtpSender{
		conn:       conn,
		ssrc:       rand.Uint32(),
		maxPayload: maxPayload,
	}
	go s.readReports()
	return s, nil
}

// Send slices the packet payload into MTU-sized RTP packets. The marker bit
// is set on the last packet of the frame. Returns total bytes written.
func (s *rtpSender) Send(packet *models.EncodedPacket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrNotConnected
	}

	timestamp := uint32(packet.PTS.Seconds() * rtpClockRate)
	payload := packet.Payload
	total := 0

	for offset := 0; offset < len(payload); offset += s.maxPayload {
		end := offset + s.maxPayload
		if end > len(payload) {
			end = len(payload)
		}
		last := end == len(payload)

		header := make([]byte, rtpHeaderSize)
		header[0] = rtpVersion << 6
		header[1] = rtpPayloadType
		if last {
			header[1] |= 0x80 // marker
		}
		binary.BigEndian.PutUint16(header[2:4], s.sequence)
		binary.BigEndian.PutUint32(header[4:8], timestamp)
		binary.BigEndian.PutUint32(header[8:12], s.ssrc)
		s.sequence++

		n, err := s.conn.Write(append(header, payload[offset:end]...))
		if err != nil {
			return total, fmt.Errorf("rtp write: %w", err)
		}
		total += n
	}
	return total, nil
}

// Feedback returns the latest receiver-report derived estimates
func (s *rtpSender) Feedback() models.NetworkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback
}

// Close shuts the socket down and stops the report reader
func (s *rtpSender) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

// readReports consumes RTCP receiver reports arriving on the send socket.
// Senders without a reporting receiver simply never update the estimates.
func (s *rtpSender) readReports() {
	buf := make([]byte, 1500)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			return
		}
		// RR: header(8) + one report block(24)
		if n < 32 || buf[1] != rtcpReceiverReport {
			continue
		}
		block := buf[8:]
		cumulativeLost := uint64(block[5])<<16 | uint64(block[6])<<8 | uint64(block[7])
		jitterTicks := binary.BigEndian.Uint32(block[12:16])

		s.mu.Lock()
		s.feedback.PacketsLost = cumulativeLost
		s.feedback.Jitter = time.Duration(jitterTicks) * time.Second / rtpClockRate
		s.mu.Unlock()
	}
}
