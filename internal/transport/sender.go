// Package transport delivers encoded packets to a remote endpoint over a
// pluggable protocol and keeps network statistics current between sends.
package transport

import (
	"context"
	"errors"
	"fmt"

	"primestream/pkg/models"
)

var (
	// ErrConnectionFailed is returned when a session cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConnected is returned when Send is called before Connect
	ErrNotConnected = errors.New("not connected")
)

// Protocol selects the wire protocol for a session
type Protocol string

const (
	ProtocolRTP  Protocol = "rtp"  // RTP over UDP
	ProtocolSRT  Protocol = "srt"  // SRT via gosrt
	ProtocolRTMP Protocol = "rtmp" // RTMP publish
)

// IsValid reports whether the protocol is supported
func (p Protocol) IsValid() bool {
	switch p {
	case ProtocolRTP, ProtocolSRT, ProtocolRTMP:
		return true
	}
	return false
}

// Sender is an established transport session. Send delivers one encoded
// payload; Feedback returns the latest link estimates reported by the
// protocol (zero values when the protocol has no feedback channel).
type Sender interface {
	Send(packet *models.EncodedPacket) (int, error)
	Feedback() models.NetworkStats
	Close() error
}

// SenderConfig carries protocol tuning shared by all backends
type SenderConfig struct {
	MaxPacketSize int // MTU budget per datagram; 0 uses the backend default
	FECPercent    int // Forward-error-correction overhead percentage
	LatencyMS     int // Target protocol latency where tunable (SRT)
	StreamKey     string
}

// Connect establishes a transport session to host:port over the protocol
func Connect(ctx context.Context, protocol Protocol, host string, port int, cfg SenderConfig) (Sender, error) {
	switch protocol {
	case ProtocolRTP:
		return connectRTP(host, port, cfg)
	case ProtocolSRT:
		return connectSRT(ctx, host, port, cfg)
	case ProtocolRTMP:
		return connectRTMP(host, port, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrConnectionFailed, protocol)
	}
}
