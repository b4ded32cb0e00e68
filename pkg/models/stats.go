package models

import "time"

// EngineState represents the current state of a stream engine
type EngineState string

const (
	StateIdle         EngineState = "idle"
	StateInitializing EngineState = "initializing"
	StateStreaming    EngineState = "streaming"
	StateCapturing    EngineState = "capturing"
	StateEncoding     EngineState = "encoding"
	StatePaused       EngineState = "paused"
	StateStopping     EngineState = "stopping"
	StateError        EngineState = "error"
)

// IsActive reports whether the engine holds live pipeline resources in this state
func (s EngineState) IsActive() bool {
	switch s {
	case StateInitializing, StateStreaming, StateCapturing, StateEncoding, StatePaused, StateError:
		return true
	}
	return false
}

// NetworkStats tracks transport-layer counters and link estimates.
// Counters are monotonically increasing for the lifetime of a connection.
type NetworkStats struct {
	PacketsSent uint64 `json:"packetsSent"`
	PacketsLost uint64 `json:"packetsLost"`
	BytesSent   uint64 `json:"bytesSent"`

	RTT           time.Duration `json:"rtt"`           // Instantaneous round-trip time
	Jitter        time.Duration `json:"jitter"`        // Inter-packet delay variation
	BandwidthKbps int           `json:"bandwidthKbps"` // Estimated available bandwidth
}

// PacketLossPercent returns the packet loss percentage, 0 when nothing was sent
func (n *NetworkStats) PacketLossPercent() float64 {
	if n.PacketsSent == 0 {
		return 0
	}
	return float64(n.PacketsLost) / float64(n.PacketsSent) * 100
}

// StreamStats aggregates per-stage counters and latencies for one session
type StreamStats struct {
	State EngineState `json:"state"`

	FramesCaptured uint64 `json:"framesCaptured"`
	FramesEncoded  uint64 `json:"framesEncoded"`
	FramesSent     uint64 `json:"framesSent"`
	FramesDropped  uint64 `json:"framesDropped"`

	CaptureLatency time.Duration `json:"captureLatency"` // Smoothed
	EncodeLatency  time.Duration `json:"encodeLatency"`  // Smoothed

	// Capture + encode; network latency is folded in only when measured
	TotalLatency time.Duration `json:"totalLatency"`

	CurrentBitrateKbps int `json:"currentBitrateKbps"`
	TargetBitrateKbps  int `json:"targetBitrateKbps"`

	Network NetworkStats `json:"network"`
}
