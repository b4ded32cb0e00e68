package encode

import (
	"context"
	"sync"
	"time"

	"primestream/pkg/models"
	"primestream/pkg/rollingstats"
)

// Stage drives an encoder device: it applies the keyframe cadence, bounds
// the per-frame wait, stamps timestamps and tracks smoothed encode latency.
type Stage struct {
	device        Device
	frameInterval time.Duration

	mu               sync.Mutex
	frameCount       uint64
	keyframeInterval int // 0 disables periodic keyframes (intra-refresh)
	bitrateKbps      int
	latency          rollingstats.EWMA
}

// NewStage creates an encode stage over an open device
func NewStage(device Device, cfg *models.StreamConfig) *Stage {
	framerate := cfg.Framerate
	if framerate <= 0 {
		framerate = 60
	}
	return &Stage{
		device:           device,
		frameInterval:    time.Second / time.Duration(framerate),
		keyframeInterval: cfg.KeyframeInterval(),
		bitrateKbps:      cfg.EffectiveBitrateKbps(),
	}
}

// Encode submits one captured frame and returns the compressed packet.
// The frame is consumed: its payload is released whether or not encoding
// succeeds. The device wait is bounded to one frame interval; exceeding it
// is a recoverable per-frame failure.
func (s *Stage) Encode(ctx context.Context, frame *models.CapturedFrame) (*models.EncodedPacket, error) {
	s.mu.Lock()
	device := s.device
	index := s.frameCount
	force := s.keyframeInterval > 0 && index%uint64(s.keyframeInterval) == 0
	s.mu.Unlock()
	if device == nil {
		frame.Release()
		return nil, ErrEncoderNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, s.frameInterval)
	defer cancel()

	start := time.Now()
	packet, err := device.Submit(ctx, frame, force)
	elapsed := time.Since(start)
	frame.Release()

	if err != nil {
		return nil, err
	}

	pts := time.Duration(index) * s.frameInterval
	packet.PTS = pts
	packet.DTS = pts // no frame reordering in low-latency mode
	if packet.EncodeLatency == 0 {
		packet.EncodeLatency = elapsed
	}
	if force {
		packet.IsKeyframe = true
	}

	s.mu.Lock()
	s.frameCount++
	s.latency.Update(float64(elapsed.Microseconds()))
	s.mu.Unlock()

	return packet, nil
}

// SetBitrate retargets the encoder without touching the keyframe cadence,
// so a preset change lands mid-GOP without forcing a keyframe.
func (s *Stage) SetBitrate(kbps int) {
	s.mu.Lock()
	s.bitrateKbps = kbps
	device := s.device
	s.mu.Unlock()
	if device != nil {
		device.SetBitrate(kbps)
	}
}

// BitrateKbps returns the current encoder target bitrate
func (s *Stage) BitrateKbps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bitrateKbps
}

// FrameCount returns the number of frames successfully encoded
func (s *Stage) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// Latency returns the smoothed encode latency
func (s *Stage) Latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.latency.Value()) * time.Microsecond
}

// Close releases the encoder session. Safe to call from a different
// goroutine than the encode loop.
func (s *Stage) Close() error {
	s.mu.Lock()
	device := s.device
	s.device = nil
	s.mu.Unlock()
	if device == nil {
		return nil
	}
	return device.Close()
}
