package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"primestream/pkg/models"
	"primestream/pkg/rollingstats"
)

// latencyWindow covers ~5s of per-frame latency samples at 60 Hz
const latencyWindow = 300

// Stage pulls one frame per invocation from its source, timestamps it and
// tracks capture latency. Cadence is enforced by the engine loop, not here.
type Stage struct {
	source        Source
	frameInterval time.Duration

	mu         sync.Mutex
	frameCount uint64
	latency    rollingstats.EWMA
	window     *rollingstats.Stats
}

// NewStage creates a capture stage reading from source at the given framerate
func NewStage(source Source, framerate int) *Stage {
	if framerate <= 0 {
		framerate = 60
	}
	return &Stage{
		source:        source,
		frameInterval: time.Second / time.Duration(framerate),
		window:        rollingstats.New(latencyWindow),
	}
}

// CaptureFrame obtains one frame from the source, bounding the wait to one
// frame interval. The returned frame is owned by the caller.
func (s *Stage) CaptureFrame(ctx context.Context) (*models.CapturedFrame, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		return nil, ErrCaptureUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.frameInterval)
	defer cancel()

	start := time.Now()
	frame, err := source.Capture(ctx)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrCaptureTimeout
		}
		return nil, err
	}
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = start
	}

	s.mu.Lock()
	s.frameCount++
	s.latency.Update(float64(elapsed.Microseconds()))
	s.window.Push(float64(elapsed.Microseconds()))
	s.mu.Unlock()

	return frame, nil
}

// FrameCount returns the monotonic count of frames captured so far
func (s *Stage) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// Latency returns the smoothed capture latency
func (s *Stage) Latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.latency.Value()) * time.Microsecond
}

// WorstLatency returns the 99th-percentile capture latency over the window
func (s *Stage) WorstLatency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.window.Percentile(99)) * time.Microsecond
}

// Close releases the underlying capture source. Safe to call from a
// different goroutine than the capture loop.
func (s *Stage) Close() error {
	s.mu.Lock()
	source := s.source
	s.source = nil
	s.mu.Unlock()
	if source == nil {
		return nil
	}
	return source.Close()
}
