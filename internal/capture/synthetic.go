package capture

import (
	"context"
	"sync"
	"time"

	"primestream/pkg/models"
)

// syntheticSource produces solid-color BGRA frames without touching any
// platform API. It backs the "test" source kind.
type syntheticSource struct {
	res    models.Resolution
	mu     sync.Mutex
	closed bool
	seq    uint8
}

func newSyntheticSource(res models.Resolution) *syntheticSource {
	return &syntheticSource{res: res}
}

// Capture returns a synthetic frame immediately
func (s *syntheticSource) Capture(ctx context.Context) (*models.CapturedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrCaptureUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stride := s.res.Width * 4
	data := make([]byte, stride*s.res.Height)
	// Vary the fill per frame so encoded output is not degenerate
	s.seq++
	for i := range data {
		data[i] = s.seq
	}

	return &models.CapturedFrame{
		Data:       data,
		Width:      s.res.Width,
		Height:     s.res.Height,
		Stride:     stride,
		Format:     models.PixelFormatBGRA,
		CapturedAt: time.Now(),
	}, nil
}

// Close marks the source unavailable
func (s *syntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
