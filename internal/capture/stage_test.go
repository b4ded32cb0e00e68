package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"primestream/pkg/models"
)

func TestOpenSyntheticSource(t *testing.T) {
	src, err := Open(SourceTest, models.Resolution{Width: 64, Height: 36})
	if err != nil {
		t.Fatalf("Open(test) failed: %v", err)
	}
	defer src.Close()

	frame, err := src.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Width != 64 || frame.Height != 36 {
		t.Errorf("frame size = %dx%d, want 64x36", frame.Width, frame.Height)
	}
	if frame.Format != models.PixelFormatBGRA {
		t.Errorf("frame format = %s, want bgra", frame.Format)
	}
	if want := 64 * 4; frame.Stride != want {
		t.Errorf("stride = %d, want %d", frame.Stride, want)
	}
	if len(frame.Data) != frame.Stride*36 {
		t.Errorf("data length = %d, want %d", len(frame.Data), frame.Stride*36)
	}
	if frame.CapturedAt.IsZero() {
		t.Error("CapturedAt not stamped")
	}
}

func TestOpenUnavailableBackends(t *testing.T) {
	for _, kind := range []SourceKind{SourceDisplay, SourceWindow, SourceZeroCopy} {
		if _, err := Open(kind, models.Resolution{Width: 1920, Height: 1080}); !errors.Is(err, ErrCaptureUnavailable) {
			t.Errorf("Open(%s) = %v, want ErrCaptureUnavailable", kind, err)
		}
	}
	if _, err := Open("hologram", models.Resolution{}); err == nil {
		t.Error("Open with unknown kind did not fail")
	}
}

func TestCaptureAfterClose(t *testing.T) {
	src, err := Open(SourceTest, models.Resolution{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Open(test) failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := src.Capture(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Capture after Close = %v, want ErrCaptureUnavailable", err)
	}
}

// blockingSource never delivers a frame; Capture waits for the context
type blockingSource struct{}

func (blockingSource) Capture(ctx context.Context) (*models.CapturedFrame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingSource) Close() error { return nil }

func TestStageTimeout(t *testing.T) {
	stage := NewStage(blockingSource{}, 120) // ~8.3ms frame interval
	defer stage.Close()

	start := time.Now()
	_, err := stage.CaptureFrame(context.Background())
	if !errors.Is(err, ErrCaptureTimeout) {
		t.Fatalf("CaptureFrame = %v, want ErrCaptureTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v, expected about one frame interval", elapsed)
	}
	if stage.FrameCount() != 0 {
		t.Errorf("FrameCount = %d after failed capture, want 0", stage.FrameCount())
	}
}

func TestStageCountsAndLatency(t *testing.T) {
	src := newSyntheticSource(models.Resolution{Width: 16, Height: 16})
	stage := NewStage(src, 60)
	defer stage.Close()

	for i := 0; i < 5; i++ {
		if _, err := stage.CaptureFrame(context.Background()); err != nil {
			t.Fatalf("CaptureFrame %d failed: %v", i, err)
		}
	}

	if stage.FrameCount() != 5 {
		t.Errorf("FrameCount = %d, want 5", stage.FrameCount())
	}
	if stage.Latency() < 0 {
		t.Errorf("Latency = %v, want non-negative", stage.Latency())
	}
	if stage.WorstLatency() < stage.Latency()/2 {
		// P99 of the window should not undercut the smoothed value wildly
		t.Logf("WorstLatency %v vs Latency %v", stage.WorstLatency(), stage.Latency())
	}
}

func TestStageCloseDuringCapture(t *testing.T) {
	src := newSyntheticSource(models.Resolution{Width: 8, Height: 8})
	stage := NewStage(src, 240)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := stage.CaptureFrame(context.Background()); errors.Is(err, ErrCaptureUnavailable) {
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	if err := stage.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("capture loop did not observe Close")
	}
}

func TestStageCloseReleasesSource(t *testing.T) {
	src := newSyntheticSource(models.Resolution{Width: 8, Height: 8})
	stage := NewStage(src, 60)

	if err := stage.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := stage.CaptureFrame(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("CaptureFrame after Close = %v, want ErrCaptureUnavailable", err)
	}
	// Closing twice is harmless.
	if err := stage.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
