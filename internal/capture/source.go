// Package capture pulls raw frames from a display, window or compositor
// source and timestamps them for the downstream encode stage.
package capture

import (
	"context"
	"errors"
	"fmt"

	"primestream/pkg/models"
)

var (
	// ErrCaptureUnavailable is returned when the source is not initialized
	// or the backend is missing on this platform
	ErrCaptureUnavailable = errors.New("capture source unavailable")

	// ErrCaptureTimeout is returned when no frame arrives within one frame interval
	ErrCaptureTimeout = errors.New("capture timed out waiting for frame")
)

// SourceKind selects the capture backend
type SourceKind string

const (
	SourceDisplay  SourceKind = "display"  // Full-display capture
	SourceWindow   SourceKind = "window"   // Single-window capture
	SourceZeroCopy SourceKind = "zerocopy" // GPU frame buffer handles, no CPU copy
	SourcePortal   SourceKind = "portal"   // Compositor capture via the ScreenCast portal
	SourceTest     SourceKind = "test"     // Synthetic frames, used in tests
)

// Source is a raw frame source. Capture blocks until a frame is available or
// the context expires; Close releases the underlying handle.
type Source interface {
	Capture(ctx context.Context) (*models.CapturedFrame, error)
	Close() error
}

// Open initializes a capture backend for the given source kind
func Open(kind SourceKind, res models.Resolution) (Source, error) {
	switch kind {
	case SourceTest:
		return newSyntheticSource(res), nil
	case SourcePortal:
		return openPortalSource(res)
	case SourceDisplay, SourceWindow, SourceZeroCopy:
		// These backends ride on platform capture APIs that are negotiated
		// out of process; only the portal path is wired up so far.
		return nil, fmt.Errorf("%w: source kind %q not available", ErrCaptureUnavailable, kind)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
