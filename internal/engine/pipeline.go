package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"primestream/pkg/models"
)

// stageQueueDepth bounds the frame/packet queues between stage workers.
// Anything queued deeper than this is already stale for a real-time stream.
const stageQueueDepth = 2

// pipeline runs one worker per stage, connected by bounded channels. When a
// downstream stage falls behind, the oldest queued item is dropped rather
// than blocking capture; a stale frame is worthless for a live stream and is
// never retried.
type pipeline struct {
	engine *Engine

	frames  chan *models.CapturedFrame
	packets chan *models.EncodedPacket

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Run starts the staged concurrent pipeline and blocks until the context is
// cancelled, Stop is called, or the engine hits the error state. Valid only
// from streaming (after Start).
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.state != models.StateStreaming {
		e.mu.Unlock()
		return ErrInvalidState
	}
	if e.pipeline != nil {
		e.mu.Unlock()
		return ErrInvalidState
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &pipeline{
		engine:  e,
		frames:  make(chan *models.CapturedFrame, stageQueueDepth),
		packets: make(chan *models.EncodedPacket, stageQueueDepth),
		cancel:  cancel,
	}
	e.pipeline = p

	framerate := e.cfg.Framerate
	if framerate <= 0 {
		framerate = 60
	}
	frameInterval := time.Second / time.Duration(framerate)
	e.mu.Unlock()

	p.wg.Add(3)
	go p.captureWorker(ctx, frameInterval)
	go p.encodeWorker(ctx)
	go p.sendWorker(ctx)

	p.wg.Wait()

	e.mu.Lock()
	if e.pipeline == p {
		e.pipeline = nil
	}
	e.mu.Unlock()
	return nil
}

// shutdown cancels the workers and waits for all three to exit
func (p *pipeline) shutdown() {
	p.cancel()
	p.wg.Wait()
}

// captureWorker pulls frames at the configured cadence and offers them to
// the encode queue, dropping the oldest queued frame under backpressure.
func (p *pipeline) captureWorker(ctx context.Context, interval time.Duration) {
	defer p.wg.Done()
	defer close(p.frames)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		e := p.engine
		e.mu.RLock()
		stage := e.captureStage
		state := e.state
		e.mu.RUnlock()
		if stage == nil || state == models.StateError {
			return
		}
		if state == models.StatePaused {
			continue
		}

		frame, err := stage.CaptureFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if fatal := e.pipelineFrameFailed("capture"); fatal {
				return
			}
			continue
		}

		e.mu.Lock()
		e.stats.FramesCaptured++
		e.mu.Unlock()

		if dropped := offerFrame(p.frames, frame); dropped {
			e.pipelineFrameDropped("backpressure")
		}
	}
}

// encodeWorker drains the frame queue into the encoder
func (p *pipeline) encodeWorker(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.packets)

	for frame := range p.frames {
		e := p.engine
		e.mu.RLock()
		stage := e.encodeStage
		e.mu.RUnlock()
		if stage == nil {
			frame.Release()
			return
		}

		packet, err := stage.Encode(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if fatal := e.pipelineFrameFailed("encode"); fatal {
				return
			}
			continue
		}

		e.mu.Lock()
		e.stats.FramesEncoded++
		e.mu.Unlock()

		if dropped := offerPacket(p.packets, packet); dropped {
			e.pipelineFrameDropped("backpressure")
		}
	}
}

// sendWorker drains the packet queue onto the transport
func (p *pipeline) sendWorker(ctx context.Context) {
	defer p.wg.Done()

	for packet := range p.packets {
		e := p.engine
		e.mu.RLock()
		stage := e.transportStage
		e.mu.RUnlock()
		if stage == nil {
			return
		}

		bytes := len(packet.Payload)
		keyframe := packet.IsKeyframe
		if err := stage.SendPacket(packet); err != nil {
			if ctx.Err() != nil {
				return
			}
			if fatal := e.pipelineFrameFailed("send"); fatal {
				return
			}
			continue
		}

		if e.opts.Sink != nil {
			if err := e.opts.Sink.WritePacket(packet); err != nil {
				log.Printf("Session %s: recording sink error: %v", e.id, err)
			}
		}

		e.mu.Lock()
		e.consecutiveFailures = 0
		e.stats.FramesSent++
		e.refreshStatsLocked()
		e.mu.Unlock()

		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordFrame(e.id, keyframe, bytes,
				e.captureLatencySeconds(), e.encodeLatencySeconds())
		}
	}
}

// pipelineFrameFailed accounts a per-frame failure from a worker and reports
// whether the engine crossed into the error state.
func (e *Engine) pipelineFrameFailed(stage string) bool {
	e.mu.Lock()
	e.stats.FramesDropped++
	e.consecutiveFailures++
	fatal := e.consecutiveFailures >= maxConsecutiveFailures
	if fatal && e.state != models.StateStopping {
		e.state = models.StateError
		e.stats.State = models.StateError
	}
	e.mu.Unlock()

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordFrameDropped(e.id, stage)
	}
	return fatal
}

// pipelineFrameDropped accounts a frame discarded by backpressure
func (e *Engine) pipelineFrameDropped(reason string) {
	e.mu.Lock()
	e.stats.FramesDropped++
	e.mu.Unlock()

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordFrameDropped(e.id, reason)
	}
}

// offerFrame enqueues a frame, evicting the oldest queued frame when full.
// Returns true when a frame was dropped in the process.
func offerFrame(ch chan *models.CapturedFrame, frame *models.CapturedFrame) bool {
	select {
	case ch <- frame:
		return false
	default:
	}
	dropped := false
	select {
	case old := <-ch:
		old.Release()
		dropped = true
	default:
	}
	select {
	case ch <- frame:
	default:
		frame.Release()
		dropped = true
	}
	return dropped
}

// offerPacket enqueues a packet with the same drop-oldest policy
func offerPacket(ch chan *models.EncodedPacket, packet *models.EncodedPacket) bool {
	select {
	case ch <- packet:
		return false
	default:
	}
	dropped := false
	select {
	case old := <-ch:
		_ = old
		dropped = true
	default:
	}
	select {
	case ch <- packet:
	default:
		dropped = true
	}
	return dropped
}
