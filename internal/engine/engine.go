// Package engine orchestrates the capture, encode and transport stages for
// one streaming session and owns its state machine and statistics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"primestream/internal/caps"
	"primestream/internal/capture"
	"primestream/internal/encode"
	"primestream/internal/metrics"
	"primestream/internal/transport"
	"primestream/pkg/models"
)

// ErrInvalidState is returned when an operation is not valid in the current
// engine state, e.g. Start while already streaming.
var ErrInvalidState = errors.New("invalid engine state")

// maxConsecutiveFailures is the number of back-to-back per-frame failures
// after which the engine gives up and enters the error state (~0.5s of
// continuous failure at 60 fps). Recovery requires an explicit Stop.
const maxConsecutiveFailures = 30

// DeviceOpener opens an encoder session for the given device configuration
type DeviceOpener func(cfg encode.DeviceConfig) (encode.Device, error)

// Options configures engine construction. The zero value uses the real
// backends; Source, OpenDevice and Dial exist so tests can inject fakes.
type Options struct {
	SourceKind capture.SourceKind
	Protocol   transport.Protocol
	StreamKey  string
	LatencyMS  int
	GPU        caps.GPUCaps

	Metrics *metrics.Metrics // optional
	Sink    PacketSink       // optional recording sink

	// NewSink, when set, builds a per-session Sink at session creation
	NewSink func(sessionID string, codec models.VideoCodec) PacketSink

	Source     capture.Source
	OpenDevice DeviceOpener
	Dial       transport.DialFunc
}

// PacketSink receives a copy of every packet that was successfully sent
type PacketSink interface {
	WritePacket(packet *models.EncodedPacket) error
}

// Engine drives the streaming pipeline end to end for a single session.
// Create one per session with New; it must not be shared across sessions.
type Engine struct {
	id   string
	cfg  models.StreamConfig
	opts Options

	mu    sync.RWMutex
	state models.EngineState
	stats models.StreamStats

	captureStage   *capture.Stage
	encodeStage    *encode.Stage
	transportStage *transport.Stage

	consecutiveFailures int

	pipeline *pipeline // non-nil while the concurrent pipeline runs
}

// New creates an engine for one streaming session
func New(id string, cfg models.StreamConfig, opts Options) *Engine {
	if opts.SourceKind == "" {
		opts.SourceKind = capture.SourceDisplay
	}
	if opts.Protocol == "" {
		opts.Protocol = transport.ProtocolRTP
	}
	return &Engine{
		id:    id,
		cfg:   cfg,
		opts:  opts,
		state: models.StateIdle,
	}
}

// ID returns the session identifier
func (e *Engine) ID() string {
	return e.id
}

// Config returns a copy of the session configuration
func (e *Engine) Config() models.StreamConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// State returns the current engine state
func (e *Engine) State() models.EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Start brings the pipeline up: opens the capture source and encoder session
// and connects the transport. Valid only from idle. Resource acquisition is
// all-or-nothing: on any failure every already-opened resource is released
// and the engine lands in the error state.
func (e *Engine) Start(ctx context.Context, host string, port int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != models.StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, e.state)
	}
	e.state = models.StateInitializing

	if err := e.acquireStages(ctx, host, port); err != nil {
		e.releaseStagesLocked()
		e.state = models.StateError
		e.stats.State = models.StateError
		return err
	}

	e.consecutiveFailures = 0
	e.state = models.StateStreaming
	e.refreshStatsLocked()

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordSessionStart()
		e.opts.Metrics.RecordBitrate(e.id, e.cfg.EffectiveBitrateKbps())
	}
	log.Printf("Session %s streaming to %s:%d (%s, %dx%d @ %d fps, %d kbps)",
		e.id, host, port, e.opts.Protocol,
		e.cfg.Resolution.Width, e.cfg.Resolution.Height, e.cfg.Framerate,
		e.cfg.EffectiveBitrateKbps())
	return nil
}

func (e *Engine) acquireStages(ctx context.Context, host string, port int) error {
	source := e.opts.Source
	if source == nil {
		var err error
		source, err = capture.Open(e.opts.SourceKind, e.cfg.Resolution)
		if err != nil {
			return err
		}
	}
	e.captureStage = capture.NewStage(source, e.cfg.Framerate)

	deviceCfg := encode.DeviceConfig{
		Codec:          e.cfg.VideoCodec,
		Resolution:     e.cfg.Resolution,
		Framerate:      e.cfg.Framerate,
		BitrateKbps:    e.cfg.EffectiveBitrateKbps(),
		Preset:         e.cfg.QualityPreset.EncoderPreset(),
		SlicedEncoding: e.cfg.SlicedEncoding,
		IntraRefresh:   e.cfg.IntraRefresh,
	}
	var device encode.Device
	var err error
	if e.opts.OpenDevice != nil {
		device, err = e.opts.OpenDevice(deviceCfg)
	} else {
		device, err = encode.OpenDevice(deviceCfg, e.opts.GPU)
	}
	if err != nil {
		return err
	}
	e.encodeStage = encode.NewStage(device, &e.cfg)

	if e.opts.Dial != nil {
		e.transportStage = transport.NewStageWithDialer(e.opts.Dial)
	} else {
		e.transportStage = transport.NewStage(e.opts.Protocol, transport.SenderConfig{
			MaxPacketSize: e.cfg.MaxPacketSize,
			FECPercent:    e.cfg.FECPercent,
			LatencyMS:     e.opts.LatencyMS,
			StreamKey:     e.opts.StreamKey,
		})
	}
	return e.transportStage.Connect(ctx, host, port)
}

// releaseStagesLocked tears down whatever stages exist; e.mu must be held
func (e *Engine) releaseStagesLocked() {
	if e.transportStage != nil {
		e.transportStage.Disconnect()
		e.transportStage = nil
	}
	if e.encodeStage != nil {
		e.encodeStage.Close()
		e.encodeStage = nil
	}
	if e.captureStage != nil {
		e.captureStage.Close()
		e.captureStage = nil
	}
}

// ProcessFrame drives one frame through capture, encode and send. It is the
// single-threaded reference path; production streaming uses Run. A capture
// or encode failure drops the frame and keeps the engine streaming; too many
// consecutive failures push it into the error state.
func (e *Engine) ProcessFrame(ctx context.Context) error {
	e.mu.Lock()
	if e.state == models.StatePaused {
		e.mu.Unlock()
		return nil
	}
	if e.state != models.StateStreaming {
		e.mu.Unlock()
		return fmt.Errorf("%w: process frame from %s", ErrInvalidState, e.state)
	}
	e.state = models.StateCapturing
	captureStage, encodeStage, transportStage := e.captureStage, e.encodeStage, e.transportStage
	e.mu.Unlock()

	frame, err := captureStage.CaptureFrame(ctx)
	if err != nil {
		return e.frameFailed("capture", err)
	}

	e.setTransientState(models.StateEncoding)
	packet, err := encodeStage.Encode(ctx, frame)
	if err != nil {
		return e.frameFailed("encode", err)
	}

	bytes := len(packet.Payload)
	keyframe := packet.IsKeyframe
	if err := transportStage.SendPacket(packet); err != nil {
		return e.frameFailed("send", err)
	}

	if e.opts.Sink != nil {
		if err := e.opts.Sink.WritePacket(packet); err != nil {
			log.Printf("Session %s: recording sink error: %v", e.id, err)
		}
	}

	e.mu.Lock()
	e.consecutiveFailures = 0
	e.stats.FramesCaptured++
	e.stats.FramesEncoded++
	e.stats.FramesSent++
	if e.state == models.StateCapturing || e.state == models.StateEncoding {
		e.state = models.StateStreaming
	}
	e.refreshStatsLocked()
	e.mu.Unlock()

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordFrame(e.id, keyframe, bytes,
			e.captureLatencySeconds(), e.encodeLatencySeconds())
	}
	return nil
}

// frameFailed accounts a dropped frame and decides whether the failure run
// is long enough to abandon the session.
func (e *Engine) frameFailed(stage string, err error) error {
	e.mu.Lock()
	e.stats.FramesDropped++
	e.consecutiveFailures++
	fatal := e.consecutiveFailures >= maxConsecutiveFailures
	if fatal {
		e.state = models.StateError
	} else if e.state == models.StateCapturing || e.state == models.StateEncoding {
		e.state = models.StateStreaming
	}
	e.refreshStatsLocked()
	e.mu.Unlock()

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordFrameDropped(e.id, stage)
	}
	if fatal {
		log.Printf("Session %s: %d consecutive frame failures, entering error state (last: %v)",
			e.id, maxConsecutiveFailures, err)
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (e *Engine) setTransientState(state models.EngineState) {
	e.mu.Lock()
	if e.state == models.StateCapturing || e.state == models.StateEncoding {
		e.state = state
	}
	e.mu.Unlock()
}

// Pause suspends frame processing without releasing pipeline resources
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != models.StateStreaming {
		return fmt.Errorf("%w: pause from %s", ErrInvalidState, e.state)
	}
	e.state = models.StatePaused
	e.refreshStatsLocked()
	return nil
}

// Resume continues frame processing after a pause
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != models.StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidState, e.state)
	}
	e.state = models.StateStreaming
	e.refreshStatsLocked()
	return nil
}

// Stop tears the session down from any active state: the pipeline workers
// are joined, the transport disconnected and all stage resources released
// before Stop returns. The engine lands back in idle and is reusable.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.state.IsActive() {
		e.mu.Unlock()
		return nil
	}
	e.state = models.StateStopping
	p := e.pipeline
	e.pipeline = nil
	e.mu.Unlock()

	// Join workers outside the lock; they take it to update stats.
	if p != nil {
		p.shutdown()
	}

	e.mu.Lock()
	e.releaseStagesLocked()
	e.consecutiveFailures = 0
	e.state = models.StateIdle
	e.stats.Network = models.NetworkStats{}
	e.refreshStatsLocked()
	e.mu.Unlock()

	// Finalize the recording, if any; a restarted session records fresh.
	if closer, ok := e.opts.Sink.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Session %s: closing recording sink: %v", e.id, err)
		}
		if e.opts.NewSink != nil {
			e.opts.Sink = e.opts.NewSink(e.id, e.cfg.VideoCodec)
		} else {
			e.opts.Sink = nil
		}
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordSessionStop()
	}
	log.Printf("Session %s stopped", e.id)
	return nil
}

// SetQualityPreset switches the quality preset. The new target bitrate is
// applied to the encoder immediately and takes effect on the next frame;
// the keyframe cadence is left untouched mid-GOP.
func (e *Engine) SetQualityPreset(preset models.QualityPreset) error {
	if !preset.IsValid() {
		return fmt.Errorf("unknown quality preset %q", preset)
	}

	e.mu.Lock()
	e.cfg.QualityPreset = preset
	target := e.cfg.EffectiveBitrateKbps()
	encodeStage := e.encodeStage
	e.mu.Unlock()

	if encodeStage != nil {
		encodeStage.SetBitrate(target)
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordBitrate(e.id, target)
	}

	e.mu.Lock()
	e.refreshStatsLocked()
	e.mu.Unlock()
	return nil
}

// Stats returns a consistent snapshot of the stream statistics
func (e *Engine) Stats() models.StreamStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// refreshStatsLocked folds per-stage figures into the aggregate; e.mu held
func (e *Engine) refreshStatsLocked() {
	e.stats.State = e.state
	e.stats.TargetBitrateKbps = e.cfg.EffectiveBitrateKbps()

	if e.captureStage != nil {
		e.stats.CaptureLatency = e.captureStage.Latency()
	}
	if e.encodeStage != nil {
		e.stats.EncodeLatency = e.encodeStage.Latency()
		e.stats.CurrentBitrateKbps = e.encodeStage.BitrateKbps()
	}
	e.stats.TotalLatency = e.stats.CaptureLatency + e.stats.EncodeLatency
	if e.transportStage != nil {
		e.stats.Network = e.transportStage.Stats()
	}
}

func (e *Engine) captureLatencySeconds() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats.CaptureLatency.Seconds()
}

func (e *Engine) encodeLatencySeconds() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats.EncodeLatency.Seconds()
}
