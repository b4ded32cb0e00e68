package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Session metrics
	ActiveSessions prometheus.Gauge
	TotalSessions  prometheus.Counter

	// Pipeline metrics
	FramesCaptured *prometheus.CounterVec
	FramesEncoded  *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec
	Keyframes      prometheus.Counter

	// Latency metrics
	CaptureLatency prometheus.Histogram
	EncodeLatency  prometheus.Histogram

	// Transport metrics
	BytesSent   *prometheus.CounterVec
	PacketsLost *prometheus.CounterVec

	// Encoder metrics
	TargetBitrate *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "primestream_active_sessions",
			Help: "Number of currently active streaming sessions",
		}),
		TotalSessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "primestream_sessions_total",
			Help: "Total number of sessions since server start",
		}),

		FramesCaptured: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primestream_frames_captured_total",
				Help: "Total number of frames pulled from the capture source",
			},
			[]string{"session"},
		),
		FramesEncoded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primestream_frames_encoded_total",
				Help: "Total number of frames encoded",
			},
			[]string{"session"},
		),
		FramesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primestream_frames_sent_total",
				Help: "Total number of encoded frames sent",
			},
			[]string{"session"},
		),
		FramesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primestream_frames_dropped_total",
				Help: "Total number of frames dropped",
			},
			[]string{"session", "reason"},
		),
		Keyframes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "primestream_keyframes_total",
			Help: "Total number of keyframes produced",
		}),

		CaptureLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "primestream_capture_latency_seconds",
			Help:    "Per-frame capture latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~2s
		}),
		EncodeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "primestream_encode_latency_seconds",
			Help:    "Per-frame encode latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),

		BytesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primestream_bytes_sent_total",
				Help: "Total bytes handed to the transport",
			},
			[]string{"session"},
		),
		PacketsLost: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primestream_packets_lost_total",
				Help: "Packets reported lost by transport feedback",
			},
			[]string{"session"},
		),

		TargetBitrate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "primestream_target_bitrate_kbps",
				Help: "Current encoder target bitrate",
			},
			[]string{"session"},
		),
	}

	return m
}

// RecordSessionStart records a session starting
func (m *Metrics) RecordSessionStart() {
	m.ActiveSessions.Inc()
	m.TotalSessions.Inc()
}

// RecordSessionStop records a session stopping
func (m *Metrics) RecordSessionStop() {
	m.ActiveSessions.Dec()
}

// RecordFrame records one frame completing the full pipeline
func (m *Metrics) RecordFrame(session string, keyframe bool, bytes int, captureLatency, encodeLatency float64) {
	m.FramesCaptured.WithLabelValues(session).Inc()
	m.FramesEncoded.WithLabelValues(session).Inc()
	m.FramesSent.WithLabelValues(session).Inc()
	m.BytesSent.WithLabelValues(session).Add(float64(bytes))
	m.CaptureLatency.Observe(captureLatency)
	m.EncodeLatency.Observe(encodeLatency)
	if keyframe {
		m.Keyframes.Inc()
	}
}

// RecordFrameDropped records a dropped frame
func (m *Metrics) RecordFrameDropped(session, reason string) {
	m.FramesDropped.WithLabelValues(session, reason).Inc()
}

// RecordBitrate records the current encoder target bitrate
func (m *Metrics) RecordBitrate(session string, kbps int) {
	m.TargetBitrate.WithLabelValues(session).Set(float64(kbps))
}
