package models

// VideoCodec identifies the compressed video format produced by the encoder
type VideoCodec string

const (
	CodecH264 VideoCodec = "h264"
	CodecHEVC VideoCodec = "hevc"
	CodecAV1  VideoCodec = "av1"
)

// AudioCodec identifies the compressed audio format
type AudioCodec string

const (
	CodecOpus AudioCodec = "opus"
	CodecAAC  AudioCodec = "aac"
)

// HDRFormat identifies the HDR signaling carried in the stream, if any
type HDRFormat string

const (
	HDRNone  HDRFormat = "none"
	HDR10    HDRFormat = "hdr10"
	HDR10P   HDRFormat = "hdr10+"
	DolbyHDR HDRFormat = "dolby-vision"
)

// Resolution is an output frame size in pixels
type Resolution struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Pixels returns the total pixel count
func (r Resolution) Pixels() int {
	return r.Width * r.Height
}

// StreamConfig holds the immutable per-session streaming configuration
type StreamConfig struct {
	Resolution Resolution `json:"resolution" yaml:"resolution"`
	Framerate  int        `json:"framerate" yaml:"framerate"`

	VideoCodec VideoCodec `json:"videoCodec" yaml:"video_codec"`
	AudioCodec AudioCodec `json:"audioCodec" yaml:"audio_codec"`

	// QualityPreset, when set, overrides VideoBitrateKbps
	QualityPreset    QualityPreset `json:"qualityPreset,omitempty" yaml:"quality_preset"`
	VideoBitrateKbps int           `json:"videoBitrateKbps" yaml:"video_bitrate_kbps"`

	// Low-latency encoder tuning
	SlicedEncoding bool `json:"slicedEncoding" yaml:"sliced_encoding"`
	IntraRefresh   bool `json:"intraRefresh" yaml:"intra_refresh"`

	// Network tuning
	MaxPacketSize int `json:"maxPacketSize" yaml:"max_packet_size"`
	FECPercent    int `json:"fecPercent" yaml:"fec_percent"`

	HDRFormat HDRFormat `json:"hdrFormat" yaml:"hdr_format"`
}

// EffectiveBitrateKbps returns the target video bitrate for this configuration.
// A quality preset, when present, takes precedence over the explicit bitrate.
func (c *StreamConfig) EffectiveBitrateKbps() int {
	if c.QualityPreset != "" {
		return c.QualityPreset.TargetBitrateKbps(c.Resolution)
	}
	return c.VideoBitrateKbps
}

// KeyframeInterval returns the periodic keyframe cadence in frames (2-second GOP).
// Intra-refresh disables periodic keyframes entirely.
func (c *StreamConfig) KeyframeInterval() int {
	if c.IntraRefresh {
		return 0
	}
	return c.Framerate * 2
}
