package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"primestream/pkg/models"
)

// Config holds all application configuration
type Config struct {
	// HTTP control API
	HTTPAddr string `yaml:"http_addr"`

	// Stream defaults applied to sessions that do not override them
	Stream StreamDefaults `yaml:"stream"`

	// Transport
	Protocol   string `yaml:"protocol"` // rtp | srt | rtmp
	SRTLatency int    `yaml:"srt_latency_ms"`

	// Capture
	SourceKind string `yaml:"source_kind"` // display | window | zerocopy | portal

	// Recording
	RecordingEnabled bool   `yaml:"recording_enabled"`
	StorageType      string `yaml:"storage_type"` // local | gcs
	StorageDir       string `yaml:"storage_dir"`
	GCSBucketName    string `yaml:"gcs_bucket_name"`
	GCSBaseDir       string `yaml:"gcs_base_dir"`
}

// StreamDefaults is the default per-session stream configuration
type StreamDefaults struct {
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Framerate     int    `yaml:"framerate"`
	VideoCodec    string `yaml:"video_codec"`
	QualityPreset string `yaml:"quality_preset"` // empty lets GPU caps decide
	MaxPacketSize int    `yaml:"max_packet_size"`
	FECPercent    int    `yaml:"fec_percent"`
}

// Load loads configuration from environment variables with defaults, then
// overlays the YAML file named by CONFIG_FILE when present.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Stream: StreamDefaults{
			Width:         getIntEnv("STREAM_WIDTH", 1920),
			Height:        getIntEnv("STREAM_HEIGHT", 1080),
			Framerate:     getIntEnv("STREAM_FRAMERATE", 60),
			VideoCodec:    getEnv("STREAM_CODEC", "h264"),
			QualityPreset: getEnv("STREAM_PRESET", ""),
			MaxPacketSize: getIntEnv("STREAM_MAX_PACKET_SIZE", 1400),
			FECPercent:    getIntEnv("STREAM_FEC_PERCENT", 0),
		},
		Protocol:         getEnv("STREAM_PROTOCOL", "rtp"),
		SRTLatency:       getIntEnv("SRT_LATENCY_MS", 120),
		SourceKind:       getEnv("CAPTURE_SOURCE", "portal"),
		RecordingEnabled: getEnv("RECORDING_ENABLED", "") == "1",
		StorageType:      getEnv("STORAGE_TYPE", "local"),
		StorageDir:       getEnv("STORAGE_DIR", "./data/recordings"),
		GCSBucketName:    getEnv("GCS_BUCKET_NAME", ""),
		GCSBaseDir:       getEnv("GCS_BASE_DIR", "recordings"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Stream.Width <= 0 || c.Stream.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Stream.Width, c.Stream.Height)
	}
	if c.Stream.Framerate <= 0 || c.Stream.Framerate > 360 {
		return fmt.Errorf("invalid framerate %d (must be between 1-360)", c.Stream.Framerate)
	}

	switch models.VideoCodec(c.Stream.VideoCodec) {
	case models.CodecH264, models.CodecHEVC, models.CodecAV1:
	default:
		return fmt.Errorf("invalid video codec %q (must be h264, hevc or av1)", c.Stream.VideoCodec)
	}

	if c.Stream.QualityPreset != "" && !models.QualityPreset(c.Stream.QualityPreset).IsValid() {
		return fmt.Errorf("invalid quality preset %q", c.Stream.QualityPreset)
	}

	switch c.Protocol {
	case "rtp", "srt", "rtmp":
	default:
		return fmt.Errorf("invalid protocol %q (must be rtp, srt or rtmp)", c.Protocol)
	}

	if c.SRTLatency < 20 || c.SRTLatency > 8000 {
		return fmt.Errorf("invalid srt latency: %d ms (must be between 20-8000 ms)", c.SRTLatency)
	}

	switch c.StorageType {
	case "local", "gcs":
	default:
		return fmt.Errorf("invalid storage type %q (must be local or gcs)", c.StorageType)
	}
	if c.StorageType == "gcs" && c.RecordingEnabled && c.GCSBucketName == "" {
		return fmt.Errorf("GCS_BUCKET_NAME must be set when STORAGE_TYPE=gcs")
	}
	return nil
}

// StreamConfig builds a models.StreamConfig from the defaults
func (c *Config) StreamConfig() models.StreamConfig {
	return models.StreamConfig{
		Resolution:    models.Resolution{Width: c.Stream.Width, Height: c.Stream.Height},
		Framerate:     c.Stream.Framerate,
		VideoCodec:    models.VideoCodec(c.Stream.VideoCodec),
		AudioCodec:    models.CodecOpus,
		QualityPreset: models.QualityPreset(c.Stream.QualityPreset),
		MaxPacketSize: c.Stream.MaxPacketSize,
		FECPercent:    c.Stream.FECPercent,
		HDRFormat:     models.HDRNone,
	}
}

// Helper functions to get environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
