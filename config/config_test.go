package config

import (
	"os"
	"path/filepath"
	"testing"

	"primestream/pkg/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %s, want :8080", cfg.HTTPAddr)
	}
	if cfg.Stream.Width != 1920 || cfg.Stream.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", cfg.Stream.Width, cfg.Stream.Height)
	}
	if cfg.Stream.Framerate != 60 {
		t.Errorf("framerate = %d, want 60", cfg.Stream.Framerate)
	}
	if cfg.Protocol != "rtp" {
		t.Errorf("protocol = %s, want rtp", cfg.Protocol)
	}
	if cfg.StorageType != "local" {
		t.Errorf("storage type = %s, want local", cfg.StorageType)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("STREAM_FRAMERATE", "120")
	t.Setenv("STREAM_CODEC", "hevc")
	t.Setenv("STREAM_PRESET", "high-quality")
	t.Setenv("STREAM_PROTOCOL", "srt")
	t.Setenv("SRT_LATENCY_MS", "200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.Stream.Framerate != 120 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Protocol != "srt" || cfg.SRTLatency != 200 {
		t.Errorf("transport overrides not applied: %+v", cfg)
	}

	sc := cfg.StreamConfig()
	if sc.VideoCodec != models.CodecHEVC {
		t.Errorf("StreamConfig codec = %s, want hevc", sc.VideoCodec)
	}
	if sc.QualityPreset != models.PresetHighQuality {
		t.Errorf("StreamConfig preset = %s, want high-quality", sc.QualityPreset)
	}
	if sc.EffectiveBitrateKbps() != 50000 {
		t.Errorf("effective bitrate = %d, want 50000", sc.EffectiveBitrateKbps())
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad framerate", "STREAM_FRAMERATE", "0"},
		{"excessive framerate", "STREAM_FRAMERATE", "1000"},
		{"bad codec", "STREAM_CODEC", "vp8"},
		{"bad preset", "STREAM_PRESET", "maximum"},
		{"bad protocol", "STREAM_PROTOCOL", "quic"},
		{"bad srt latency", "SRT_LATENCY_MS", "5"},
		{"bad storage", "STORAGE_TYPE", "s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%s did not fail", tt.key, tt.value)
			}
		})
	}
}

func TestLoadGCSRequiresBucket(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "gcs")
	t.Setenv("RECORDING_ENABLED", "1")
	if _, err := Load(); err == nil {
		t.Error("Load with gcs storage and no bucket did not fail")
	}

	t.Setenv("GCS_BUCKET_NAME", "recordings")
	if _, err := Load(); err != nil {
		t.Errorf("Load with bucket set failed: %v", err)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http_addr: ":7070"
protocol: rtmp
stream:
  width: 2560
  height: 1440
  framerate: 120
  video_codec: av1
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":7070" || cfg.Protocol != "rtmp" {
		t.Errorf("YAML overlay not applied: %+v", cfg)
	}
	if cfg.Stream.Width != 2560 || cfg.Stream.Framerate != 120 {
		t.Errorf("YAML stream overlay not applied: %+v", cfg.Stream)
	}
	if cfg.Stream.VideoCodec != "av1" {
		t.Errorf("codec = %s, want av1", cfg.Stream.VideoCodec)
	}
}

func TestLoadMissingYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	if _, err := Load(); err == nil {
		t.Error("Load with missing config file did not fail")
	}
}
