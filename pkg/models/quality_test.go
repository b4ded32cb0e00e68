package models

import "testing"

var (
	res1080 = Resolution{Width: 1920, Height: 1080}
	res1440 = Resolution{Width: 2560, Height: 1440}
	res720  = Resolution{Width: 1280, Height: 720}
	res4k   = Resolution{Width: 3840, Height: 2160}
)

func TestTargetBitrateAt1080p(t *testing.T) {
	tests := []struct {
		preset QualityPreset
		want   int
	}{
		{PresetUltraLowLatency, 10000},
		{PresetLowLatency, 20000},
		{PresetBalanced, 35000},
		{PresetHighQuality, 50000},
		{PresetLossless, 100000},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			if got := tt.preset.TargetBitrateKbps(res1080); got != tt.want {
				t.Errorf("TargetBitrateKbps(1080p) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTargetBitrateScalesByPixels(t *testing.T) {
	tests := []struct {
		name   string
		preset QualityPreset
		res    Resolution
		want   int
	}{
		{"balanced 1440p", PresetBalanced, res1440, 35000 * (2560 * 1440) / (1920 * 1080)},
		{"high-quality 1440p", PresetHighQuality, res1440, 50000 * (2560 * 1440) / (1920 * 1080)},
		{"balanced 720p", PresetBalanced, res720, 35000 * (1280 * 720) / (1920 * 1080)},
		{"balanced 4k", PresetBalanced, res4k, 35000 * 4},
		{"lossless 4k", PresetLossless, res4k, 400000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.preset.TargetBitrateKbps(tt.res); got != tt.want {
				t.Errorf("TargetBitrateKbps(%dx%d) = %d, want %d",
					tt.res.Width, tt.res.Height, got, tt.want)
			}
		})
	}
}

func TestTargetBitrateMonotonicAcrossPresets(t *testing.T) {
	order := []QualityPreset{
		PresetUltraLowLatency,
		PresetLowLatency,
		PresetBalanced,
		PresetHighQuality,
		PresetLossless,
	}
	for _, res := range []Resolution{res720, res1080, res1440, res4k} {
		prev := 0
		for _, preset := range order {
			got := preset.TargetBitrateKbps(res)
			if got <= prev {
				t.Errorf("%s at %dx%d = %d, not greater than previous preset (%d)",
					preset, res.Width, res.Height, got, prev)
			}
			prev = got
		}
	}
}

func TestUnknownPreset(t *testing.T) {
	p := QualityPreset("potato")
	if p.IsValid() {
		t.Error("IsValid() = true for unknown preset")
	}
	if got := p.TargetBitrateKbps(res1080); got != 0 {
		t.Errorf("TargetBitrateKbps for unknown preset = %d, want 0", got)
	}
	if got := p.EncoderPreset(); got != "p4" {
		t.Errorf("EncoderPreset for unknown preset = %q, want p4", got)
	}
}

func TestEncoderPreset(t *testing.T) {
	tests := []struct {
		preset QualityPreset
		want   string
	}{
		{PresetUltraLowLatency, "p1"},
		{PresetLowLatency, "p2"},
		{PresetBalanced, "p4"},
		{PresetHighQuality, "p6"},
		{PresetLossless, "lossless"},
	}
	for _, tt := range tests {
		if got := tt.preset.EncoderPreset(); got != tt.want {
			t.Errorf("%s.EncoderPreset() = %q, want %q", tt.preset, got, tt.want)
		}
	}
}

func TestEffectiveBitratePresetOverridesExplicit(t *testing.T) {
	cfg := StreamConfig{
		Resolution:       res1080,
		Framerate:        60,
		QualityPreset:    PresetBalanced,
		VideoBitrateKbps: 12345,
	}
	if got := cfg.EffectiveBitrateKbps(); got != 35000 {
		t.Errorf("EffectiveBitrateKbps() = %d, want 35000 (preset wins)", got)
	}

	cfg.QualityPreset = ""
	if got := cfg.EffectiveBitrateKbps(); got != 12345 {
		t.Errorf("EffectiveBitrateKbps() without preset = %d, want 12345", got)
	}
}

func TestKeyframeInterval(t *testing.T) {
	cfg := StreamConfig{Framerate: 60}
	if got := cfg.KeyframeInterval(); got != 120 {
		t.Errorf("KeyframeInterval() at 60 fps = %d, want 120", got)
	}

	cfg.Framerate = 30
	if got := cfg.KeyframeInterval(); got != 60 {
		t.Errorf("KeyframeInterval() at 30 fps = %d, want 60", got)
	}

	cfg.IntraRefresh = true
	if got := cfg.KeyframeInterval(); got != 0 {
		t.Errorf("KeyframeInterval() with intra-refresh = %d, want 0", got)
	}
}
