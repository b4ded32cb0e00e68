package models

// QualityPreset selects a bitrate/speed tradeoff for the encoder
type QualityPreset string

const (
	PresetUltraLowLatency QualityPreset = "ultra-low-latency"
	PresetLowLatency      QualityPreset = "low-latency"
	PresetBalanced        QualityPreset = "balanced"
	PresetHighQuality     QualityPreset = "high-quality"
	PresetLossless        QualityPreset = "lossless"
)

// basePixels is the 1080p pixel count all preset bitrates are calibrated against
const basePixels = 1920 * 1080

// baseBitrateKbps maps each preset to its target bitrate at 1080p
var baseBitrateKbps = map[QualityPreset]int{
	PresetUltraLowLatency: 10000,
	PresetLowLatency:      20000,
	PresetBalanced:        35000,
	PresetHighQuality:     50000,
	PresetLossless:        100000,
}

// encoderPresets maps each quality preset to the encoder speed/quality knob
var encoderPresets = map[QualityPreset]string{
	PresetUltraLowLatency: "p1",
	PresetLowLatency:      "p2",
	PresetBalanced:        "p4",
	PresetHighQuality:     "p6",
	PresetLossless:        "lossless",
}

// IsValid reports whether the preset is one of the known presets
func (p QualityPreset) IsValid() bool {
	_, ok := baseBitrateKbps[p]
	return ok
}

// TargetBitrateKbps returns the target bitrate for a preset at the given
// resolution, scaling the 1080p baseline linearly by pixel count.
func (p QualityPreset) TargetBitrateKbps(res Resolution) int {
	base, ok := baseBitrateKbps[p]
	if !ok {
		return 0
	}
	return base * res.Pixels() / basePixels
}

// EncoderPreset returns the encoder speed/quality preset name for this preset
func (p QualityPreset) EncoderPreset() string {
	if preset, ok := encoderPresets[p]; ok {
		return preset
	}
	return "p4"
}
