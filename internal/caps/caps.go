// Package caps provides a read-only view over GPU capabilities, used only to
// pick a sensible default quality preset when a session does not specify one.
// The pipeline never mutates GPU state.
package caps

import (
	"fmt"
	"os"
	"strconv"

	"primestream/pkg/models"
)

// Architecture identifies the GPU hardware generation
type Architecture string

const (
	ArchUnknown Architecture = "unknown"
	ArchPascal  Architecture = "pascal"
	ArchTuring  Architecture = "turing"
	ArchAmpere  Architecture = "ampere"
	ArchAda     Architecture = "ada-lovelace"
	ArchHopper  Architecture = "hopper"
)

// GPUCaps describes a GPU as reported by the management library
type GPUCaps struct {
	Index         int          `json:"index"`
	Name          string       `json:"name"`
	DriverVersion string       `json:"driverVersion"`
	Architecture  Architecture `json:"architecture"`
	VRAMTotalMB   uint64       `json:"vramTotalMb"`
	VRAMUsedMB    uint64       `json:"vramUsedMb"`
	SupportsNVENC bool         `json:"supportsNvenc"`
	SupportsAV1   bool         `json:"supportsAv1"`
}

// Probe queries GPU capabilities from a management source
type Probe interface {
	// GPUCount returns the number of detected GPUs
	GPUCount() int

	// Caps returns capabilities for a specific GPU
	Caps(index int) (GPUCaps, error)
}

// DefaultPreset picks a session default quality preset from GPU capabilities.
// Boxes without a hardware encoder get the lightest preset since the software
// fallback cannot sustain higher quality in real time.
func DefaultPreset(c GPUCaps) models.QualityPreset {
	if !c.SupportsNVENC {
		return models.PresetUltraLowLatency
	}
	switch {
	case c.VRAMTotalMB >= 16384:
		return models.PresetHighQuality
	case c.VRAMTotalMB >= 8192:
		return models.PresetBalanced
	default:
		return models.PresetLowLatency
	}
}

// StaticProbe is a Probe backed by fixed values, used when no management
// library is available and in tests. Values can be overridden through the
// GPU_NAME, GPU_VRAM_MB and GPU_NVENC environment variables.
type StaticProbe struct {
	gpus []GPUCaps
}

// NewStaticProbe builds a single-GPU probe from environment overrides
func NewStaticProbe() *StaticProbe {
	gpu := GPUCaps{
		Index:         0,
		Name:          getEnv("GPU_NAME", "software"),
		Architecture:  ArchUnknown,
		VRAMTotalMB:   getUintEnv("GPU_VRAM_MB", 0),
		SupportsNVENC: getEnv("GPU_NVENC", "") == "1",
	}
	return &StaticProbe{gpus: []GPUCaps{gpu}}
}

// NewFixedProbe builds a probe over an explicit GPU list
func NewFixedProbe(gpus ...GPUCaps) *StaticProbe {
	return &StaticProbe{gpus: gpus}
}

// GPUCount returns the number of configured GPUs
func (p *StaticProbe) GPUCount() int {
	return len(p.gpus)
}

// Caps returns capabilities for a specific GPU
func (p *StaticProbe) Caps(index int) (GPUCaps, error) {
	if index < 0 || index >= len(p.gpus) {
		return GPUCaps{}, fmt.Errorf("no GPU at index %d", index)
	}
	return p.gpus[index], nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getUintEnv(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
