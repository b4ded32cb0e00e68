package caps

import (
	"testing"

	"primestream/pkg/models"
)

func TestDefaultPreset(t *testing.T) {
	tests := []struct {
		name string
		gpu  GPUCaps
		want models.QualityPreset
	}{
		{"no hardware encoder", GPUCaps{SupportsNVENC: false, VRAMTotalMB: 24576}, models.PresetUltraLowLatency},
		{"big vram", GPUCaps{SupportsNVENC: true, VRAMTotalMB: 16384}, models.PresetHighQuality},
		{"mid vram", GPUCaps{SupportsNVENC: true, VRAMTotalMB: 8192}, models.PresetBalanced},
		{"small vram", GPUCaps{SupportsNVENC: true, VRAMTotalMB: 4096}, models.PresetLowLatency},
		{"zero value", GPUCaps{}, models.PresetUltraLowLatency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultPreset(tt.gpu); got != tt.want {
				t.Errorf("DefaultPreset() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFixedProbe(t *testing.T) {
	probe := NewFixedProbe(
		GPUCaps{Index: 0, Name: "RTX 4080", VRAMTotalMB: 16384, SupportsNVENC: true},
		GPUCaps{Index: 1, Name: "RTX 3060", VRAMTotalMB: 12288, SupportsNVENC: true},
	)

	if probe.GPUCount() != 2 {
		t.Fatalf("GPUCount() = %d, want 2", probe.GPUCount())
	}

	gpu, err := probe.Caps(1)
	if err != nil {
		t.Fatalf("Caps(1) returned error: %v", err)
	}
	if gpu.Name != "RTX 3060" {
		t.Errorf("Caps(1).Name = %q, want RTX 3060", gpu.Name)
	}

	if _, err := probe.Caps(2); err == nil {
		t.Error("Caps(2) on a 2-GPU probe did not fail")
	}
	if _, err := probe.Caps(-1); err == nil {
		t.Error("Caps(-1) did not fail")
	}
}

func TestStaticProbeEnvOverrides(t *testing.T) {
	t.Setenv("GPU_NAME", "RTX 4090")
	t.Setenv("GPU_VRAM_MB", "24576")
	t.Setenv("GPU_NVENC", "1")

	probe := NewStaticProbe()
	gpu, err := probe.Caps(0)
	if err != nil {
		t.Fatalf("Caps(0) returned error: %v", err)
	}
	if gpu.Name != "RTX 4090" || gpu.VRAMTotalMB != 24576 || !gpu.SupportsNVENC {
		t.Errorf("env overrides not applied: %+v", gpu)
	}
	if got := DefaultPreset(gpu); got != models.PresetHighQuality {
		t.Errorf("DefaultPreset() = %s, want %s", got, models.PresetHighQuality)
	}
}
