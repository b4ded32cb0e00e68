package rollingstats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStatsEmpty(t *testing.T) {
	s := New(10)

	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	if s.Average() != 0 {
		t.Errorf("Average() = %f, want 0", s.Average())
	}
	if s.Min() != 0 {
		t.Errorf("Min() = %f, want 0", s.Min())
	}
	if s.Max() != 0 {
		t.Errorf("Max() = %f, want 0", s.Max())
	}
	if s.Percentile(99) != 0 {
		t.Errorf("Percentile(99) = %f, want 0", s.Percentile(99))
	}
}

func TestStatsAggregates(t *testing.T) {
	s := New(10)
	for _, v := range []float64{5, 1, 4, 2, 3} {
		s.Push(v)
	}

	if s.Count() != 5 {
		t.Errorf("Count() = %d, want 5", s.Count())
	}
	if !almostEqual(s.Average(), 3) {
		t.Errorf("Average() = %f, want 3", s.Average())
	}
	if s.Min() != 1 {
		t.Errorf("Min() = %f, want 1", s.Min())
	}
	if s.Max() != 5 {
		t.Errorf("Max() = %f, want 5", s.Max())
	}
}

func TestStatsEvictsOldest(t *testing.T) {
	s := New(3)
	for _, v := range []float64{100, 1, 2, 3} {
		s.Push(v)
	}

	// The window holds {1, 2, 3}; 100 was evicted.
	if s.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", s.Count())
	}
	if s.Max() != 3 {
		t.Errorf("Max() = %f, want 3 (oldest sample not evicted)", s.Max())
	}
	if s.Min() != 1 {
		t.Errorf("Min() = %f, want 1", s.Min())
	}
}

func TestStatsCapacityNeverGrows(t *testing.T) {
	s := New(4)
	for i := 0; i < 100; i++ {
		s.Push(float64(i))
	}
	if s.Count() != 4 {
		t.Errorf("Count() = %d, want 4", s.Count())
	}
	if s.Capacity() != 4 {
		t.Errorf("Capacity() = %d, want 4", s.Capacity())
	}
	// Only the last 4 samples remain.
	if s.Min() != 96 {
		t.Errorf("Min() = %f, want 96", s.Min())
	}
}

func TestStatsPercentileIndexing(t *testing.T) {
	// Index formula: floor((count-1) * p / 100) over the sorted samples.
	tests := []struct {
		name  string
		count int
		p     float64
		want  float64
	}{
		{"single sample any percentile", 1, 99, 0},
		{"two samples p50", 2, 50, 0},
		{"two samples p99", 2, 99, 0},
		{"two samples p100", 2, 100, 1},
		{"ten samples p50", 10, 50, 4},
		{"ten samples p90", 10, 90, 8},
		{"ten samples p99", 10, 99, 8},
		{"full window p99", 300, 99, 296},
		{"full window p0", 300, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.count)
			// Push descending so the test also exercises the sort.
			for i := tt.count - 1; i >= 0; i-- {
				s.Push(float64(i))
			}
			if got := s.Percentile(tt.p); got != tt.want {
				t.Errorf("Percentile(%v) with %d samples = %f, want %f",
					tt.p, tt.count, got, tt.want)
			}
		})
	}
}

func TestStatsReset(t *testing.T) {
	s := New(5)
	s.Push(1)
	s.Push(2)
	s.Reset()

	if s.Count() != 0 {
		t.Errorf("Count() after Reset = %d, want 0", s.Count())
	}
	if s.Average() != 0 {
		t.Errorf("Average() after Reset = %f, want 0", s.Average())
	}

	s.Push(7)
	if s.Count() != 1 || s.Average() != 7 {
		t.Errorf("window unusable after Reset: count=%d avg=%f", s.Count(), s.Average())
	}
}

func TestEWMASeedsWithFirstSample(t *testing.T) {
	var e EWMA
	if e.Value() != 0 {
		t.Errorf("Value() before first sample = %f, want 0", e.Value())
	}
	if got := e.Update(16); got != 16 {
		t.Errorf("first Update(16) = %f, want 16", got)
	}
}

func TestEWMAWeighting(t *testing.T) {
	var e EWMA
	e.Update(16)
	// (16*7 + 8) / 8 = 15
	if got := e.Update(8); !almostEqual(got, 15) {
		t.Errorf("Update(8) = %f, want 15", got)
	}
	// (15*7 + 7) / 8 = 14
	if got := e.Update(7); !almostEqual(got, 14) {
		t.Errorf("Update(7) = %f, want 14", got)
	}
}

func TestEWMAConvergence(t *testing.T) {
	var e EWMA
	e.Update(1000)
	for i := 0; i < 200; i++ {
		e.Update(10)
	}
	if math.Abs(e.Value()-10) > 0.01 {
		t.Errorf("Value() after convergence = %f, want ~10", e.Value())
	}
}

func TestEWMAReset(t *testing.T) {
	var e EWMA
	e.Update(100)
	e.Reset()
	if e.Value() != 0 {
		t.Errorf("Value() after Reset = %f, want 0", e.Value())
	}
	// The next sample seeds again instead of averaging against 0.
	if got := e.Update(40); got != 40 {
		t.Errorf("Update(40) after Reset = %f, want 40", got)
	}
}
