// Package rollingstats provides a fixed-capacity rolling window of float64
// samples with aggregate queries, used by the pipeline stages to report
// latency distributions.
package rollingstats

import (
	"math"
	"sort"
)

// Stats is a fixed-capacity circular buffer of samples. Pushing beyond
// capacity overwrites the oldest sample; capacity never grows.
// Not safe for concurrent use; callers guard it with their own lock.
type Stats struct {
	samples []float64
	next    int
	count   int
}

// New creates a rolling window holding at most capacity samples.
// A window of 300 covers ~5s of per-frame samples at 60 Hz.
func New(capacity int) *Stats {
	if capacity < 1 {
		capacity = 1
	}
	return &Stats{samples: make([]float64, capacity)}
}

// Push records a sample, evicting the oldest when the window is full
func (s *Stats) Push(v float64) {
	s.samples[s.next] = v
	s.next = (s.next + 1) % len(s.samples)
	if s.count < len(s.samples) {
		s.count++
	}
}

// Count returns the number of valid samples currently held
func (s *Stats) Count() int {
	return s.count
}

// Capacity returns the fixed window size
func (s *Stats) Capacity() int {
	return len(s.samples)
}

// Reset discards all samples
func (s *Stats) Reset() {
	s.next = 0
	s.count = 0
}

// Average returns the mean over valid samples, 0 when empty
func (s *Stats) Average() float64 {
	if s.count == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.valid() {
		sum += v
	}
	return sum / float64(s.count)
}

// Min returns the smallest valid sample, 0 when empty
func (s *Stats) Min() float64 {
	if s.count == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, v := range s.valid() {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest valid sample, 0 when empty
func (s *Stats) Max() float64 {
	if s.count == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, v := range s.valid() {
		if v > max {
			max = v
		}
	}
	return max
}

// Percentile returns the p-th percentile over valid samples, 0 when empty.
// Samples are sorted ascending and indexed at floor((count-1) * p/100), so
// Percentile(99) on a frame-time series yields the "1% low" frame time.
func (s *Stats) Percentile(p float64) float64 {
	if s.count == 0 {
		return 0
	}
	sorted := append([]float64(nil), s.valid()...)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(s.count-1) * p / 100))
	if idx < 0 {
		idx = 0
	}
	if idx >= s.count {
		idx = s.count - 1
	}
	return sorted[idx]
}

// valid returns the filled portion of the buffer in storage order.
// Order does not matter for any aggregate computed here.
func (s *Stats) valid() []float64 {
	return s.samples[:s.count]
}
