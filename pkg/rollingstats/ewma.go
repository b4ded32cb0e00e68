package rollingstats

// EWMA is an exponentially weighted moving average with a fixed 7/8 weight
// on the previous value: avg' = (avg*7 + sample)/8. The first sample seeds
// the average directly. The weight damps jitter while staying responsive
// and is part of the pipeline's observable behavior; do not change it.
type EWMA struct {
	value  float64
	seeded bool
}

// Update folds a new sample into the average and returns the result
func (e *EWMA) Update(sample float64) float64 {
	if !e.seeded {
		e.value = sample
		e.seeded = true
		return e.value
	}
	e.value = (e.value*7 + sample) / 8
	return e.value
}

// Value returns the current average, 0 before the first sample
func (e *EWMA) Value() float64 {
	return e.value
}

// Reset clears the average
func (e *EWMA) Reset() {
	e.value = 0
	e.seeded = false
}
