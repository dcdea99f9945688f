// Package derive turns raw counters into the figures shown and persisted:
// throughput from cumulative counters, percentages, and directory sizes.
package derive

import "time"

// BytesPerMiB is the divisor used for MiB/s throughput
const BytesPerMiB = 1_048_576

// RateState remembers the previous observation of one cumulative counter.
// The zero value has no baseline.
type RateState struct {
	lastValue uint64
	lastTime  time.Time
	hasBase   bool
}

// Observe records value at t and returns the throughput since the previous
// observation in MiB/s. It returns 0 when there is no baseline yet, when t is
// not after the baseline, or when the counter went backwards (reset or wrap).
// The baseline is replaced in every case.
func (r *RateState) Observe(value uint64, t time.Time) float64 {
	rate := 0.0
	if r.hasBase && value >= r.lastValue {
		if elapsed := t.Sub(r.lastTime).Seconds(); elapsed > 0 {
			rate = float64(value-r.lastValue) / (elapsed * BytesPerMiB)
		}
	}

	r.lastValue = value
	r.lastTime = t
	r.hasBase = true
	return rate
}

// Reset drops the baseline
func (r *RateState) Reset() {
	*r = RateState{}
}
