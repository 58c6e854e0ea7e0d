package stats

import "sort"

// Percentile returns sorted[floor(n*fraction)], with the index clamped to
// n-1. sorted must be ascending. ok is false when sorted is empty.
func Percentile(sorted []float64, fraction float64) (v float64, ok bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	idx := int(float64(n) * fraction)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx], true
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}
