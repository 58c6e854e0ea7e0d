package stats

import "sync"

// Series collects readings of one resource metric (CPU %, memory GB).
type Series struct {
	mu     sync.Mutex
	values []float64
}

func (s *Series) Add(v float64) {
	s.mu.Lock()
	s.values = append(s.values, v)
	s.mu.Unlock()
}

type SeriesSummary struct {
	Count  int      `json:"count"`
	Avg    *float64 `json:"avg,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Min    *float64 `json:"min,omitempty"`
}

func (s *Series) Summary() SeriesSummary {
	s.mu.Lock()
	sorted := Sorted(s.values)
	s.mu.Unlock()

	out := SeriesSummary{Count: len(sorted)}
	if len(sorted) == 0 {
		return out
	}
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	out.Avg = ptr(sum / float64(len(sorted)))
	out.Median = percentilePtr(sorted, 0.50)
	out.Min = ptr(sorted[0])
	out.Max = ptr(sorted[len(sorted)-1])
	return out
}
