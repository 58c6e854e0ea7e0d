package stats

import (
	"time"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

// Summary is the final report for one target. Pointer fields are nil when the
// value is undefined (no successes, empty session).
type Summary struct {
	Target       domain.Target `json:"target"`
	Checks       int64         `json:"checks"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	SuccessRate  *float64      `json:"success_rate,omitempty"`
	AvgLatencyMS *float64      `json:"avg_latency_ms,omitempty"`
	P50MS        *float64      `json:"p50_ms,omitempty"`
	P95MS        *float64      `json:"p95_ms,omitempty"`
	P99MS        *float64      `json:"p99_ms,omitempty"`
	DowntimeS    float64       `json:"downtime_s"`
	DurationS    float64       `json:"duration_s"`
	Availability *float64      `json:"availability,omitempty"`
	Down         bool          `json:"down"`
}

// Summarize computes the report for a snapshot over a session of the given
// duration. An open streak in s is not included; freeze the accumulator
// first, or use SummarizeAt for a live view.
func Summarize(s Snapshot, session time.Duration) Summary {
	out := Summary{
		Target:    s.Target,
		Checks:    s.Checks,
		Successes: s.Successes,
		Failures:  s.Failures,
		DowntimeS: s.Downtime.Seconds(),
		DurationS: session.Seconds(),
		Down:      s.Down(),
	}

	if s.Checks > 0 {
		out.SuccessRate = ptr(float64(s.Successes) / float64(s.Checks) * 100)
	}
	if s.Successes > 0 {
		out.AvgLatencyMS = ptr(s.TotalLatencyMS / float64(s.Successes))
	}

	sorted := Sorted(s.Latencies)
	out.P50MS = percentilePtr(sorted, 0.50)
	out.P95MS = percentilePtr(sorted, 0.95)
	out.P99MS = percentilePtr(sorted, 0.99)

	out.Availability = Availability(session, s.Downtime)
	return out
}

// SummarizeAt summarizes a live snapshot, counting an open streak up to at.
func SummarizeAt(s Snapshot, start, at time.Time) Summary {
	s.Downtime = s.DowntimeAt(at)
	return Summarize(s, at.Sub(start))
}

// Availability is (session - downtime) / session * 100 clamped to [0, 100],
// or nil for an empty session.
func Availability(session, downtime time.Duration) *float64 {
	if session <= 0 {
		return nil
	}
	a := (session.Seconds() - downtime.Seconds()) / session.Seconds() * 100
	if a < 0 {
		a = 0
	}
	if a > 100 {
		a = 100
	}
	return &a
}

// Overall aggregates check counts across targets.
type Overall struct {
	Checks      int64    `json:"checks"`
	Successes   int64    `json:"successes"`
	SuccessRate *float64 `json:"success_rate,omitempty"`
}

func Aggregate(sums []Summary) Overall {
	var o Overall
	for _, s := range sums {
		o.Checks += s.Checks
		o.Successes += s.Successes
	}
	if o.Checks > 0 {
		o.SuccessRate = ptr(float64(o.Successes) / float64(o.Checks) * 100)
	}
	return o
}

func percentilePtr(sorted []float64, fraction float64) *float64 {
	v, ok := Percentile(sorted, fraction)
	if !ok {
		return nil
	}
	return &v
}

func ptr(v float64) *float64 { return &v }
