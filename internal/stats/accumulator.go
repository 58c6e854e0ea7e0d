// Package stats holds per-target probe accounting and the summary math run
// at shutdown.
package stats

import (
	"sync"
	"time"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

// Transition reports a state change caused by a recorded check.
type Transition int

const (
	NoChange Transition = iota
	WentDown
	Recovered
)

// Accumulator is the running state of one target. It is an Up/Down state
// machine: the first failure of a streak opens it, the next success closes it
// and credits the streak to downtime. All methods are safe for concurrent use;
// updates are serialized.
type Accumulator struct {
	mu sync.Mutex

	target         domain.Target
	checks         int64
	successes      int64
	failures       int64
	totalLatencyMS float64
	latencies      []float64
	downSince      *time.Time
	downtime       time.Duration
	last           *domain.CheckResult
	frozen         bool
	downAtStop     bool
}

func NewAccumulator(t domain.Target) *Accumulator {
	return &Accumulator{target: t, latencies: make([]float64, 0, 128)}
}

func (a *Accumulator) Target() domain.Target { return a.target }

// Record applies one result, timestamped by r.CheckedAt. It returns the check
// number assigned to r and the resulting transition. After Freeze, results
// are dropped and ok is false.
func (a *Accumulator) Record(r domain.CheckResult) (seq int64, tr Transition, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return 0, NoChange, false
	}

	a.checks++
	seq = a.checks
	rc := r
	a.last = &rc

	if r.Up() {
		a.successes++
		a.totalLatencyMS += r.LatencyMS
		a.latencies = append(a.latencies, r.LatencyMS)
		if a.downSince != nil {
			a.downtime += positive(r.CheckedAt.Sub(*a.downSince))
			a.downSince = nil
			tr = Recovered
		}
		return seq, tr, true
	}

	a.failures++
	if a.downSince == nil {
		at := r.CheckedAt
		a.downSince = &at
		tr = WentDown
	}
	return seq, tr, true
}

// Freeze credits an open failure streak up to at and stops accepting results.
// Only the first call has an effect.
func (a *Accumulator) Freeze(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return
	}
	if a.downSince != nil {
		a.downtime += positive(at.Sub(*a.downSince))
		a.downSince = nil
		a.downAtStop = true
	}
	a.frozen = true
}

// Snapshot is a point-in-time copy of an Accumulator.
type Snapshot struct {
	Target         domain.Target       `json:"target"`
	Checks         int64               `json:"checks"`
	Successes      int64               `json:"successes"`
	Failures       int64               `json:"failures"`
	TotalLatencyMS float64             `json:"total_latency_ms"`
	Latencies      []float64           `json:"-"`
	DownSince      *time.Time          `json:"down_since,omitempty"`
	Downtime       time.Duration       `json:"-"`
	Last           *domain.CheckResult `json:"last,omitempty"`
	Frozen         bool                `json:"frozen"`
	DownAtStop     bool                `json:"down_at_stop,omitempty"`
}

// Down reports whether a failure streak is open, or was open when the
// accumulator was frozen.
func (s Snapshot) Down() bool { return s.DownSince != nil || s.DownAtStop }

// DowntimeAt is the credited downtime plus the open streak up to at. It does
// not change the accumulator.
func (s Snapshot) DowntimeAt(at time.Time) time.Duration {
	d := s.Downtime
	if s.DownSince != nil {
		d += positive(at.Sub(*s.DownSince))
	}
	return d
}

func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Target:         a.target,
		Checks:         a.checks,
		Successes:      a.successes,
		Failures:       a.failures,
		TotalLatencyMS: a.totalLatencyMS,
		Latencies:      append([]float64(nil), a.latencies...),
		Downtime:       a.downtime,
		Frozen:         a.frozen,
		DownAtStop:     a.downAtStop,
	}
	if a.downSince != nil {
		ds := *a.downSince
		s.DownSince = &ds
	}
	if a.last != nil {
		l := *a.last
		s.Last = &l
	}
	return s
}

// results may complete out of order under overlapping probes
func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
