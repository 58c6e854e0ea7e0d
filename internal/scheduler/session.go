// Package scheduler drives probes: a fixed-cadence loop for one target, a
// sequential cycle over many targets and a metrics loop against Prometheus.
// All three record into a Session.
package scheduler

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/probe"
	"github.com/hamed0406/uptimeprobe/internal/stats"
)

// Observer receives every recorded check. Implementations must be safe for
// concurrent use.
type Observer interface {
	Observe(r domain.CheckResult, tr stats.Transition)
}

// DiagnoseFunc inspects a target that just went down with a network error.
type DiagnoseFunc func(ctx context.Context, rawURL string) probe.DNSStatus

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithObservers(obs ...Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, obs...) }
}

func WithDiagnose(fn DiagnoseFunc) Option {
	return func(s *Session) { s.diagnose = fn }
}

// Session is one monitoring run: its targets, their accumulators, the sinks
// it writes to and its running flag.
type Session struct {
	started   time.Time
	now       func() time.Time
	logger    *zap.Logger
	observers []Observer
	diagnose  DiagnoseFunc

	targets []domain.Target
	accs    []*stats.Accumulator
	byID    map[domain.TargetID]*stats.Accumulator

	running atomic.Bool
	bg      sync.WaitGroup

	mu        sync.Mutex
	closers   []io.Closer
	stopped   bool
	stoppedAt time.Time

	stopOnce sync.Once
	stopErr  error
}

func NewSession(targets []domain.Target, opts ...Option) *Session {
	s := &Session{
		now:    time.Now,
		logger: zap.NewNop(),
		byID:   make(map[domain.TargetID]*stats.Accumulator, len(targets)),
	}
	for _, o := range opts {
		o(s)
	}
	s.targets = append([]domain.Target(nil), targets...)
	for _, t := range s.targets {
		a := stats.NewAccumulator(t)
		s.accs = append(s.accs, a)
		s.byID[t.ID] = a
	}
	s.started = s.now()
	s.running.Store(true)
	return s
}

// AddCloser registers a sink to be closed by Stop.
func (s *Session) AddCloser(c io.Closer) {
	s.mu.Lock()
	s.closers = append(s.closers, c)
	s.mu.Unlock()
}

func (s *Session) Started() time.Time { return s.started }
func (s *Session) Now() time.Time { return s.now() }
func (s *Session) Running() bool { return s.running.Load() }
func (s *Session) Targets() []domain.Target { return s.targets }

// halt clears the running flag without freezing; in-flight probes may still
// record until Stop.
func (s *Session) halt() { s.running.Store(false) }

// Record applies a result to its target's accumulator, logs transitions and
// notifies observers. ok is false once the session is stopped or for an
// unknown target.
func (s *Session) Record(ctx context.Context, r domain.CheckResult) (seq int64, ok bool) {
	acc := s.byID[r.TargetID]
	if acc == nil {
		s.logger.Warn("unknown_target", zap.String("target_id", string(r.TargetID)))
		return 0, false
	}
	seq, tr, ok := acc.Record(r)
	if !ok {
		return 0, false
	}

	t := acc.Target()
	s.logger.Debug("probe_checked",
		zap.String("target_id", string(t.ID)),
		zap.String("url", t.URL),
		zap.Int64("check_number", seq),
		zap.Stringer("kind", r.Kind),
		zap.Int("status", r.HTTPStatus),
		zap.Float64("latency_ms", r.LatencyMS),
		zap.String("reason", r.Reason),
	)

	switch tr {
	case stats.WentDown:
		s.logger.Warn("target_down",
			zap.String("target_id", string(t.ID)),
			zap.String("url", t.URL),
			zap.String("status", r.Status()),
			zap.Time("since", r.CheckedAt),
		)
		if r.Kind == domain.KindNetworkError && s.diagnose != nil {
			s.diagnoseAsync(ctx, t)
		}
	case stats.Recovered:
		s.logger.Info("target_recovered",
			zap.String("target_id", string(t.ID)),
			zap.String("url", t.URL),
			zap.Float64("latency_ms", r.LatencyMS),
		)
	}

	for _, o := range s.observers {
		o.Observe(r, tr)
	}
	return seq, true
}

// diagnoseAsync starts a DNS diagnosis unless Stop has begun. The Add happens
// under mu so Stop never waits on a group that is still growing.
func (s *Session) diagnoseAsync(ctx context.Context, t domain.Target) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.bg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.bg.Done()
		d := s.diagnose(context.WithoutCancel(ctx), t.URL)
		s.logger.Info("dns_diagnosis",
			zap.String("target_id", string(t.ID)),
			zap.String("domain", d.Domain),
			zap.String("class", d.Class),
			zap.Bool("has_a_or_aaaa", d.HasAOrAAAA),
			zap.String("cname", d.CNAME),
			zap.Strings("nameservers", d.Nameservers),
			zap.String("resolver_error", d.ResolverError),
		)
	}()
	return true
}

// Stop ends the session: clears the running flag, credits open failure
// streaks up to now, waits for pending diagnoses and closes every registered
// sink. Later calls return the first call's result.
func (s *Session) Stop() error {
	s.stopOnce.Do(s.stop)
	return s.stopErr
}

func (s *Session) stop() {
	s.mu.Lock()
	s.halt()
	s.stopped = true
	s.stoppedAt = s.now()
	for _, a := range s.accs {
		a.Freeze(s.stoppedAt)
	}
	closers := s.closers
	s.mu.Unlock()

	s.bg.Wait()

	var err error
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	s.stopErr = err
	s.logger.Info("session_stopped",
		zap.Duration("duration", s.stoppedAt.Sub(s.started)),
		zap.Error(err),
	)
}

// Duration is the session length: up to Stop once stopped, up to now before.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.stoppedAt.Sub(s.started)
	}
	return s.now().Sub(s.started)
}

func (s *Session) Snapshot() []stats.Snapshot {
	out := make([]stats.Snapshot, 0, len(s.accs))
	for _, a := range s.accs {
		out = append(out, a.Snapshot())
	}
	return out
}

// Summaries reports every target in target order. Before Stop, open streaks
// are counted up to now without being credited.
func (s *Session) Summaries() []stats.Summary {
	s.mu.Lock()
	stopped, end := s.stopped, s.stoppedAt
	s.mu.Unlock()

	out := make([]stats.Summary, 0, len(s.accs))
	for _, snap := range s.Snapshot() {
		if stopped {
			out = append(out, stats.Summarize(snap, end.Sub(s.started)))
			continue
		}
		out = append(out, stats.SummarizeAt(snap, s.started, s.now()))
	}
	return out
}

// probeContext returns the context probes run under: it outlives ctx by
// grace, then is cancelled, tearing down in-flight requests.
func probeContext(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		timer = time.AfterFunc(grace, cancel)
		mu.Unlock()
	})
	return pctx, func() {
		stop()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		cancel()
	}
}

func (s *Session) sinkError(path string, err error) {
	s.logger.Error("sink_write_error", zap.String("path", path), zap.Error(err))
}
