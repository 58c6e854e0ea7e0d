package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeprobe/internal/console"
	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/probe"
	"github.com/hamed0406/uptimeprobe/internal/sink"
)

// Sequential probes every session target one after another, then waits out
// the rest of Interval. At most one probe is in flight at any time.
type Sequential struct {
	Session  *Session
	Prober   probe.Prober
	Interval time.Duration
	Grace    time.Duration
	Console  *console.Stream
	Log      *sink.CycleLog // nil disables the CSV

	cycles atomic.Int64
}

// Cycles is the number of cycles started so far.
func (q *Sequential) Cycles() int64 { return q.cycles.Load() }

// Run loops until ctx is cancelled. Cancellation is only observed between
// cycles; a cycle in progress runs to completion unless Grace expires.
func (q *Sequential) Run(ctx context.Context) error {
	probeCtx, abort := probeContext(ctx, q.Grace)
	defer abort()

	q.Session.logger.Info("sequential_started",
		zap.Int("targets", len(q.Session.Targets())),
		zap.Duration("interval", q.Interval),
	)

	for ctx.Err() == nil {
		start := q.Session.Now()
		q.runCycle(probeCtx, start)

		wait := q.Interval - q.Session.Now().Sub(start)
		if wait <= 0 {
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}

	q.Session.halt()
	q.Session.logger.Info("sequential_stopped", zap.Int64("cycles", q.Cycles()))
	return nil
}

func (q *Sequential) runCycle(ctx context.Context, start time.Time) {
	cycle := q.cycles.Add(1)
	targets := q.Session.Targets()
	results := make([]domain.CheckResult, 0, len(targets))

	q.Console.CycleStart(cycle)
	for _, t := range targets {
		q.Console.Labeled(t.Label())
		r := q.Prober.Check(ctx, t)
		if ctx.Err() != nil {
			break
		}
		if _, ok := q.Session.Record(ctx, r); !ok {
			break
		}
		q.Console.CycleCheck(r)
		results = append(results, r)
	}
	q.Console.EndLine()

	if q.Log != nil {
		if err := q.Log.WriteCycle(start, cycle, results); err != nil {
			q.Session.sinkError(q.Log.Path(), err)
		}
	}
}
