package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeprobe/internal/console"
	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/probe"
	"github.com/hamed0406/uptimeprobe/internal/sink"
)

// Cadence probes one target on a fixed timer. A tick never waits for the
// previous probe, so slow probes overlap.
type Cadence struct {
	Session  *Session
	Prober   probe.Prober
	Target   domain.Target
	Interval time.Duration
	Grace    time.Duration
	Console  *console.Stream
	Log      *sink.CheckLog // nil disables the CSV
}

// Run probes immediately, then on every tick until ctx is cancelled. It
// returns once in-flight probes have finished or been torn down after Grace.
func (c *Cadence) Run(ctx context.Context) error {
	probeCtx, abort := probeContext(ctx, c.Grace)
	defer abort()

	var wg sync.WaitGroup
	fire := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.probeOnce(probeCtx)
		}()
	}

	t := time.NewTicker(c.Interval)
	defer t.Stop()

	c.Session.logger.Info("cadence_started",
		zap.String("url", c.Target.URL),
		zap.Duration("interval", c.Interval),
	)
	fire()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			c.Session.halt()
			wg.Wait()
			c.Session.logger.Info("cadence_stopped", zap.String("url", c.Target.URL))
			return nil
		case <-t.C:
			fire()
		}
	}
}

func (c *Cadence) probeOnce(ctx context.Context) {
	r := c.Prober.Check(ctx, c.Target)
	if ctx.Err() != nil {
		// torn down after the grace period; not an observation of the target
		return
	}
	seq, ok := c.Session.Record(ctx, r)
	if !ok {
		return
	}
	c.Console.Check(r)
	if c.Log != nil {
		if err := c.Log.WriteCheck(r, seq); err != nil {
			c.Session.sinkError(c.Log.Path(), err)
		}
	}
}
