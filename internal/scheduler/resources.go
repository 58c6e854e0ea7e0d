package scheduler

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeprobe/internal/console"
	"github.com/hamed0406/uptimeprobe/internal/probe"
	"github.com/hamed0406/uptimeprobe/internal/sink"
	"github.com/hamed0406/uptimeprobe/internal/stats"
)

// Sampler reads one CPU/memory pair.
type Sampler interface {
	Sample(ctx context.Context) (probe.Reading, error)
}

// Resources polls a Sampler in a sequential loop with the same spacing rule
// as Sequential. Missing values are kept out of the series.
type Resources struct {
	Session  *Session
	Sampler  Sampler
	Interval time.Duration
	Grace    time.Duration
	Console  *console.Stream
	Log      *sink.ResourceLog // nil disables the CSV

	CPU    stats.Series
	Memory stats.Series

	checks atomic.Int64
}

func (m *Resources) Checks() int64 { return m.checks.Load() }

func (m *Resources) Run(ctx context.Context) error {
	probeCtx, abort := probeContext(ctx, m.Grace)
	defer abort()

	m.Session.logger.Info("resources_started", zap.Duration("interval", m.Interval))

	for ctx.Err() == nil {
		start := m.Session.Now()
		m.sampleOnce(probeCtx, start)

		wait := m.Interval - m.Session.Now().Sub(start)
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

	m.Session.halt()
	m.Session.logger.Info("resources_stopped", zap.Int64("checks", m.Checks()))
	return nil
}

func (m *Resources) sampleOnce(ctx context.Context, at time.Time) {
	reading, err := m.Sampler.Sample(ctx)
	if ctx.Err() != nil {
		return
	}
	seq := m.checks.Add(1)
	if err != nil {
		m.Session.logger.Warn("resource_query_error", zap.Int64("check_number", seq), zap.Error(err))
	}
	if reading.CPUPercent != nil {
		m.CPU.Add(*reading.CPUPercent)
	}
	if reading.MemoryGB != nil {
		m.Memory.Add(*reading.MemoryGB)
	}

	m.Console.Printf("[Check %d] CPU: %s%% | RAM: %sGB\n", seq, display(reading.CPUPercent), display(reading.MemoryGB))

	if m.Log != nil {
		if err := m.Log.WriteReading(at, seq, reading.CPUPercent, reading.MemoryGB); err != nil {
			m.Session.sinkError(m.Log.Path(), err)
		}
	}
}

func display(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
