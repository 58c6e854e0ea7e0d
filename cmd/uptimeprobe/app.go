package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeprobe/internal/config"
	"github.com/hamed0406/uptimeprobe/internal/console"
	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/httpapi"
	"github.com/hamed0406/uptimeprobe/internal/probe"
	"github.com/hamed0406/uptimeprobe/internal/report"
	"github.com/hamed0406/uptimeprobe/internal/scheduler"
	"github.com/hamed0406/uptimeprobe/internal/sink"
	"github.com/hamed0406/uptimeprobe/internal/telemetry"
)

type driver interface {
	Run(ctx context.Context) error
}

// app is one wired monitoring session for the configured mode.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	stdout   io.Writer
	registry *prometheus.Registry
	session  *scheduler.Session
	driver   driver
	output   string
	report   func() error
}

func newApp(cfg config.Config, logger *zap.Logger, stdout io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, stdout: stdout, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.Output != "" {
		abs, err := filepath.Abs(cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("output path: %w", err)
		}
		a.output = abs
	}

	colored := cfg.Color == "always" || (cfg.Color == "auto" && !color.NoColor)
	stream := console.New(stdout, colored)

	var err error
	switch cfg.Mode {
	case config.ModeSingle, config.ModeTimeseries:
		err = a.wireCadence(stream)
	case config.ModeMulti:
		err = a.wireSequential(stream)
	case config.ModeResources:
		err = a.wireResources(stream)
	default:
		err = fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	a.logger.Info("session_started",
		zap.String("mode", string(cfg.Mode)),
		zap.Strings("targets", cfg.Targets),
		zap.Duration("interval", cfg.Interval),
		zap.Duration("timeout", cfg.Timeout),
		zap.Stringer("transport", cfg.Policy),
		zap.String("output", a.output),
	)
	return a, nil
}

func (a *app) newSession(targets []domain.Target) *scheduler.Session {
	s := scheduler.NewSession(targets,
		scheduler.WithLogger(a.logger),
		scheduler.WithObservers(telemetry.NewProbes(a.registry)),
		scheduler.WithDiagnose(probe.DiagnoseURL),
	)
	a.registry.MustRegister(telemetry.NewSessionCollector(s))
	return s
}

func (a *app) wireCadence(stream *console.Stream) error {
	targets := domain.NewTargets(a.cfg.Targets)
	a.session = a.newSession(targets)

	var log *sink.CheckLog
	if a.output != "" {
		var err error
		if log, err = sink.NewCheckLog(a.output); err != nil {
			return err
		}
		a.session.AddCloser(log)
	}

	a.driver = &scheduler.Cadence{
		Session:  a.session,
		Prober:   probe.NewHTTPChecker(a.cfg.Timeout, a.cfg.Policy, a.cfg.UserAgent),
		Target:   targets[0],
		Interval: a.cfg.Interval,
		Grace:    a.cfg.Grace,
		Console:  stream,
		Log:      log,
	}
	a.report = func() error {
		return report.WriteSingle(a.stdout, a.session.Summaries()[0], a.output)
	}
	return nil
}

func (a *app) wireSequential(stream *console.Stream) error {
	targets := domain.NewTargets(a.cfg.Targets)
	a.session = a.newSession(targets)

	log, err := sink.NewCycleLog(a.output, targets)
	if err != nil {
		return err
	}
	a.session.AddCloser(log)

	seq := &scheduler.Sequential{
		Session:  a.session,
		Prober:   probe.NewHTTPChecker(a.cfg.Timeout, a.cfg.Policy, a.cfg.UserAgent),
		Interval: a.cfg.Interval,
		Grace:    a.cfg.Grace,
		Console:  stream,
		Log:      log,
	}
	a.driver = seq
	a.report = func() error {
		return report.WriteMulti(a.stdout, a.session.Summaries(), a.session.Duration(), seq.Cycles(), a.output)
	}
	return nil
}

func (a *app) wireResources(stream *console.Stream) error {
	a.session = scheduler.NewSession(nil, scheduler.WithLogger(a.logger))

	log, err := sink.NewResourceLog(a.output)
	if err != nil {
		return err
	}
	a.session.AddCloser(log)

	res := &scheduler.Resources{
		Session: a.session,
		Sampler: &probe.ResourceSampler{
			Querier:     probe.NewPromQuerier(a.cfg.PrometheusURL, a.cfg.Timeout),
			CPUQuery:    a.cfg.CPUQuery,
			MemoryQuery: a.cfg.MemoryQuery,
		},
		Interval: a.cfg.Interval,
		Grace:    a.cfg.Grace,
		Console:  stream,
		Log:      log,
	}
	a.driver = res
	a.report = func() error {
		return report.WriteResources(a.stdout, report.Resources{
			Duration: a.session.Duration(),
			Checks:   res.Checks(),
			CPU:      res.CPU.Summary(),
			Memory:   res.Memory.Summary(),
			Output:   a.output,
		})
	}
	return nil
}

// run prints the header, drives probes until ctx is cancelled, stops the
// session and prints the report.
func (a *app) run(ctx context.Context) error {
	h := report.Header{
		Started:  a.session.Started(),
		Targets:  a.session.Targets(),
		Interval: a.cfg.Interval,
		Output:   a.output,
	}
	if a.cfg.Mode == config.ModeResources {
		h.PrometheusURL = a.cfg.PrometheusURL
	}
	if err := report.WriteHeader(a.stdout, h); err != nil {
		return multierr.Append(fmt.Errorf("write header: %w", err), a.session.Stop())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.driver.Run(gctx) })
	if a.cfg.StatusAddr != "" {
		srv := httpapi.NewServer(a.logger, string(a.cfg.Mode), a.session, a.registry)
		handler := srv.Router(a.cfg.APIKeys, a.cfg.StatusRPM, a.cfg.StatusBurst)
		g.Go(func() error {
			if err := srv.Serve(gctx, a.cfg.StatusAddr, handler); err != nil {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		})
	}

	runErr := g.Wait()
	stopErr := a.session.Stop()
	if stopErr != nil {
		stopErr = fmt.Errorf("close output: %w", stopErr)
	}
	return multierr.Combine(runErr, stopErr, a.report())
}
