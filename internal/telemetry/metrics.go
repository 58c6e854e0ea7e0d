// Package telemetry exposes probe results as Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/stats"
)

const namespace = "uptimeprobe"

// Probes is updated on every recorded check.
type Probes struct {
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	up       *prometheus.GaugeVec
}

// NewProbes registers the probe collectors on reg.
func NewProbes(reg prometheus.Registerer) *Probes {
	f := promauto.With(reg)
	return &Probes{
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Checks performed, by target and result kind.",
		}, []string{"target", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time to response headers of successful checks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
		up: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "Whether the last check of a target succeeded (1) or failed (0).",
		}, []string{"target"}),
	}
}

func (p *Probes) Observe(r domain.CheckResult, _ stats.Transition) {
	id := string(r.TargetID)
	p.checks.WithLabelValues(id, r.Kind.String()).Inc()
	if r.Up() {
		p.duration.WithLabelValues(id).Observe(r.LatencyMS / 1000)
		p.up.WithLabelValues(id).Set(1)
		return
	}
	p.up.WithLabelValues(id).Set(0)
}

// SummarySource yields live per-target summaries.
type SummarySource interface {
	Summaries() []stats.Summary
}

// SessionCollector reports downtime and availability computed at scrape time.
type SessionCollector struct {
	src SummarySource

	info         *prometheus.Desc
	downtime     *prometheus.Desc
	availability *prometheus.Desc
}

func NewSessionCollector(src SummarySource) *SessionCollector {
	return &SessionCollector{
		src: src,
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "target_info"),
			"Monitored target.",
			[]string{"target", "url"}, nil,
		),
		downtime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "downtime_seconds"),
			"Downtime so far, including an open failure streak.",
			[]string{"target"}, nil,
		),
		availability: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "availability_percent"),
			"Share of the session not spent down.",
			[]string{"target"}, nil,
		),
	}
}

func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.downtime
	ch <- c.availability
}

func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.src.Summaries() {
		id := string(s.Target.ID)
		ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, id, s.Target.URL)
		ch <- prometheus.MustNewConstMetric(c.downtime, prometheus.GaugeValue, s.DowntimeS, id)
		if s.Availability != nil {
			ch <- prometheus.MustNewConstMetric(c.availability, prometheus.GaugeValue, *s.Availability, id)
		}
	}
}
