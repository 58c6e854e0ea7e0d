// Package report renders the session header and the final report on the
// console. Rendering is a pure function of the summaries passed in.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/stats"
)

const startedLayout = "02-01-2006 15:04:05"

// Header describes a session as it starts.
type Header struct {
	Started       time.Time
	Targets       []domain.Target
	Interval      time.Duration
	Output        string // empty when no CSV is written
	PrometheusURL string // resources mode only
}

func every(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// WriteHeader prints the lines shown when monitoring starts.
func WriteHeader(w io.Writer, h Header) error {
	bw := bufio.NewWriter(w)
	switch {
	case h.PrometheusURL != "":
		fmt.Fprintf(bw, "Started resource monitoring at %s\n", h.Started.Format(startedLayout))
		fmt.Fprintf(bw, "Checking every %s (Press Ctrl+C to stop)\n", every(h.Interval))
		fmt.Fprintf(bw, "Prometheus endpoint: %s\n", h.PrometheusURL)
	case len(h.Targets) == 1:
		fmt.Fprintf(bw, "Started monitoring at %s\n", h.Started.Format(startedLayout))
		fmt.Fprintf(bw, "Monitoring %s every %s (Press Ctrl+C to stop)\n", h.Targets[0].URL, every(h.Interval))
	default:
		labels := make([]string, 0, len(h.Targets))
		for _, t := range h.Targets {
			labels = append(labels, t.Label())
		}
		fmt.Fprintf(bw, "Started monitoring at %s\n", h.Started.Format(startedLayout))
		fmt.Fprintf(bw, "Monitoring %d targets sequentially (Press Ctrl+C to stop)\n", len(h.Targets))
		fmt.Fprintf(bw, "Targets: %s\n", strings.Join(labels, ", "))
	}
	if h.Output != "" {
		fmt.Fprintf(bw, "Writing results to: %s\n", h.Output)
	}
	fmt.Fprintln(bw)
	return bw.Flush()
}

func num(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func savedTo(bw *bufio.Writer, output string) {
	if output != "" {
		fmt.Fprintf(bw, "\nTime series data saved to: %s\n", output)
	}
}

// WriteSingle prints the report of a single-target session.
func WriteSingle(w io.Writer, s stats.Summary, output string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "\n\n--- Monitoring Report ---\n")
	fmt.Fprintf(bw, "Monitoring duration: %.1f seconds\n", s.DurationS)
	fmt.Fprintf(bw, "Checks performed: %d\n", s.Checks)
	fmt.Fprintf(bw, "Successful checks: %d\n", s.Successes)
	fmt.Fprintf(bw, "Failed checks: %d\n", s.Failures)
	fmt.Fprintf(bw, "Average response time: %s ms\n", num(s.AvgLatencyMS))
	fmt.Fprintf(bw, "Median response time (p50): %s ms\n", num(s.P50MS))
	fmt.Fprintf(bw, "95th percentile (p95): %s ms\n", num(s.P95MS))
	fmt.Fprintf(bw, "99th percentile (p99): %s ms\n", num(s.P99MS))
	fmt.Fprintf(bw, "Total downtime: %.2f seconds\n", s.DowntimeS)
	fmt.Fprintf(bw, "Availability: %s%%\n", num(s.Availability))
	savedTo(bw, output)
	return bw.Flush()
}

// WriteMulti prints one block per target followed by the overall counts.
func WriteMulti(w io.Writer, sums []stats.Summary, duration time.Duration, cycles int64, output string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "\n\n=== TARGET AVAILABILITY REPORT ===\n")
	fmt.Fprintf(bw, "Monitoring duration: %.1f seconds\n", duration.Seconds())
	fmt.Fprintf(bw, "Total cycles: %d\n\n", cycles)

	for _, s := range sums {
		fmt.Fprintf(bw, "--- Target %d: %s ---\n", s.Target.Index+1, s.Target.URL)
		fmt.Fprintf(bw, "  Checks performed: %d\n", s.Checks)
		fmt.Fprintf(bw, "  Successful: %d\n", s.Successes)
		fmt.Fprintf(bw, "  Failed: %d\n", s.Failures)
		fmt.Fprintf(bw, "  Check success rate: %s%%\n", num(s.SuccessRate))
		fmt.Fprintf(bw, "  Availability: %s%%\n", num(s.Availability))
		fmt.Fprintf(bw, "  Avg response time: %s ms\n", num(s.AvgLatencyMS))
		fmt.Fprintf(bw, "  Median response time (p50): %s ms\n", num(s.P50MS))
		fmt.Fprintf(bw, "  95th percentile (p95): %s ms\n", num(s.P95MS))
		fmt.Fprintf(bw, "  99th percentile (p99): %s ms\n", num(s.P99MS))
		fmt.Fprintf(bw, "  Total downtime: %.2f seconds\n\n", s.DowntimeS)
	}

	o := stats.Aggregate(sums)
	fmt.Fprint(bw, "=== OVERALL STATISTICS ===\n")
	fmt.Fprintf(bw, "Total checks across all targets: %d\n", o.Checks)
	fmt.Fprintf(bw, "Total successful checks: %d\n", o.Successes)
	fmt.Fprintf(bw, "Overall success rate: %s%%\n", num(o.SuccessRate))
	savedTo(bw, output)
	return bw.Flush()
}

// Resources is the outcome of a resources session.
type Resources struct {
	Duration time.Duration
	Checks   int64
	CPU      stats.SeriesSummary
	Memory   stats.SeriesSummary
	Output   string
}

func WriteResources(w io.Writer, r Resources) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "\n\n--- Resource Monitoring Report ---\n")
	fmt.Fprintf(bw, "Monitoring duration: %.1f seconds\n", r.Duration.Seconds())
	fmt.Fprintf(bw, "Checks performed: %d\n", r.Checks)
	fmt.Fprintf(bw, "Successful readings: %d\n\n", r.CPU.Count)

	fmt.Fprint(bw, "CPU Usage:\n")
	fmt.Fprintf(bw, "  Average: %s%%\n", num(r.CPU.Avg))
	fmt.Fprintf(bw, "  Median: %s%%\n", num(r.CPU.Median))
	fmt.Fprintf(bw, "  Maximum: %s%%\n", num(r.CPU.Max))
	fmt.Fprintf(bw, "  Minimum: %s%%\n\n", num(r.CPU.Min))

	fmt.Fprint(bw, "Memory Usage:\n")
	fmt.Fprintf(bw, "  Average: %s GB\n", num(r.Memory.Avg))
	fmt.Fprintf(bw, "  Median: %s GB\n", num(r.Memory.Median))
	fmt.Fprintf(bw, "  Maximum: %s GB\n", num(r.Memory.Max))
	fmt.Fprintf(bw, "  Minimum: %s GB\n", num(r.Memory.Min))
	savedTo(bw, r.Output)
	return bw.Flush()
}
