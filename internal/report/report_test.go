package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeprobe/internal/domain"
	"github.com/hamed0406/uptimeprobe/internal/stats"
)

func f(v float64) *float64 { return &v }

func TestWriteHeader(t *testing.T) {
	started := time.Date(2025, 3, 1, 9, 5, 7, 0, time.Local)

	var one bytes.Buffer
	require.NoError(t, WriteHeader(&one, Header{
		Started:  started,
		Targets:  domain.NewTargets([]string{"https://a.example/ping"}),
		Interval: 2 * time.Second,
		Output:   "/tmp/monitoring_1.csv",
	}))
	assert.Equal(t, "Started monitoring at 01-03-2025 09:05:07\n"+
		"Monitoring https://a.example/ping every 2s (Press Ctrl+C to stop)\n"+
		"Writing results to: /tmp/monitoring_1.csv\n\n", one.String())

	var many bytes.Buffer
	require.NoError(t, WriteHeader(&many, Header{
		Started:  started,
		Targets:  domain.NewTargets([]string{"https://a.example", "https://b.example"}),
		Interval: 1500 * time.Millisecond,
	}))
	assert.Contains(t, many.String(), "Monitoring 2 targets sequentially")
	assert.Contains(t, many.String(), "Targets: T1, T2\n")
	assert.NotContains(t, many.String(), "Writing results to")

	var res bytes.Buffer
	require.NoError(t, WriteHeader(&res, Header{Started: started, Interval: time.Second, PrometheusURL: "http://localhost:9090"}))
	assert.Contains(t, res.String(), "Started resource monitoring at 01-03-2025 09:05:07\nChecking every 1s")
	assert.Contains(t, res.String(), "Prometheus endpoint: http://localhost:9090\n")
}

func TestWriteSingle_AbsentValues(t *testing.T) {
	var buf bytes.Buffer
	s := stats.Summary{Checks: 3, Failures: 3, DowntimeS: 2.5, DurationS: 3}
	s.Availability = stats.Availability(3*time.Second, 2500*time.Millisecond)
	require.NoError(t, WriteSingle(&buf, s, ""))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\n\n--- Monitoring Report ---\n"))
	assert.Contains(t, out, "Monitoring duration: 3.0 seconds\n")
	assert.Contains(t, out, "Average response time: N/A ms\n")
	assert.Contains(t, out, "99th percentile (p99): N/A ms\n")
	assert.Contains(t, out, "Total downtime: 2.50 seconds\n")
	assert.Contains(t, out, "Availability: 16.67%\n")
	assert.NotContains(t, out, "saved to")
}

func TestWriteSingle_EmptySession(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSingle(&buf, stats.Summary{}, "out.csv"))
	assert.Contains(t, buf.String(), "Availability: N/A%\n")
	assert.Contains(t, buf.String(), "\nTime series data saved to: out.csv\n")
}

func TestWriteMulti(t *testing.T) {
	targets := domain.NewTargets([]string{"https://a.example", "https://b.example"})
	sums := []stats.Summary{
		{Target: targets[0], Checks: 5, Successes: 5, SuccessRate: f(100), Availability: f(100), AvgLatencyMS: f(50), P50MS: f(50), P95MS: f(50), P99MS: f(50)},
		{Target: targets[1], Checks: 5, Successes: 3, Failures: 2, SuccessRate: f(60), Availability: f(60), DowntimeS: 0.2, AvgLatencyMS: f(50), P50MS: f(50), P95MS: f(50), P99MS: f(50)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMulti(&buf, sums, 500*time.Millisecond, 5, "cycles.csv"))
	out := buf.String()

	assert.Contains(t, out, "Total cycles: 5\n\n--- Target 1: https://a.example ---\n")
	assert.Contains(t, out, "--- Target 2: https://b.example ---\n  Checks performed: 5\n  Successful: 3\n  Failed: 2\n")
	assert.Contains(t, out, "  Total downtime: 0.20 seconds\n")
	assert.Contains(t, out, "Total checks across all targets: 10\nTotal successful checks: 8\nOverall success rate: 80.00%\n")
}

func TestWriteResources(t *testing.T) {
	var cpu, mem stats.Series
	for _, v := range []float64{30, 10, 20} {
		cpu.Add(v)
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResources(&buf, Resources{
		Duration: 3 * time.Second,
		Checks:   4,
		CPU:      cpu.Summary(),
		Memory:   mem.Summary(),
	}))
	out := buf.String()
	assert.Contains(t, out, "Checks performed: 4\nSuccessful readings: 3\n")
	assert.Contains(t, out, "  Average: 20.00%\n  Median: 20.00%\n  Maximum: 30.00%\n  Minimum: 10.00%\n")
	assert.Contains(t, out, "  Average: N/A GB\n")
}
