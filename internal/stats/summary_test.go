package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile_IndexRule(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	v, ok := Percentile(sorted, 0.50)
	require.True(t, ok)
	assert.Equal(t, 6.0, v) // floor(10*0.5) = 5

	v, _ = Percentile(sorted, 0.95)
	assert.Equal(t, 10.0, v) // floor(9.5) = 9

	v, _ = Percentile(sorted, 1.0)
	assert.Equal(t, 10.0, v, "index n must clamp to n-1")

	v, ok = Percentile([]float64{42}, 0.99)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = Percentile(nil, 0.5)
	assert.False(t, ok)
}

func TestSummarize_PercentilesIgnoreArrivalOrder(t *testing.T) {
	base := make([]float64, 0, 200)
	for i := 0; i < 200; i++ {
		base = append(base, float64((i*37)%113)+0.5)
	}
	shuffled := append([]float64(nil), base...)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	a := Summarize(Snapshot{Successes: 200, Checks: 200, Latencies: base}, time.Minute)
	b := Summarize(Snapshot{Successes: 200, Checks: 200, Latencies: shuffled}, time.Minute)
	require.NotNil(t, a.P50MS)
	assert.Equal(t, *a.P50MS, *b.P50MS)
	assert.Equal(t, *a.P95MS, *b.P95MS)
	assert.Equal(t, *a.P99MS, *b.P99MS)

	// input left untouched
	assert.Equal(t, base[0], 0.5)
}

func TestSummarize_NoSuccessesReportsAbsent(t *testing.T) {
	s := Summarize(Snapshot{Checks: 3, Failures: 3, Downtime: 2 * time.Second}, 10*time.Second)
	assert.Nil(t, s.AvgLatencyMS)
	assert.Nil(t, s.P50MS)
	assert.Nil(t, s.P95MS)
	assert.Nil(t, s.P99MS)
	require.NotNil(t, s.SuccessRate)
	assert.Equal(t, 0.0, *s.SuccessRate)
	require.NotNil(t, s.Availability)
	assert.InDelta(t, 80.0, *s.Availability, 1e-9)
}

func TestSummarize_FullAvailabilityWithoutDowntime(t *testing.T) {
	s := Summarize(Snapshot{Checks: 2, Successes: 2, TotalLatencyMS: 30, Latencies: []float64{10, 20}}, 90*time.Second)
	require.NotNil(t, s.Availability)
	assert.Equal(t, 100.0, *s.Availability)
	require.NotNil(t, s.AvgLatencyMS)
	assert.Equal(t, 15.0, *s.AvgLatencyMS)
}

func TestAvailability_EmptySessionAndClamp(t *testing.T) {
	assert.Nil(t, Availability(0, 0))
	a := Availability(time.Second, 3*time.Second)
	require.NotNil(t, a)
	assert.Equal(t, 0.0, *a)
}

// Two targets over five one-second cycles; B fails in cycles 2 and 3.
func TestSummarize_TwoTargetsFiveCycles(t *testing.T) {
	a := NewAccumulator(targetA)
	b := NewAccumulator(targetB)
	for cycle := 0; cycle < 5; cycle++ {
		at := t0.Add(time.Duration(cycle) * time.Second)
		a.Record(ok(at, 50))
		if cycle == 1 || cycle == 2 {
			b.Record(fail(at.Add(50 * time.Millisecond)))
		} else {
			b.Record(ok(at.Add(50*time.Millisecond), 50))
		}
	}
	end := t0.Add(5 * time.Second)
	a.Freeze(end)
	b.Freeze(end)

	sa := Summarize(a.Snapshot(), end.Sub(t0))
	sb := Summarize(b.Snapshot(), end.Sub(t0))

	require.NotNil(t, sa.Availability)
	assert.Equal(t, 100.0, *sa.Availability)
	assert.InDelta(t, 2.0, sb.DowntimeS, 1e-9)
	assert.InDelta(t, 60.0, *sb.Availability, 1e-9)

	o := Aggregate([]Summary{sa, sb})
	assert.Equal(t, int64(10), o.Checks)
	assert.Equal(t, int64(8), o.Successes)
	assert.InDelta(t, 80.0, *o.SuccessRate, 1e-9)
}

func TestSeries_Summary(t *testing.T) {
	var s Series
	assert.Nil(t, s.Summary().Avg)

	for _, v := range []float64{4, 1, 3, 2} {
		s.Add(v)
	}
	sum := s.Summary()
	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, 2.5, *sum.Avg)
	assert.Equal(t, 3.0, *sum.Median)
	assert.Equal(t, 1.0, *sum.Min)
	assert.Equal(t, 4.0, *sum.Max)
}
