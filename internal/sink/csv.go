// Package sink writes append-only CSV time series: one header row at
// creation, then one flushed row per observation.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z"
	notAvailable    = "NA"
)

// File is a CSV file that flushes every row. The first write error is kept
// and returned again by Close.
type File struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *csv.Writer
	err    error
	closed bool
}

func create(path string, header []string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	out := &File{path: path, f: f, w: csv.NewWriter(f)}
	if err := out.write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header to %s: %w", path, err)
	}
	return out, nil
}

func (f *File) Path() string { return f.path }

func (f *File) write(row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("write to closed sink %s", f.path)
	}
	if err := f.w.Write(row); err != nil {
		return f.keep(err)
	}
	f.w.Flush()
	return f.keep(f.w.Error())
}

func (f *File) keep(err error) error {
	if err != nil && f.err == nil {
		f.err = err
	}
	return err
}

// Close flushes and closes the file. It is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.w.Flush()
	return multierr.Combine(f.err, f.w.Error(), f.f.Close())
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatMS(r domain.CheckResult) string {
	if !r.Up() {
		return notAvailable
	}
	return strconv.FormatFloat(r.LatencyMS, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// CheckLog records one row per check of a single target.
type CheckLog struct {
	*File
}

func NewCheckLog(path string) (*CheckLog, error) {
	f, err := create(path, []string{"timestamp", "response_time_ms", "status", "check_number"})
	if err != nil {
		return nil, err
	}
	return &CheckLog{File: f}, nil
}

func (l *CheckLog) WriteCheck(r domain.CheckResult, seq int64) error {
	return l.write([]string{
		timestamp(r.StartedAt),
		formatMS(r),
		r.Status(),
		strconv.FormatInt(seq, 10),
	})
}

// CycleLog records one wide row per sequential cycle with a
// (response_ms, status) pair per target.
type CycleLog struct {
	*File
	targets int
}

func NewCycleLog(path string, targets []domain.Target) (*CycleLog, error) {
	header := []string{"timestamp", "cycle"}
	for i := range targets {
		header = append(header,
			fmt.Sprintf("target%d_response_ms", i+1),
			fmt.Sprintf("target%d_status", i+1),
		)
	}
	f, err := create(path, header)
	if err != nil {
		return nil, err
	}
	return &CycleLog{File: f, targets: len(targets)}, nil
}

// WriteCycle writes results in target order. Missing results are written as NA.
func (l *CycleLog) WriteCycle(at time.Time, cycle int64, results []domain.CheckResult) error {
	row := make([]string, 0, 2+2*l.targets)
	row = append(row, timestamp(at), strconv.FormatInt(cycle, 10))
	for i := 0; i < l.targets; i++ {
		if i >= len(results) {
			row = append(row, notAvailable, notAvailable)
			continue
		}
		row = append(row, formatMS(results[i]), results[i].Status())
	}
	return l.write(row)
}

// ResourceLog records CPU and memory readings.
type ResourceLog struct {
	*File
}

func NewResourceLog(path string) (*ResourceLog, error) {
	f, err := create(path, []string{"timestamp", "check_number", "cpu_percent", "memory_gb"})
	if err != nil {
		return nil, err
	}
	return &ResourceLog{File: f}, nil
}

func (l *ResourceLog) WriteReading(at time.Time, seq int64, cpuPercent, memoryGB *float64) error {
	return l.write([]string{
		timestamp(at),
		strconv.FormatInt(seq, 10),
		formatOptional(cpuPercent),
		formatOptional(memoryGB),
	})
}
