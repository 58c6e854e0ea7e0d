package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

var at = time.Date(2025, 8, 18, 12, 0, 0, 123_000_000, time.UTC)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestCheckLog_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ts.csv")
	l, err := NewCheckLog(path)
	if err != nil {
		t.Fatalf("NewCheckLog: %v", err)
	}
	if err := l.WriteCheck(domain.CheckResult{Kind: domain.KindSuccess, HTTPStatus: 200, LatencyMS: 12.346, StartedAt: at}, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.WriteCheck(domain.CheckResult{Kind: domain.KindTimeout, LatencyMS: 60000, StartedAt: at}, 2); err != nil {
		t.Fatalf("write: %v", err)
	}

	// rows are flushed before Close
	lines := readLines(t, path)
	want := []string{
		"timestamp,response_time_ms,status,check_number",
		"2025-08-18T12:00:00.123Z,12.35,HTTP200,1",
		"2025-08-18T12:00:00.123Z,NA,Timeout,2",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected content:\n%s", strings.Join(lines, "\n"))
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := l.WriteCheck(domain.CheckResult{}, 3); err == nil {
		t.Fatalf("want error writing to closed sink")
	}
}

func TestCycleLog_WideRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.csv")
	targets := domain.NewTargets([]string{"https://a", "https://b", "https://c"})
	l, err := NewCycleLog(path, targets)
	if err != nil {
		t.Fatalf("NewCycleLog: %v", err)
	}
	defer l.Close()

	results := []domain.CheckResult{
		{Kind: domain.KindSuccess, HTTPStatus: 200, LatencyMS: 50},
		{Kind: domain.KindNetworkError, Reason: "ECONNREFUSED"},
	}
	if err := l.WriteCycle(at, 4, results); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := readLines(t, path)
	if lines[0] != "timestamp,cycle,target1_response_ms,target1_status,target2_response_ms,target2_status,target3_response_ms,target3_status" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != "2025-08-18T12:00:00.123Z,4,50.00,HTTP200,NA,ECONNREFUSED,NA,NA" {
		t.Fatalf("unexpected row: %s", lines[1])
	}
}

func TestResourceLog_OptionalValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "res.csv")
	l, err := NewResourceLog(path)
	if err != nil {
		t.Fatalf("NewResourceLog: %v", err)
	}
	defer l.Close()

	cpu := 37.5
	if err := l.WriteReading(at, 1, &cpu, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := readLines(t, path)
	if lines[1] != "2025-08-18T12:00:00.123Z,1,37.50,NA" {
		t.Fatalf("unexpected row: %s", lines[1])
	}
}

func TestCreate_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.csv")
	if _, err := NewCheckLog(path); err == nil {
		t.Fatalf("want error for unwritable path")
	}
}
