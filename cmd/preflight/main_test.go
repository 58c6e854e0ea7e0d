package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreflight_Passes(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--mode", "timeseries",
		"--log-dir", filepath.Join(dir, "logs"),
		"-o", filepath.Join(dir, "out.csv"),
		"http://127.0.0.1:9/ping",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "127.0.0.1 resolves") || !strings.Contains(stdout.String(), "preflight passed") {
		t.Fatalf("stdout: %s", stdout.String())
	}
}

func TestPreflight_UnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--mode", "timeseries",
		"--log-dir", dir,
		"-o", filepath.Join(dir, "missing", "out.csv"),
		"http://127.0.0.1:9/",
	}, &stdout, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "output directory not writable") {
		t.Fatalf("exit %d stderr: %s", code, stderr.String())
	}
}

func TestPreflight_ReportsEveryConfigError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--interval", "-1s", "ftp://x"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("want 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "interval must be at least 1ms") || !strings.Contains(stderr.String(), "scheme must be http or https") {
		t.Fatalf("stderr: %s", stderr.String())
	}
}

func TestPreflight_Prometheus(t *testing.T) {
	prom := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"scalar","result":[1700000000,"1"]}}`))
	}))
	defer prom.Close()

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--mode", "resources", "--prometheus-url", prom.URL, "--log-dir", dir, "-o", filepath.Join(dir, "r.csv")}, &stdout, &stderr)
	if code != 0 || !strings.Contains(stdout.String(), "answers queries") {
		t.Fatalf("exit %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}
}
