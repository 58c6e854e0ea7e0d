package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

func target(url string) domain.Target {
	return domain.Target{ID: "T1", URL: url}
}

func TestHTTPChecker_StatusOK(t *testing.T) {
	var ua atomic.Value
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, SingleShot, "Downtime-Checker/1.0")
	out := chk.Check(context.Background(), target(s.URL))
	if !out.Up() {
		t.Fatalf("want success, got %+v", out)
	}
	if out.HTTPStatus != 200 || out.Status() != "HTTP200" {
		t.Fatalf("want status 200, got %d (%s)", out.HTTPStatus, out.Status())
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
	if out.CheckedAt.Before(out.StartedAt) {
		t.Fatalf("checked_at before started_at: %+v", out)
	}
	if got, _ := ua.Load().(string); got != "Downtime-Checker/1.0" {
		t.Fatalf("want user agent to be sent, got %q", got)
	}
}

func TestHTTPChecker_Status500(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, SingleShot, "")
	out := chk.Check(context.Background(), target(s.URL))
	if out.Up() {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.Kind != domain.KindNonSuccessStatus || out.HTTPStatus != 500 {
		t.Fatalf("want non-success status 500, got %+v", out)
	}
	if out.Status() != "HTTP500" {
		t.Fatalf("want HTTP500 label, got %q", out.Status())
	}
}

func TestHTTPChecker_RedirectIsNotFollowed(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		http.Redirect(w, r, "/gone", http.StatusFound)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, SingleShot, "")
	out := chk.Check(context.Background(), target(s.URL+"/start"))
	if !out.Up() || out.HTTPStatus != http.StatusFound {
		t.Fatalf("want 302 classified as success, got %+v", out)
	}
}

func TestHTTPChecker_TimeoutClassifiedAsTimeout(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50*time.Millisecond, SingleShot, "")
	out := chk.Check(context.Background(), target(s.URL))
	if out.Kind != domain.KindTimeout {
		t.Fatalf("want timeout, got %+v", out)
	}
	if out.HTTPStatus != 0 {
		t.Fatalf("want status 0 on timeout, got %d", out.HTTPStatus)
	}
	if out.LatencyMS > 190 {
		t.Fatalf("probe should be aborted near the timeout, took %.1fms", out.LatencyMS)
	}
}

func TestHTTPChecker_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	chk := NewHTTPChecker(2*time.Second, SingleShot, "")
	out := chk.Check(context.Background(), target("http://"+addr))
	if out.Kind != domain.KindNetworkError {
		t.Fatalf("want network error, got %+v", out)
	}
	if out.Reason != "ECONNREFUSED" {
		t.Fatalf("want ECONNREFUSED, got %q", out.Reason)
	}
}

func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	s := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}))
	s.Config.ConnState = func(_ net.Conn, st http.ConnState) {
		if st == http.StateNew {
			conns.Add(1)
		}
	}
	s.Start()
	return s, &conns
}

func TestHTTPChecker_SingleShotOpensFreshConnections(t *testing.T) {
	s, conns := countingServer(t)
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, SingleShot, "")
	for i := 0; i < 3; i++ {
		if out := chk.Check(context.Background(), target(s.URL)); !out.Up() {
			t.Fatalf("probe %d failed: %+v", i, out)
		}
	}
	if n := conns.Load(); n != 3 {
		t.Fatalf("want 3 connections, got %d", n)
	}
}

func TestHTTPChecker_PooledReusesConnection(t *testing.T) {
	s, conns := countingServer(t)
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, Pooled, "")
	for i := 0; i < 3; i++ {
		if out := chk.Check(context.Background(), target(s.URL)); !out.Up() {
			t.Fatalf("probe %d failed: %+v", i, out)
		}
	}
	if n := conns.Load(); n != 1 {
		t.Fatalf("want 1 reused connection, got %d", n)
	}
}
