// Package httpapi serves the live status of a running session.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeprobe/internal/domain"
	apimw "github.com/hamed0406/uptimeprobe/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeprobe/internal/stats"
)

// Source is the session state the API reads.
type Source interface {
	Running() bool
	Started() time.Time
	Duration() time.Duration
	Targets() []domain.Target
	Summaries() []stats.Summary
}

type Server struct {
	Logger   *zap.Logger
	Mode     string
	Source   Source
	Gatherer prometheus.Gatherer
}

func NewServer(l *zap.Logger, mode string, src Source, g prometheus.Gatherer) *Server {
	return &Server{Logger: l, Mode: mode, Source: src, Gatherer: g}
}

// Router exposes /healthz openly and everything else behind the API keys and
// the per-IP rate limit.
func (s *Server) Router(keys []string, reqPerMin, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-API-Key"},
	}))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(reqPerMin, burst))
		r.Use(apimw.RequireKey(keys))

		r.Get("/api/targets", s.handleTargets)
		r.Get("/api/summary", s.handleSummary)
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"running": s.Source.Running(),
	})
}

type targetView struct {
	ID           domain.TargetID `json:"id"`
	URL          string          `json:"url"`
	Down         bool            `json:"down"`
	Checks       int64           `json:"checks"`
	DowntimeS    float64         `json:"downtime_s"`
	Availability *float64        `json:"availability,omitempty"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	sums := s.Source.Summaries()
	out := make([]targetView, 0, len(sums))
	for _, sum := range sums {
		out = append(out, targetView{
			ID:           sum.Target.ID,
			URL:          sum.Target.URL,
			Down:         sum.Down,
			Checks:       sum.Checks,
			DowntimeS:    sum.DowntimeS,
			Availability: sum.Availability,
		})
	}
	writeJSON(w, out)
}

type summaryView struct {
	Mode      string          `json:"mode"`
	Running   bool            `json:"running"`
	Started   time.Time       `json:"started"`
	DurationS float64         `json:"duration_s"`
	Targets   []stats.Summary `json:"targets"`
	Overall   stats.Overall   `json:"overall"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sums := s.Source.Summaries()
	writeJSON(w, summaryView{
		Mode:      s.Mode,
		Running:   s.Source.Running(),
		Started:   s.Source.Started().UTC(),
		DurationS: s.Source.Duration().Seconds(),
		Targets:   sums,
		Overall:   stats.Aggregate(sums),
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("status_listen", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Logger.Info("status_stopped", zap.Error(err))
		return err
	}
}
