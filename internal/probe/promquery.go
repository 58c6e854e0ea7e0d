package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"go.uber.org/multierr"
)

// Queries used by the resources mode against a node_exporter-backed Prometheus.
const (
	DefaultCPUQuery    = `100 - (avg by (instance) (rate(node_cpu_seconds_total{mode="idle"}[1m])) * 100)`
	DefaultMemoryQuery = `(node_memory_MemTotal_bytes - node_memory_MemAvailable_bytes) / 1024 / 1024 / 1024`
)

// PromQuerier runs instant queries against the Prometheus HTTP API.
type PromQuerier struct {
	BaseURL string
	Client  *http.Client
}

func NewPromQuerier(baseURL string, timeout time.Duration) *PromQuerier {
	return &PromQuerier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string          `json:"resultType"`
		Result     json.RawMessage `json:"result"`
	} `json:"data"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
}

// Query returns the value of the first sample of an instant query. A nil value
// with a nil error means the query succeeded but returned no samples.
func (q *PromQuerier) Query(ctx context.Context, promql string) (*float64, error) {
	u := q.BaseURL + "/api/v1/query?query=" + url.QueryEscape(promql)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := q.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if qr.Status != "success" {
		return nil, fmt.Errorf("query failed: %s: %s", qr.ErrorType, qr.Error)
	}

	switch qr.Data.ResultType {
	case model.ValVector.String():
		var vec model.Vector
		if err := json.Unmarshal(qr.Data.Result, &vec); err != nil {
			return nil, fmt.Errorf("decode vector: %w", err)
		}
		if len(vec) == 0 {
			return nil, nil
		}
		v := float64(vec[0].Value)
		return &v, nil
	case model.ValScalar.String():
		var s model.Scalar
		if err := json.Unmarshal(qr.Data.Result, &s); err != nil {
			return nil, fmt.Errorf("decode scalar: %w", err)
		}
		v := float64(s.Value)
		return &v, nil
	default:
		return nil, fmt.Errorf("unsupported result type %q", qr.Data.ResultType)
	}
}

// Reading is one resources sample. A nil field means the query yielded no value.
type Reading struct {
	CPUPercent *float64
	MemoryGB   *float64
}

// ResourceSampler queries CPU and memory one after the other.
type ResourceSampler struct {
	Querier     *PromQuerier
	CPUQuery    string
	MemoryQuery string
}

func (s *ResourceSampler) Sample(ctx context.Context) (Reading, error) {
	var (
		r    Reading
		errs error
	)
	cpu, err := s.Querier.Query(ctx, s.CPUQuery)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cpu: %w", err))
	}
	r.CPUPercent = cpu

	mem, err := s.Querier.Query(ctx, s.MemoryQuery)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("memory: %w", err))
	}
	r.MemoryGB = mem

	return r, errs
}
