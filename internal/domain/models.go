package domain

import (
	"fmt"
	"time"
)

type TargetID string

// Target is one probed endpoint. Targets are fixed for the lifetime of a session.
type Target struct {
	ID    TargetID `json:"id"`
	Index int      `json:"index"`
	URL   string   `json:"url"`
}

// Label is the short name used on the console ("T1", "T2", ...).
func (t Target) Label() string {
	return fmt.Sprintf("T%d", t.Index+1)
}

// NewTargets assigns IDs and indexes in argument order.
func NewTargets(urls []string) []Target {
	out := make([]Target, 0, len(urls))
	for i, u := range urls {
		out = append(out, Target{
			ID:    TargetID(fmt.Sprintf("T%d", i+1)),
			Index: i,
			URL:   u,
		})
	}
	return out
}

// Kind classifies the outcome of one probe.
type Kind int

const (
	KindSuccess Kind = iota
	KindNonSuccessStatus
	KindNetworkError
	KindTimeout
)

var kindNames = map[Kind]string{
	KindSuccess:          "success",
	KindNonSuccessStatus: "non_success_status",
	KindNetworkError:     "network_error",
	KindTimeout:          "timeout",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", string(b))
}

// CheckResult is the classified outcome of a single probe. It is never mutated
// after the prober returns it.
//
// StartedAt is the dispatch time (used for records), CheckedAt the moment the
// outcome was known (used for downtime accounting). LatencyMS is the elapsed
// time from dispatch to response headers, or to the error.
type CheckResult struct {
	TargetID   TargetID  `json:"target_id"`
	Kind       Kind      `json:"kind"`
	HTTPStatus int       `json:"http_status,omitempty"`
	LatencyMS  float64   `json:"latency_ms"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	CheckedAt  time.Time `json:"checked_at"`
}

func (r CheckResult) Up() bool { return r.Kind == KindSuccess }

// Status is the label written to records: "HTTP200", "HTTP503", "Timeout",
// or the network error code.
func (r CheckResult) Status() string {
	switch r.Kind {
	case KindSuccess, KindNonSuccessStatus:
		return fmt.Sprintf("HTTP%d", r.HTTPStatus)
	case KindTimeout:
		return "Timeout"
	default:
		if r.Reason == "" {
			return "ERR"
		}
		return r.Reason
	}
}
