package probe

import (
	"net"
	"net/http"
	"time"
)

// Policy selects how probe connections are managed.
type Policy int

const (
	// SingleShot opens a fresh connection for every probe and allows one
	// connection per host. Stale pooled connections cannot produce false
	// failures.
	SingleShot Policy = iota
	// Pooled keeps a small bounded pool of idle connections for sustained
	// polling.
	Pooled
)

const (
	pooledMaxConns     = 5
	pooledMaxIdle      = 2
	pooledIdleTimeout  = 30 * time.Second
	pooledTCPKeepAlive = 30 * time.Second
)

func (p Policy) String() string {
	if p == Pooled {
		return "pooled"
	}
	return "single-shot"
}

// NewTransport builds the HTTP transport for a policy. The dial timeout is
// bounded by the probe timeout.
func NewTransport(p Policy, timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     false,
	}

	switch p {
	case Pooled:
		dialer.KeepAlive = pooledTCPKeepAlive
		tr.MaxConnsPerHost = pooledMaxConns
		tr.MaxIdleConns = pooledMaxIdle
		tr.MaxIdleConnsPerHost = pooledMaxIdle
		tr.IdleConnTimeout = pooledIdleTimeout
	default:
		dialer.KeepAlive = -1
		tr.DisableKeepAlives = true
		tr.MaxConnsPerHost = 1
	}
	tr.DialContext = dialer.DialContext
	return tr
}
