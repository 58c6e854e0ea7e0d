package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

const (
	headerAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	headerCacheControl = "no-cache"
)

// HTTPChecker issues one GET per Check. Redirects are not followed, so a 3xx
// response is classified as it arrives.
type HTTPChecker struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string

	now func() time.Time
}

func NewHTTPChecker(timeout time.Duration, policy Policy, userAgent string) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{
			Transport: NewTransport(policy, timeout),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Timeout:   timeout,
		UserAgent: userAgent,
		now:       time.Now,
	}
}

func (h *HTTPChecker) Check(ctx context.Context, t domain.Target) domain.CheckResult {
	now := h.now
	if now == nil {
		now = time.Now
	}
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	res := domain.CheckResult{TargetID: t.ID, StartedAt: now()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		res.CheckedAt = now()
		res.Kind, res.Reason = Classify(0, err)
		return res
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	req.Header.Set("Accept", headerAccept)
	req.Header.Set("Cache-Control", headerCacheControl)

	resp, err := h.Client.Do(req)
	res.CheckedAt = now()
	res.LatencyMS = float64(res.CheckedAt.Sub(res.StartedAt)) / float64(time.Millisecond)
	if err != nil {
		res.Kind, res.Reason = Classify(0, err)
		return res
	}
	// drain so the connection can be reused or closed cleanly
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	res.HTTPStatus = resp.StatusCode
	res.Kind, res.Reason = Classify(resp.StatusCode, nil)
	return res
}
