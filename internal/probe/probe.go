package probe

import (
	"context"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

// Prober performs a single check against a target. Failures are reported in
// the returned result, never as an error.
type Prober interface {
	Check(ctx context.Context, t domain.Target) domain.CheckResult
}
