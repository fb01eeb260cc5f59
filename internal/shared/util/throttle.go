package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// ReanalysisThrottle caps how often watch mode may re-run a full analysis.
// Editor save storms arrive faster than a fixpoint run completes; the token
// bucket absorbs the burst and spaces the runs out.
type ReanalysisThrottle struct {
	inner *rate.Limiter
}

// NewReanalysisThrottle allows runsPerMinute re-analyses with the given
// burst size.
func NewReanalysisThrottle(runsPerMinute float64, burst int) *ReanalysisThrottle {
	return &ReanalysisThrottle{
		inner: rate.NewLimiter(rate.Limit(runsPerMinute/60.0), burst),
	}
}

// AllowRun reports whether a re-analysis may start now.
func (t *ReanalysisThrottle) AllowRun() bool {
	return t.inner.AllowN(time.Now(), 1)
}

// WaitRun blocks until a re-analysis slot is available.
func (t *ReanalysisThrottle) WaitRun(ctx context.Context) error {
	return t.inner.WaitN(ctx, 1)
}
