// Package pace spaces out yt-dlp invocations using a token bucket, so a
// long batch does not hammer YouTube.
package pace

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer throttles successive operations to a configured rate.
// A nil Pacer or one created with rps <= 0 never blocks.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a pacer allowing rps operations per second with a burst
// of one. rps <= 0 disables pacing.
func New(rps float64) *Pacer {
	if rps <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until the next operation is allowed or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
