// Package limiter wraps a token-bucket rate limiter behind an atomic
// snapshot so that the active limit can be replaced without requiring
// callers to coordinate around the swap.
package limiter

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Burst is fixed at 1: every acquire consumes the single available
// token and waits for the next replenishment, which is what gives the
// limiter its pacing behaviour rather than bursty admission.
const Burst = 1

// Limiter is a token bucket whose rate can be swapped out atomically.
// Readers that already grabbed a snapshot via Acquire observe either
// the old or the new limiter for that call, never a mix of the two.
type Limiter struct {
	current atomic.Pointer[rate.Limiter]
	tps     atomic.Uint64 // bits of the float64 rate, for Rate()
	log     *zap.SugaredLogger
}

// New builds a Limiter with an initial rate of tps transactions per
// second. A non-positive tps is a bug in the caller: it is logged and
// clamped to 1 rather than producing a limiter that never admits.
func New(tps float64, log *zap.SugaredLogger) *Limiter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	l := &Limiter{log: log}
	l.SetRate(tps)
	return l
}

// Acquire suspends the caller until a permit is available under
// whichever limiter is current at the moment of the call.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.current.Load().Wait(ctx)
}

// SetRate atomically replaces the active limiter. Setting the rate to
// its current value is a no-op: no new limiter is allocated and no
// observer sees a replacement.
func (l *Limiter) SetRate(tps float64) {
	if tps <= 0 {
		l.log.Errorw("refusing to derive a non-positive rate limit, clamping to 1tps", "requested", tps)
		tps = 1
	}
	if tps == l.Rate() {
		return
	}
	l.current.Store(rate.NewLimiter(rate.Limit(tps), Burst))
	l.tps.Store(math.Float64bits(tps))
}

// Rate returns the currently configured transactions-per-second limit.
func (l *Limiter) Rate() float64 {
	return math.Float64frombits(l.tps.Load())
}
