package scenario

import (
	"context"
	"time"

	"github.com/throttlelab/throttle/internal/limiter"
	"go.uber.org/zap"
)

// minInterval is the floor the adaptive interval halving is clamped
// to. spec.md §9 flags unbounded halving as a risk at extreme TPS;
// this is the implementer-chosen floor.
const minInterval = 10 * time.Millisecond

// eventsPerSampleThreshold is the empirically chosen switchover point:
// once a sample sees more than this many total events, the sampler
// halves its tick interval so future samples stay small enough that
// counter-zero noise remains negligible.
const eventsPerSampleThreshold = 2000

// initialInterval is the sampler's starting cadence.
const initialInterval = 200 * time.Millisecond

// Sampler owns the counters, the worker pool and the rate limiter for
// one scenario run, and turns counter deltas into TpsData on an
// adaptive cadence.
type Sampler struct {
	pool     *Pool
	limiter  *limiter.Limiter
	counters *Counters
	log      *zap.SugaredLogger

	interval time.Duration
	ticker   *time.Ticker
	lastTick time.Time
	tpsLimit uint32
}

// NewSampler constructs a sampler with the given initial TPS limit. It
// does not start the pool; callers set concurrency separately.
func NewSampler(pool *Pool, lim *limiter.Limiter, counters *Counters, tpsLimit uint32, log *zap.SugaredLogger) *Sampler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sampler{
		pool:     pool,
		limiter:  lim,
		counters: counters,
		log:      log,
		interval: initialInterval,
		ticker:   time.NewTicker(initialInterval),
		lastTick: time.Now(),
		tpsLimit: tpsLimit,
	}
}

// Sample awaits the next interval tick, drains the counters, and
// returns one TpsData record. If the sample saw more than
// eventsPerSampleThreshold events, the interval is halved (monotone;
// it never grows back within a sampler's lifetime) so future samples
// stay small. Unlike tokio's interval (whose first tick fires
// instantly), Go's time.Ticker has no such behavior, so the new ticker
// is simply installed for the next call rather than waited on here —
// waiting would stall this call by a full extra interval and distort
// the very cadence the halving is meant to preserve.
func (s *Sampler) Sample(ctx context.Context) (TpsData, error) {
	select {
	case <-s.ticker.C:
	case <-ctx.Done():
		return TpsData{}, ctx.Err()
	}

	success, failure := s.counters.Swap()
	now := time.Now()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now

	data := TpsData{Elapsed: elapsed, SuccessCount: success, ErrorCount: failure}

	if data.Total() > eventsPerSampleThreshold && s.interval > minInterval {
		newInterval := s.interval / 2
		if newInterval < minInterval {
			newInterval = minInterval
		}
		s.interval = newInterval
		s.ticker.Stop()
		s.ticker = time.NewTicker(newInterval)
	}

	return data, nil
}

// SetConcurrency delegates to the worker pool.
func (s *Sampler) SetConcurrency(n int) {
	s.pool.SetConcurrency(n)
}

// SetTpsLimit replaces the shared limiter if n differs from the
// current limit; setting it to the current value is a no-op.
func (s *Sampler) SetTpsLimit(n uint32) {
	if n == s.tpsLimit {
		return
	}
	s.tpsLimit = n
	s.limiter.SetRate(float64(n))
}

// TpsLimit returns the currently configured limit.
func (s *Sampler) TpsLimit() uint32 {
	return s.tpsLimit
}

// Shutdown stops the ticker and tears down the worker pool.
func (s *Sampler) Shutdown() {
	s.ticker.Stop()
	s.pool.Shutdown()
}
