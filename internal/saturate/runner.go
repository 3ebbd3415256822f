package saturate

import (
	"context"
	"fmt"
	"time"

	"github.com/throttlelab/throttle/internal/limiter"
	"github.com/throttlelab/throttle/internal/scenario"
	"go.uber.org/zap"
)

// startingConcurrency seeds the climb/back-off search.
const startingConcurrency = 1

// uncappedTps is the rate limit handed to the underlying limiter: a
// saturate run has no fixed goal, so its limiter is left effectively
// unbounded and the worker pool's own concurrency is what throttles
// load. The limiter primitive is still reused rather than bypassed,
// since Transaction.Do always goes through it.
const uncappedTps = 1_000_000

// Runner drives KindSaturate: climb concurrency while the error rate
// stays under threshold, back off once it's crossed, and report once
// the search has converged or the run's duration elapses.
type Runner struct {
	body   scenario.Scenario
	gauges scenario.Gauges
	log    *zap.SugaredLogger
}

// NewRunner constructs a saturate Runner for one scenario body.
func NewRunner(body scenario.Scenario, gauges scenario.Gauges, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if gauges == nil {
		gauges = scenario.NopGauges{}
	}
	return &Runner{body: body, gauges: gauges, log: log}
}

// Run drives cfg's scenario for cfg.Duration, or until the search
// converges, and returns the final summary plus a latency snapshot.
func (r *Runner) Run(ctx context.Context, cfg scenario.Config) (scenario.Summary, Snapshot, error) {
	if cfg.ErrorRate <= 0 {
		return scenario.Summary{}, Snapshot{}, fmt.Errorf("scenario %q: error rate threshold must be positive for kind saturate", cfg.Name)
	}

	start := time.Now()

	counters := &scenario.Counters{}
	lim := limiter.New(uncappedTps, r.log)
	pool := scenario.NewPool(ctx, r.body, lim, counters, r.log)
	latency := NewLatencyRecorder()
	pool.SetLatencyRecorder(latency)

	ctrl := New(cfg.ErrorRate, startingConcurrency, r.log)
	pool.SetConcurrency(ctrl.Concurrency())
	r.gauges.SetConcurrency(cfg.Name, float64(ctrl.Concurrency()))

	sampler := scenario.NewSampler(pool, lim, counters, 0, r.log)
	window := scenario.NewSampleSet()

	for {
		sample, err := sampler.Sample(ctx)
		if err != nil {
			sampler.Shutdown()
			r.gauges.SetConcurrency(cfg.Name, 0)
			return scenario.Summary{Concurrency: ctrl.Concurrency()}, latency.Snapshot(), err
		}

		if time.Since(start) > cfg.Duration {
			break
		}

		window.Push(sample)
		if !window.Full() {
			continue
		}

		next := ctrl.Analyze(window)
		window.Clear()
		sampler.SetConcurrency(next)
		r.gauges.SetConcurrency(cfg.Name, float64(next))

		if ctrl.Converged() {
			r.log.Infow("saturate search converged", "scenario", cfg.Name, "concurrency", next)
			break
		}
	}

	sampler.Shutdown()
	r.gauges.SetConcurrency(cfg.Name, 0)

	return scenario.Summary{Concurrency: ctrl.Concurrency(), Stable: ctrl.Converged()}, latency.Snapshot(), nil
}
