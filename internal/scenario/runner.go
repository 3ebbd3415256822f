package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/throttlelab/throttle/internal/controller"
	"github.com/throttlelab/throttle/internal/limiter"
	"go.uber.org/zap"
)

// startingConcurrency seeds both the controller's search and the
// fallback it returns to when a proposal comes back non-positive.
const startingConcurrency = 1

// Runner sequences the worker pool, TPS sampler, sample window and
// concurrency controller for one scenario's lifetime. This is the
// goal-TPS control loop (spec.md §4.7), grounded directly on
// balter-core's run_tps: sample, check duration, feed the sample
// window, analyze once full, act on the decision.
type Runner struct {
	body   Scenario
	gauges Gauges
	sink   Distribution
	log    *zap.SugaredLogger
}

// NewRunner constructs a Runner for a single scenario body. gauges and
// sink may be nil, in which case observations are discarded and
// surplus TPS on saturation is dropped without being redistributed.
func NewRunner(body Scenario, gauges Gauges, sink Distribution, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if gauges == nil {
		gauges = NopGauges{}
	}
	return &Runner{body: body, gauges: gauges, sink: sink, log: log}
}

// RunTps drives cfg's scenario toward its goal TPS for cfg.Duration,
// adjusting concurrency each time the sample window fills, and returns
// the run's final summary.
//
// NOTE: the sample/analyze loop is time-sensitive; nothing in it may
// block beyond the sampler's own tick wait.
func (r *Runner) RunTps(ctx context.Context, cfg Config) (Summary, error) {
	if cfg.GoalTps == 0 {
		return Summary{}, fmt.Errorf("scenario %q: goal tps must be positive for kind tps", cfg.Name)
	}

	start := time.Now()

	counters := &Counters{}
	lim := limiter.New(float64(cfg.GoalTps), r.log)
	pool := NewPool(ctx, r.body, lim, counters, r.log)
	ctrl := controller.New(cfg.GoalTps, startingConcurrency, r.log)
	sampler := NewSampler(pool, lim, counters, cfg.GoalTps, r.log)
	sampler.SetConcurrency(ctrl.Concurrency())

	window := NewSampleSet()

	r.gauges.SetConcurrency(cfg.Name, float64(ctrl.Concurrency()))
	r.gauges.SetGoalTps(cfg.Name, float64(cfg.GoalTps))

	for {
		sample, err := sampler.Sample(ctx)
		if err != nil {
			sampler.Shutdown()
			r.gauges.SetConcurrency(cfg.Name, 0)
			r.gauges.SetGoalTps(cfg.Name, 0)
			return Summary{Concurrency: ctrl.Concurrency(), GoalTps: ctrl.GoalTps(), Stable: false}, err
		}

		if time.Since(start) > cfg.Duration {
			break
		}

		window.Push(sample)
		if !window.Full() {
			continue
		}

		msg := ctrl.Analyze(window)
		if msg.Outcome != OutcomeStable {
			window.Clear()
		}

		switch msg.Outcome {
		case OutcomeStable:
			// no-op: measured tps is within tolerance of goal.
		case OutcomeAlterConcurrency:
			sampler.SetConcurrency(msg.Concurrency)
			r.gauges.SetConcurrency(cfg.Name, float64(msg.Concurrency))
		case OutcomeTpsLimited:
			sampler.SetTpsLimit(msg.MaxTps)
			sampler.SetConcurrency(msg.Concurrency)
			r.gauges.SetConcurrency(cfg.Name, float64(msg.Concurrency))
			r.gauges.SetGoalTps(cfg.Name, float64(msg.MaxTps))
			r.offerSurplus(ctx, cfg, time.Since(start), msg.MaxTps)
		}
	}

	sampler.Shutdown()
	r.gauges.SetConcurrency(cfg.Name, 0)
	r.gauges.SetGoalTps(cfg.Name, 0)

	return Summary{Concurrency: ctrl.Concurrency(), GoalTps: ctrl.GoalTps(), Stable: !ctrl.TpsLimited()}, nil
}

// offerSurplus hands the unmet portion of the goal to the configured
// Distribution sink as a fresh Config covering the remaining duration.
// There is no delivery guarantee: a full or absent sink just drops it,
// matching balter's own "TODO: handle the error case" admission.
func (r *Runner) offerSurplus(ctx context.Context, cfg Config, elapsed time.Duration, maxTps uint32) {
	if r.sink == nil {
		return
	}
	if maxTps >= cfg.GoalTps {
		return
	}
	surplus := cfg.Clone()
	surplus.Duration = cfg.Duration - elapsed
	surplus.GoalTps = cfg.GoalTps - maxTps
	if surplus.Duration <= 0 {
		return
	}
	if err := r.sink.Offer(ctx, surplus); err != nil {
		r.log.Warnw("failed to offer surplus tps to distribution sink", "scenario", cfg.Name, "error", err)
	}
}
