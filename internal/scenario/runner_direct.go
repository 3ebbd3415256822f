package scenario

import (
	"context"
	"time"

	"github.com/throttlelab/throttle/internal/limiter"
)

// ScheduleMultiplier returns the current time-of-day / scripted factor
// applied to a direct-mode run's target TPS; internal/schedule
// implements this. A nil ScheduleMultiplier is treated as a constant 1.
type ScheduleMultiplier interface {
	Multiplier(now time.Time) float64
}

// Shaper modulates a pinned base TPS into an instantaneous target,
// combining a schedule multiplier with any configured traffic-shaping
// pattern; internal/pattern.Engine implements this.
type Shaper interface {
	CalculateTPS(scheduleMultiplier float64) float64
}

// directRetuneInterval is how often RunDirect recomputes the target
// TPS from the Shaper and schedule, independent of the sampler's own
// adaptive cadence.
const directRetuneInterval = time.Second

// RunDirect pins concurrency at cfg.Concurrency and TPS at cfg.GoalTps
// for cfg.Duration with no concurrency feedback: the rate limiter is
// the only thing enforcing the target, optionally reshaped every tick
// by a Shaper/ScheduleMultiplier pair (spec.md's Direct mode has no
// controller in the loop by definition).
func (r *Runner) RunDirect(ctx context.Context, cfg Config, shaper Shaper, schedule ScheduleMultiplier) (Summary, error) {
	counters := &Counters{}
	lim := limiter.New(float64(cfg.GoalTps), r.log)
	pool := NewPool(ctx, r.body, lim, counters, r.log)
	pool.SetConcurrency(cfg.Concurrency)

	r.gauges.SetConcurrency(cfg.Name, float64(cfg.Concurrency))
	r.gauges.SetGoalTps(cfg.Name, float64(cfg.GoalTps))

	retune := time.NewTicker(directRetuneInterval)
	defer retune.Stop()

	deadline := time.NewTimer(cfg.Duration)
	defer deadline.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			pool.Shutdown()
			r.gauges.SetConcurrency(cfg.Name, 0)
			r.gauges.SetGoalTps(cfg.Name, 0)
			return Summary{Concurrency: cfg.Concurrency, GoalTps: cfg.GoalTps, Stable: false}, ctx.Err()
		case <-deadline.C:
			break loop
		case <-retune.C:
			if shaper != nil {
				mult := 1.0
				if schedule != nil {
					mult = schedule.Multiplier(time.Now())
				}
				target := shaper.CalculateTPS(mult)
				lim.SetRate(target)
				r.gauges.SetGoalTps(cfg.Name, target)
			}
		}
	}

	pool.Shutdown()
	r.gauges.SetConcurrency(cfg.Name, 0)
	r.gauges.SetGoalTps(cfg.Name, 0)

	return Summary{Concurrency: cfg.Concurrency, GoalTps: cfg.GoalTps, Stable: true}, nil
}
