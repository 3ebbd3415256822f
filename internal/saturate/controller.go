// Package saturate implements KindSaturate: instead of holding a fixed
// goal TPS, it climbs concurrency until the observed error rate
// crosses a configured threshold, then backs off and holds just below
// it. It shares the worker pool, sampler and sample window with
// internal/scenario but swaps in its own decision function, since the
// signal driving concurrency here is error rate rather than tps error.
package saturate

import (
	"math"

	"github.com/throttlelab/throttle/internal/scenario"
	"go.uber.org/zap"
)

// ClimbFactor is the multiplicative step applied to concurrency while
// still under the error-rate threshold. Smaller than the goal-tps
// controller's unbounded adjustment ratio because there is no
// measured-tps signal to size the step from, only a boolean
// above/below the threshold.
const ClimbFactor = 1.5

// BackOffFactor is applied once the threshold is crossed, pulling
// concurrency back below the point that tipped it over.
const BackOffFactor = 0.8

// StableBand: once climb/back-off has oscillated within this fraction
// of a single concurrency step for ConvergedCycles consecutive cycles,
// the controller reports the run converged.
const StableBand = 0.1

// ConvergedCycles is how many consecutive small oscillations are
// required before Decide reports convergence.
const ConvergedCycles = 3

// Controller holds the climb/back-off state and the convergence
// run-length across a saturate run's decision cycles.
type Controller struct {
	errorThreshold float64
	concurrency    int
	lastDirection  int // +1 climbed, -1 backed off, 0 unset
	oscillations   int
	converged      bool
	log            *zap.SugaredLogger
}

// New creates a saturate controller seeded at startingConcurrency,
// targeting errorThreshold (e.g. 0.01 for 1%).
func New(errorThreshold float64, startingConcurrency int, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{errorThreshold: errorThreshold, concurrency: startingConcurrency, log: log}
}

// Concurrency returns the controller's current pool size.
func (c *Controller) Concurrency() int { return c.concurrency }

// Converged reports whether the search has settled into a stable
// oscillation band around the error-rate threshold.
func (c *Controller) Converged() bool { return c.converged }

// Analyze consumes one sample window's mean error rate and returns the
// new concurrency to hold.
func (c *Controller) Analyze(samples *scenario.SampleSet) int {
	errorRate := meanErrorRate(samples)
	next, direction := Decide(c.concurrency, errorRate, c.errorThreshold)

	if c.lastDirection != 0 && direction != 0 && direction != c.lastDirection {
		step := math.Abs(float64(next - c.concurrency))
		if step <= StableBand*float64(c.concurrency) {
			c.oscillations++
		} else {
			c.oscillations = 0
		}
	}
	if c.oscillations >= ConvergedCycles {
		c.converged = true
	}

	c.lastDirection = direction
	c.concurrency = next
	return next
}

// Decide is the pure core: given the current concurrency, the measured
// error rate and the target threshold, it returns the next
// concurrency and the direction taken (+1 climb, -1 back off, 0 held).
func Decide(currentConcurrency int, errorRate, errorThreshold float64) (next int, direction int) {
	if errorRate > errorThreshold {
		pulled := int(math.Floor(float64(currentConcurrency) * BackOffFactor))
		if pulled >= currentConcurrency {
			pulled = currentConcurrency - 1
		}
		if pulled < 1 {
			pulled = 1
		}
		return pulled, -1
	}

	climbed := int(math.Ceil(float64(currentConcurrency) * ClimbFactor))
	if climbed <= currentConcurrency {
		climbed = currentConcurrency + 1
	}
	return climbed, 1
}

func meanErrorRate(samples *scenario.SampleSet) float64 {
	return samples.MeanErrorRate()
}
