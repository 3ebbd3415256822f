// Package controller implements the goal-TPS concurrency controller:
// a pure decision function over (history, goal, measured TPS) that
// proposes a new worker-pool size or declares the system under test
// rate-limited, plus the thin stateful wrapper the scenario runner
// drives once per sample cycle.
//
// The decision function is kept free of any task/sampler/limiter
// dependency on purpose (see spec.md §9, "Controller as pure state
// machine") so it is unit-testable without spawning anything.
package controller

import (
	"math"

	"github.com/throttlelab/throttle/internal/scenario"
	"go.uber.org/zap"
)

// MaxChange is the per-decision cap on how far concurrency can step in
// one cycle.
const MaxChange = 100

// StableErrorBand is the relative error below which the controller
// treats measured TPS as having reached goal. Overshoot is included:
// the rate limiter is responsible for reining in excess throughput,
// not the controller.
const StableErrorBand = 0.05

// PullBackFactor is applied to the concurrency at the plateau foot
// when latching TpsLimited, so the next cycle doesn't immediately step
// the search back up into the same contention that caused the plateau.
const PullBackFactor = 0.75

// Controller holds the search history and the TpsLimited latch across
// a run's decision cycles.
type Controller struct {
	goalTps     uint32
	concurrency int
	startingC   int
	history     []scenario.Measurement
	tpsLimited  bool
	log         *zap.SugaredLogger
}

// New creates a controller seeded at the given goal and starting
// concurrency.
func New(goalTps uint32, startingConcurrency int, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		goalTps:     goalTps,
		concurrency: startingConcurrency,
		startingC:   startingConcurrency,
		log:         log,
	}
}

// Concurrency returns the controller's current view of pool size.
func (c *Controller) Concurrency() int { return c.concurrency }

// TpsLimited reports whether the SUT has been declared rate-limited.
func (c *Controller) TpsLimited() bool { return c.tpsLimited }

// SetGoalTps updates the setpoint. Once TpsLimited has latched, any
// attempt to raise the goal above the discovered ceiling is ignored
// (spec.md §3 invariant).
func (c *Controller) SetGoalTps(n uint32) {
	if c.tpsLimited && n > c.goalTps {
		c.log.Debugw("ignoring goal increase while tps-limited", "requested", n, "ceiling", c.goalTps)
		return
	}
	c.goalTps = n
}

// GoalTps returns the current setpoint.
func (c *Controller) GoalTps() uint32 { return c.goalTps }

// Analyze consumes one full SampleSet and returns the decision for
// this cycle, updating internal history and the TpsLimited latch as a
// side effect. The measurement recorded into history is always taken
// at the concurrency the controller held going into this cycle, never
// the concurrency the decision proposes next.
func (c *Controller) Analyze(samples *scenario.SampleSet) scenario.Message {
	measuredTps := samples.MeanTps()
	msg, newConcurrency, limited, newGoal, newHistory := Decide(c.history, float64(c.goalTps), measuredTps, c.concurrency, c.startingC, c.log)
	c.concurrency = newConcurrency
	c.history = newHistory
	if limited {
		c.tpsLimited = true
		c.goalTps = newGoal
	}
	return msg
}

// Decide is the pure core of the controller: given the search history
// so far, the goal TPS, the just-measured mean TPS, and the current
// concurrency, it returns the Message to emit, the concurrency the
// controller should hold going forward, whether TpsLimited newly
// latched, the new goal TPS ceiling when it did, and the history the
// caller should retain for its next call.
func Decide(history []scenario.Measurement, goalTps, measuredTps float64, currentConcurrency, startingConcurrency int, log *zap.SugaredLogger) (msg scenario.Message, newConcurrency int, limited bool, newGoal uint32, newHistory []scenario.Measurement) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	errorFrac := (goalTps - measuredTps) / goalTps
	if errorFrac < StableErrorBand {
		return scenario.Message{Outcome: scenario.OutcomeStable, Concurrency: currentConcurrency}, currentConcurrency, false, 0, history
	}

	extendedHistory := append(append([]scenario.Measurement{}, history...), scenario.Measurement{Concurrency: currentConcurrency, MeasuredTps: measuredTps})

	if maxTps, plateauConcurrency, ok := detectUnderpowered(extendedHistory, log); ok {
		pulledBack := int(float64(plateauConcurrency) * PullBackFactor)
		return scenario.Message{
				Outcome:     scenario.OutcomeTpsLimited,
				Concurrency: pulledBack,
				MaxTps:      maxTps,
			},
			pulledBack, true, maxTps, extendedHistory
	}

	adjustment := goalTps / measuredTps
	proposed := int(math.Ceil(float64(currentConcurrency) * adjustment))
	if step := proposed - currentConcurrency; step > MaxChange {
		proposed = currentConcurrency + MaxChange
	}

	if proposed <= 0 {
		log.Errorw("concurrency controller proposed non-positive concurrency, falling back to starting concurrency", "measured_tps", measuredTps, "goal_tps", goalTps)
		return scenario.Message{Outcome: scenario.OutcomeAlterConcurrency, Concurrency: startingConcurrency}, startingConcurrency, false, 0, extendedHistory
	}

	return scenario.Message{Outcome: scenario.OutcomeAlterConcurrency, Concurrency: proposed}, proposed, false, 0, extendedHistory
}

// detectUnderpowered runs on the history including the just-appended
// measurement. Per-adjacent-pair slopes are (t1-t0)/(c1-c0); equal
// concurrencies produce NaN, treated as 0 (a real, if unhelpful,
// observation rather than a panic). Two consecutive slopes under 1.0
// tps-per-worker indicate a true plateau: a single low slope could be
// noise. The operating point reported is the third-most-recent
// measurement — the plateau's foot, not its (already-in-progress) tip.
func detectUnderpowered(history []scenario.Measurement, log *zap.SugaredLogger) (maxTps uint32, concurrency int, ok bool) {
	if len(history) < 2 {
		return 0, 0, false
	}

	slopes := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		c0, t0 := history[i-1].Concurrency, history[i-1].MeasuredTps
		c1, t1 := history[i].Concurrency, history[i].MeasuredTps

		slope := (t1 - t0) / float64(c1-c0)
		if math.IsNaN(slope) {
			log.Errorw("NaN slope detected in concurrency search history, ignoring")
			slope = 0
		}
		slopes = append(slopes, slope)
	}

	if len(slopes) <= 2 {
		return 0, 0, false
	}

	last := slopes[len(slopes)-1]
	secondLast := slopes[len(slopes)-2]
	if !(last < 1.0 && secondLast < 1.0) {
		return 0, 0, false
	}

	idx := len(history) - 3
	if idx < 0 {
		idx = 0
	}
	point := history[idx]
	if point.MeasuredTps <= 0 {
		log.Errorw("underpowered detection derived a non-positive max tps, ignoring plateau")
		return 0, 0, false
	}
	return uint32(point.MeasuredTps), point.Concurrency, true
}
