package controller

import (
	"testing"
	"time"

	"github.com/throttlelab/throttle/internal/scenario"
)

func TestDecideStableWithinErrorBand(t *testing.T) {
	msg, newConcurrency, limited, _, history := Decide(nil, 1000, 980, 50, 10, nil)

	if msg.Outcome != scenario.OutcomeStable {
		t.Fatalf("expected Stable, got %v", msg.Outcome)
	}
	if newConcurrency != 50 {
		t.Fatalf("expected concurrency to hold at 50, got %d", newConcurrency)
	}
	if limited {
		t.Fatalf("did not expect tps-limited")
	}
	if len(history) != 0 {
		t.Fatalf("stable decisions must not grow history, got %d entries", len(history))
	}
}

func TestDecideAltersConcurrencyWhenUnderGoal(t *testing.T) {
	// measured half the goal at concurrency 10: adjustment is 2x, so
	// proposed concurrency should double.
	msg, newConcurrency, limited, _, history := Decide(nil, 100, 50, 10, 10, nil)

	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected AlterConcurrency, got %v", msg.Outcome)
	}
	if newConcurrency != 20 {
		t.Fatalf("expected concurrency 20, got %d", newConcurrency)
	}
	if limited {
		t.Fatalf("did not expect tps-limited on first measurement")
	}
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
}

func TestDecideClampsStepToMaxChange(t *testing.T) {
	// adjustment implies concurrency 10 -> 10000, far past MaxChange.
	msg, newConcurrency, _, _, _ := Decide(nil, 10000, 1, 10, 10, nil)

	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected AlterConcurrency, got %v", msg.Outcome)
	}
	if newConcurrency != 10+MaxChange {
		t.Fatalf("expected step clamped to currentConcurrency+MaxChange (%d), got %d", 10+MaxChange, newConcurrency)
	}
}

func TestDecideFallsBackToStartingConcurrencyOnNonPositiveProposal(t *testing.T) {
	// A positive goal with a positive measured tps never reaches this
	// branch: overshoot reads as Stable, and the ceiling of a positive
	// product is at least 1. A negative measured tps makes the
	// adjustment negative, so the proposal rounds up to zero.
	msg, newConcurrency, limited, _, _ := Decide(nil, 1, -500, 10, 7, nil)

	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected AlterConcurrency, got %v", msg.Outcome)
	}
	if newConcurrency != 7 {
		t.Fatalf("expected fallback to starting concurrency 7, got %d", newConcurrency)
	}
	if limited {
		t.Fatalf("a non-positive proposal is not itself a tps-limited verdict")
	}
}

func TestDecideDetectsUnderpoweredPlateau(t *testing.T) {
	// Four points (three adjacent slopes) whose last two slopes are
	// both below 1.0 tps-per-worker: a genuine plateau, not a single
	// noisy sample. detectUnderpowered requires more than two slopes
	// before it will declare anything.
	history := []scenario.Measurement{
		{Concurrency: 10, MeasuredTps: 100},
		{Concurrency: 15, MeasuredTps: 102}, // slope 0.4
		{Concurrency: 20, MeasuredTps: 104}, // slope 0.4
	}

	msg, newConcurrency, limited, newGoal, newHistory := Decide(history, 1000, 105, 25, 10, nil)

	if msg.Outcome != scenario.OutcomeTpsLimited {
		t.Fatalf("expected TpsLimited, got %v", msg.Outcome)
	}
	if !limited {
		t.Fatalf("expected the tps-limited latch to fire")
	}
	if newGoal != 102 {
		t.Fatalf("expected ceiling tps 102 (from the plateau foot), got %d", newGoal)
	}
	wantConcurrency := int(15 * PullBackFactor)
	if newConcurrency != wantConcurrency {
		t.Fatalf("expected pulled-back concurrency %d, got %d", wantConcurrency, newConcurrency)
	}
	if len(newHistory) != 4 {
		t.Fatalf("expected history extended to 4 entries, got %d", len(newHistory))
	}
}

func TestDecideIgnoresSingleLowSlope(t *testing.T) {
	// Only one measurement precedes this one: detectUnderpowered
	// requires more than two slopes (four points) before it will
	// declare a plateau.
	history := []scenario.Measurement{
		{Concurrency: 10, MeasuredTps: 100},
	}

	msg, _, limited, _, _ := Decide(history, 1000, 101, 20, 10, nil)

	if limited {
		t.Fatalf("a single adjacent slope must never trigger tps-limited")
	}
	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected AlterConcurrency while still searching, got %v", msg.Outcome)
	}
}

func TestDecideTreatsEqualConcurrencySlopeAsZeroNotNaN(t *testing.T) {
	// Two adjacent points at the same concurrency produce a 0/0 slope;
	// Decide must not propagate NaN into the plateau comparison.
	history := []scenario.Measurement{
		{Concurrency: 10, MeasuredTps: 100},
		{Concurrency: 10, MeasuredTps: 100},
		{Concurrency: 20, MeasuredTps: 105},
	}

	msg, _, _, _, newHistory := Decide(history, 1000, 106, 30, 10, nil)

	if msg.Outcome != scenario.OutcomeTpsLimited {
		t.Fatalf("NaN-as-zero slope should itself read as a low slope and count toward the plateau, got %v", msg.Outcome)
	}
	if len(newHistory) != 4 {
		t.Fatalf("expected history extended to 4 entries, got %d", len(newHistory))
	}
}

func TestControllerSetGoalTpsIgnoresIncreaseOnceLimited(t *testing.T) {
	c := New(1000, 10, nil)
	c.tpsLimited = true
	c.goalTps = 200

	c.SetGoalTps(500)
	if c.GoalTps() != 200 {
		t.Fatalf("expected goal to stay at the discovered ceiling 200, got %d", c.GoalTps())
	}

	c.SetGoalTps(150)
	if c.GoalTps() != 150 {
		t.Fatalf("a decrease while tps-limited should still be honored, got %d", c.GoalTps())
	}
}

func TestControllerAnalyzeLatchesAcrossCycles(t *testing.T) {
	c := New(1000, 10, nil)

	samples := scenario.NewSampleSet()
	fill := func(tps float64) {
		samples.Clear()
		for i := 0; i < 13; i++ { // skipFirstN + sampleSetCapacity
			samples.Push(scenario.TpsData{Elapsed: time.Second, SuccessCount: uint64(tps)})
		}
	}

	fill(100)
	msg := c.Analyze(samples)
	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected first cycle to alter concurrency, got %v", msg.Outcome)
	}

	fill(105)
	msg = c.Analyze(samples)
	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected second cycle to still be searching, got %v", msg.Outcome)
	}

	// Three measurements give only two slopes: not enough to declare a
	// plateau yet.
	fill(106)
	msg = c.Analyze(samples)
	if msg.Outcome != scenario.OutcomeAlterConcurrency {
		t.Fatalf("expected third cycle to still be searching, got %v", msg.Outcome)
	}

	fill(107)
	msg = c.Analyze(samples)
	if msg.Outcome != scenario.OutcomeTpsLimited {
		t.Fatalf("expected fourth cycle to detect the plateau, got %v", msg.Outcome)
	}
	if !c.TpsLimited() {
		t.Fatalf("expected the latch to have fired")
	}
}
