package scenario

import (
	"context"
	"testing"
	"time"
)

// recordingGauges captures the last value set per metric name, for
// assertions that a run reset its gauges to zero on exit.
type recordingGauges struct {
	concurrency map[string]float64
	goalTps     map[string]float64
}

func newRecordingGauges() *recordingGauges {
	return &recordingGauges{concurrency: map[string]float64{}, goalTps: map[string]float64{}}
}

func (g *recordingGauges) SetConcurrency(name string, v float64) { g.concurrency[name] = v }
func (g *recordingGauges) SetGoalTps(name string, v float64)     { g.goalTps[name] = v }

func TestRunTpsRejectsZeroGoal(t *testing.T) {
	r := NewRunner(func(ctx context.Context) error { return nil }, nil, nil, nil)
	_, err := r.RunTps(context.Background(), Config{Name: "x", Kind: KindTps, GoalTps: 0, Duration: time.Second})
	if err == nil {
		t.Fatalf("expected an error for a zero goal tps")
	}
}

func TestRunTpsZeroesGaugesOnExit(t *testing.T) {
	body := func(ctx context.Context) error {
		return Do(ctx, func(ctx context.Context) error { return nil })
	}
	gauges := newRecordingGauges()
	r := NewRunner(body, gauges, nil, nil)

	cfg := Config{Name: "smoke", Kind: KindTps, GoalTps: 50, Duration: 5 * time.Millisecond}
	summary, err := r.RunTps(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.GoalTps == 0 {
		t.Fatalf("summary should report the controller's goal, got 0")
	}

	if gauges.concurrency["smoke"] != 0 {
		t.Fatalf("expected concurrency gauge reset to 0 on exit, got %v", gauges.concurrency["smoke"])
	}
	if gauges.goalTps["smoke"] != 0 {
		t.Fatalf("expected goal_tps gauge reset to 0 on exit, got %v", gauges.goalTps["smoke"])
	}
}

func TestRunTpsHonorsContextCancellation(t *testing.T) {
	body := func(ctx context.Context) error {
		return Do(ctx, func(ctx context.Context) error { return nil })
	}
	r := NewRunner(body, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunTps(ctx, Config{Name: "cancelled", Kind: KindTps, GoalTps: 10, Duration: time.Minute})
	if err == nil {
		t.Fatalf("expected the cancelled context to surface as an error")
	}
}

func TestRunDirectPinsConcurrencyWithNoShaper(t *testing.T) {
	body := func(ctx context.Context) error {
		return Do(ctx, func(ctx context.Context) error { return nil })
	}
	gauges := newRecordingGauges()
	r := NewRunner(body, gauges, nil, nil)

	cfg := Config{Name: "direct", Kind: KindDirect, GoalTps: 20, Concurrency: 3, Duration: time.Millisecond}
	summary, err := r.RunDirect(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Concurrency != 3 {
		t.Fatalf("expected pinned concurrency 3, got %d", summary.Concurrency)
	}
	if !summary.Stable {
		t.Fatalf("a direct run that completes its duration should report stable")
	}
}
