package saturate

import (
	"testing"
	"time"

	"github.com/throttlelab/throttle/internal/scenario"
)

func TestDecideClimbsUnderThreshold(t *testing.T) {
	next, direction := Decide(10, 0.0, 0.01)
	if direction != 1 {
		t.Fatalf("expected a climb direction, got %d", direction)
	}
	if next <= 10 {
		t.Fatalf("expected concurrency to climb past 10, got %d", next)
	}
}

func TestDecideBacksOffOverThreshold(t *testing.T) {
	next, direction := Decide(10, 0.05, 0.01)
	if direction != -1 {
		t.Fatalf("expected a back-off direction, got %d", direction)
	}
	if next >= 10 {
		t.Fatalf("expected concurrency to back off below 10, got %d", next)
	}
	if next < 1 {
		t.Fatalf("concurrency must never drop below 1, got %d", next)
	}
}

func TestDecideNeverProposesBelowOne(t *testing.T) {
	next, _ := Decide(1, 1.0, 0.01)
	if next < 1 {
		t.Fatalf("expected concurrency floor of 1, got %d", next)
	}
}

func TestControllerAnalyzeClimbsThenBacksOff(t *testing.T) {
	c := New(0.01, 10, nil)

	window := scenario.NewSampleSet()
	fillErrorRate := func(rate float64) {
		window.Clear()
		for i := 0; i < 13; i++ {
			var errCount uint64
			if rate > 0 {
				errCount = 1
			}
			var success uint64 = 99
			if errCount > 0 {
				success = 0
			}
			window.Push(scenario.TpsData{Elapsed: time.Second, SuccessCount: success, ErrorCount: errCount})
		}
	}

	fillErrorRate(0)
	c.Analyze(window)
	if c.Concurrency() <= 10 {
		t.Fatalf("expected first cycle to climb, got %d", c.Concurrency())
	}

	fillErrorRate(1)
	before := c.Concurrency()
	c.Analyze(window)
	if c.Concurrency() >= before {
		t.Fatalf("expected second cycle to back off from %d, got %d", before, c.Concurrency())
	}
}
