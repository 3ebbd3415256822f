package daemon

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func TestFlatShaperScalesByScheduleMultiplier(t *testing.T) {
	f := flatShaper(100)
	if got := f.CalculateTPS(1.0); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := f.CalculateTPS(0.5); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
}

type constShaper float64

func (c constShaper) CalculateTPS(float64) float64 { return float64(c) }

func TestSpikingShaperPassesThroughWithNoSpikeArmed(t *testing.T) {
	d := &Daemon{log: nopLogger()}
	s := &spikingShaper{inner: constShaper(10), daemon: d}
	if got := s.CalculateTPS(1.0); got != 10 {
		t.Fatalf("expected 10 with no spike armed, got %v", got)
	}
}

func TestSpikingShaperMultipliesWhileArmed(t *testing.T) {
	d := &Daemon{log: nopLogger()}
	d.Spike(4.0, time.Minute)
	s := &spikingShaper{inner: constShaper(10), daemon: d}
	if got := s.CalculateTPS(1.0); got != 40 {
		t.Fatalf("expected 40 while a 4x spike is armed, got %v", got)
	}
}

func TestSpikingShaperExpiresAfterDuration(t *testing.T) {
	d := &Daemon{log: nopLogger()}
	d.spike.Store(spikeState{factor: 4.0, until: time.Now().Add(-time.Second)}) // already expired
	s := &spikingShaper{inner: constShaper(10), daemon: d}
	if got := s.CalculateTPS(1.0); got != 10 {
		t.Fatalf("expected the spike to have no effect once expired, got %v", got)
	}
}

func TestSpikeAppliesDefaultsForNonPositiveInputs(t *testing.T) {
	d := &Daemon{log: nopLogger()}
	d.Spike(0, 0)
	st, ok := d.spike.Load().(spikeState)
	if !ok {
		t.Fatalf("expected a spikeState to be stored")
	}
	if st.factor != defaultSpikeFactor {
		t.Fatalf("expected default factor %v, got %v", defaultSpikeFactor, st.factor)
	}
	if time.Until(st.until) > defaultSpikeDuration || time.Until(st.until) <= 0 {
		t.Fatalf("expected until to be roughly defaultSpikeDuration out, got %v", st.until)
	}
}
