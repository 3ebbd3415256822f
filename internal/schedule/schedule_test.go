package schedule

import (
	"testing"
	"time"
)

func TestStaticDefaultsToOne(t *testing.T) {
	s := NewStatic(time.UTC)
	now := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)
	if got := s.Multiplier(now); got != 1.0 {
		t.Fatalf("expected default multiplier 1.0, got %v", got)
	}
}

func TestStaticSetOverridesOneCell(t *testing.T) {
	s := NewStatic(time.UTC)
	s.Set(time.Saturday, 14, 2.5)

	saturday2pm := time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC) // a Saturday
	if got := s.Multiplier(saturday2pm); got != 2.5 {
		t.Fatalf("expected overridden multiplier 2.5, got %v", got)
	}

	saturday3pm := time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC)
	if got := s.Multiplier(saturday3pm); got != 1.0 {
		t.Fatalf("expected neighboring hour to stay at default 1.0, got %v", got)
	}
}

func TestScriptedMultiplier(t *testing.T) {
	script := `
def multiplier(weekday, hour, minute):
    if hour >= 9 and hour < 17:
        return 2.0
    return 0.5
`
	s, err := LoadScripted("business-hours.star", script, time.UTC)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	businessHours := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	if got := s.Multiplier(businessHours); got != 2.0 {
		t.Fatalf("expected 2.0 during business hours, got %v", got)
	}

	offHours := time.Date(2026, 8, 3, 22, 0, 0, 0, time.UTC)
	if got := s.Multiplier(offHours); got != 0.5 {
		t.Fatalf("expected 0.5 off hours, got %v", got)
	}
}

func TestLoadScriptedRejectsMissingFunction(t *testing.T) {
	_, err := LoadScripted("broken.star", "x = 1\n", time.UTC)
	if err == nil {
		t.Fatalf("expected an error for a script missing multiplier()")
	}
}

func TestScriptedMultiplierFallsBackOnRuntimeError(t *testing.T) {
	script := `
def multiplier(weekday, hour, minute):
    return 1 / 0
`
	s, err := LoadScripted("divzero.star", script, time.UTC)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if got := s.Multiplier(time.Now()); got != 1.0 {
		t.Fatalf("expected fallback multiplier 1.0 on runtime error, got %v", got)
	}
}
