package limiter

import (
	"context"
	"testing"
	"time"
)

func TestNewClampsNonPositiveRateToOne(t *testing.T) {
	l := New(0, nil)
	if got := l.Rate(); got != 1 {
		t.Errorf("Rate() = %v, want 1", got)
	}

	l = New(-5, nil)
	if got := l.Rate(); got != 1 {
		t.Errorf("Rate() = %v, want 1", got)
	}
}

func TestSetRateUpdatesRate(t *testing.T) {
	l := New(10, nil)
	l.SetRate(50)
	if got := l.Rate(); got != 50 {
		t.Errorf("Rate() = %v, want 50", got)
	}
}

func TestSetRateToCurrentValueIsNoOp(t *testing.T) {
	l := New(10, nil)
	before := l.current.Load()

	l.SetRate(10)

	after := l.current.Load()
	if before != after {
		t.Errorf("SetRate with the current value replaced the underlying limiter, want no-op")
	}
	if got := l.Rate(); got != 10 {
		t.Errorf("Rate() = %v, want 10", got)
	}
}

func TestSetRateToDifferentValueReplacesLimiter(t *testing.T) {
	l := New(10, nil)
	before := l.current.Load()

	l.SetRate(20)

	after := l.current.Load()
	if before == after {
		t.Errorf("SetRate with a new value did not replace the underlying limiter")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l := New(0.001, nil) // effectively one permit every ~1000s

	// Drain the initial burst permit so the next Acquire has to wait.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error draining initial permit: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if err := l.Acquire(ctx2); err == nil {
		t.Errorf("expected Acquire to return an error once the context deadline passes")
	}
}
