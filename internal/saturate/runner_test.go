package saturate

import (
	"context"
	"testing"
	"time"

	"github.com/throttlelab/throttle/internal/scenario"
)

func TestRunRejectsNonPositiveErrorRate(t *testing.T) {
	r := NewRunner(func(ctx context.Context) error { return nil }, nil, nil)
	_, _, err := r.Run(context.Background(), scenario.Config{Name: "x", Kind: scenario.KindSaturate, ErrorRate: 0, Duration: time.Second})
	if err == nil {
		t.Fatalf("expected an error for a zero error-rate threshold")
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	body := func(ctx context.Context) error {
		return scenario.Do(ctx, func(ctx context.Context) error { return nil })
	}
	r := NewRunner(body, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Run(ctx, scenario.Config{Name: "cancelled", Kind: scenario.KindSaturate, ErrorRate: 0.01, Duration: time.Minute})
	if err == nil {
		t.Fatalf("expected the cancelled context to surface as an error")
	}
}
