package scenario

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/throttlelab/throttle/internal/limiter"
)

// LatencyRecorder receives one body-call duration per transaction.
// internal/saturate.LatencyRecorder implements this over an
// HdrHistogram; most runs leave it nil and pay no recording cost.
type LatencyRecorder interface {
	Record(d time.Duration)
}

// Counters holds the two monotonic accumulators a sampler reads and
// zeroes once per tick. Contention is low: each increment is a single
// atomic add from a worker goroutine.
type Counters struct {
	success atomic.Uint64
	failure atomic.Uint64
}

// Swap atomically reads and resets both counters, returning the prior
// values. This is the only way counters are drained; workers only ever
// increment.
func (c *Counters) Swap() (success, failure uint64) {
	return c.success.Swap(0), c.failure.Swap(0)
}

func (c *Counters) incSuccess() { c.success.Add(1) }
func (c *Counters) incFailure() { c.failure.Add(1) }

// transactionContextKey carries the per-worker TransactionData so a
// scenario body can call Do without threading the limiter and counters
// through every call site, mirroring the teacher's use of context to
// carry request-scoped dependencies through handler chains.
type transactionContextKey struct{}

// TransactionData is the shared state a worker's scenario iterations
// acquire a permit from and report results to.
type TransactionData struct {
	Limiter  *limiter.Limiter
	Counters *Counters
	Latency  LatencyRecorder
}

// WithTransaction attaches TransactionData to ctx for the duration of
// one worker's scenario invocations.
func WithTransaction(ctx context.Context, td *TransactionData) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, td)
}

// transactionFrom extracts the TransactionData a worker attached to ctx.
func transactionFrom(ctx context.Context) (*TransactionData, bool) {
	td, ok := ctx.Value(transactionContextKey{}).(*TransactionData)
	return td, ok
}

// Do is the transaction wrapper boundary (spec.md §4.2): it acquires a
// rate-limiter permit, runs body, and increments success or error based
// on whether body returned a nil error. Scenario bodies call this once
// per logical request inside their loop.
func Do(ctx context.Context, body func(ctx context.Context) error) error {
	td, ok := transactionFrom(ctx)
	if !ok {
		// No transaction context: run unthrottled and uncounted. This
		// only happens for KindOnce smoke runs.
		return body(ctx)
	}
	if err := td.Limiter.Acquire(ctx); err != nil {
		return err
	}
	callStart := time.Now()
	err := body(ctx)
	if td.Latency != nil {
		td.Latency.Record(time.Since(callStart))
	}
	if err != nil {
		td.Counters.incFailure()
	} else {
		td.Counters.incSuccess()
	}
	return err
}
