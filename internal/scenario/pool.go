package scenario

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/throttlelab/throttle/internal/limiter"
	"go.uber.org/zap"
)

// Scenario is the user-supplied transaction body. Unlike the teacher's
// channel-fed job queue, each worker calls Scenario in a tight loop
// itself: this is the Go equivalent of balter's `Fn() -> Future<()>`,
// with the goroutine boundary standing in for the async boundary.
type Scenario func(ctx context.Context) error

// Pool is a dynamic set of cooperative worker goroutines sharing one
// rate limiter and one set of counters. Pool size is controlled by a
// single atomic; workers compare their own id against it on every loop
// iteration rather than being cancelled mid-iteration, so a shrink
// never discards partial work.
type Pool struct {
	scenario Scenario
	limiter  *limiter.Limiter
	counters *Counters
	latency  LatencyRecorder
	log      *zap.SugaredLogger

	ctx context.Context

	mu       sync.Mutex
	poolSize atomic.Int64
	handles  []chan struct{} // closed when the worker for that slot exits
	wg       sync.WaitGroup
}

// NewPool creates a pool bound to ctx for the lifetime of the run. The
// pool starts with zero workers; call SetConcurrency to grow it.
func NewPool(ctx context.Context, sc Scenario, lim *limiter.Limiter, counters *Counters, log *zap.SugaredLogger) *Pool {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pool{
		scenario: sc,
		limiter:  lim,
		counters: counters,
		log:      log,
		ctx:      ctx,
	}
}

// SetConcurrency grows or shrinks the pool to exactly n workers. n must
// be positive outside of Shutdown; n==0 here is a contract violation
// and is fatal, matching spec.md's "setting 0 is reserved for
// shutdown."
func (p *Pool) SetConcurrency(n int) {
	if n <= 0 {
		p.log.Fatalw("SetConcurrency called with n<=0 outside shutdown", "n", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizeLocked(n)
}

// SetLatencyRecorder attaches a recorder that workers spawned after
// this call will report transaction durations to. Workers already
// running keep whatever recorder they started with, so callers that
// need it live from the start should set it before the first
// SetConcurrency call.
func (p *Pool) SetLatencyRecorder(r LatencyRecorder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = r
}

// Size returns the currently configured pool size.
func (p *Pool) Size() int {
	return int(p.poolSize.Load())
}

// Shutdown stores pool_size=0 and awaits every worker's exit. There is
// no forced cancellation: a scenario invocation that never yields
// stalls shutdown indefinitely (spec.md §5, open item).
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.resizeLocked(0)
	p.mu.Unlock()
	p.wg.Wait()
}

// resizeLocked must be called with p.mu held. Growth spawns workers
// with monotonically increasing ids; shrink updates the shared size and
// drops the handles beyond it without waiting — workers beyond the new
// size notice on their next loop check and exit on their own, and a
// later growth spawns fresh workers for those slots.
func (p *Pool) resizeLocked(n int) {
	p.poolSize.Store(int64(n))
	if len(p.handles) > n {
		p.handles = p.handles[:n]
	}
	for len(p.handles) < n {
		id := len(p.handles)
		done := make(chan struct{})
		p.handles = append(p.handles, done)
		p.wg.Add(1)
		go p.worker(id, done, p.latency)
	}
}

func (p *Pool) worker(id int, done chan struct{}, latency LatencyRecorder) {
	defer close(done)
	defer p.wg.Done()

	td := &TransactionData{Limiter: p.limiter, Counters: p.counters, Latency: latency}
	ctx := WithTransaction(p.ctx, td)

	for int64(id) < p.poolSize.Load() {
		// The scenario body reports success/error through Do/the
		// transaction wrapper; a returned error here is already
		// reflected in the counters and is not a reason to stop.
		_ = p.scenario(ctx)
	}
}
