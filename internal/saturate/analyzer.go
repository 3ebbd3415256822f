package saturate

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// latencyMin/Max/Sigfigs bound the histogram: microsecond resolution
// from 1us to 5 minutes, 3 significant figures (HdrHistogram-go's own
// recommended default).
const (
	latencyMinMicros int64 = 1
	latencyMaxMicros int64 = int64(5 * time.Minute / time.Microsecond)
	latencySigfigs          = 3
)

// LatencyRecorder accumulates per-transaction body-call durations into
// an HdrHistogram and exposes percentile snapshots, replacing a
// manual sort-and-index percentile calculation with a bounded-memory,
// O(1)-per-sample structure.
type LatencyRecorder struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewLatencyRecorder creates an empty recorder.
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{hist: hdrhistogram.New(latencyMinMicros, latencyMaxMicros, latencySigfigs)}
}

// Record adds one observed duration, clamping to the histogram's
// configured range rather than erroring on an out-of-range outlier.
func (r *LatencyRecorder) Record(d time.Duration) {
	micros := d.Microseconds()
	if micros < latencyMinMicros {
		micros = latencyMinMicros
	}
	if micros > latencyMaxMicros {
		micros = latencyMaxMicros
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.hist.RecordValue(micros)
}

// Snapshot is a point-in-time read of the recorded percentiles.
type Snapshot struct {
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Count int64
}

// Snapshot returns the current percentile view and resets nothing:
// callers that want windowed percentiles should periodically call
// Reset themselves.
func (r *LatencyRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		P50:   time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(r.hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond,
		Max:   time.Duration(r.hist.Max()) * time.Microsecond,
		Count: r.hist.TotalCount(),
	}
}

// Reset clears all recorded values.
func (r *LatencyRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hist.Reset()
}
