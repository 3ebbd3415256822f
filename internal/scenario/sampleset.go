package scenario

// sampleSetCapacity and skipFirstN are fixed per spec.md §4.5: a
// 10-sample ring, discarding the first 3 pushes after a clear because
// they reflect the transient following a configuration change.
const (
	sampleSetCapacity = 10
	skipFirstN        = 3
)

// SampleSet is a fixed-capacity ring of the most recent TpsData,
// skipping the first few samples after each clear so the controller
// never decides off data collected mid-transition.
type SampleSet struct {
	ring      []TpsData
	skipLeft  int
	pushCount int
}

// NewSampleSet returns an empty, armed SampleSet.
func NewSampleSet() *SampleSet {
	s := &SampleSet{}
	s.Clear()
	return s
}

// Push appends a sample, discarding the oldest once the ring is at
// capacity. Samples pushed while the post-clear skip counter is still
// armed are dropped entirely and don't count toward Full.
func (s *SampleSet) Push(d TpsData) {
	if s.skipLeft > 0 {
		s.skipLeft--
		return
	}
	s.ring = append(s.ring, d)
	if len(s.ring) > sampleSetCapacity {
		s.ring = s.ring[len(s.ring)-sampleSetCapacity:]
	}
}

// Full reports whether capacity non-skipped samples have accumulated.
func (s *SampleSet) Full() bool {
	return len(s.ring) >= sampleSetCapacity
}

// MeanTps is the arithmetic mean of Tps() over the non-skipped ring.
// Undefined (returns 0) on an empty set; callers are expected to only
// call this once Full() is true.
func (s *SampleSet) MeanTps() float64 {
	if len(s.ring) == 0 {
		return 0
	}
	var sum float64
	for _, d := range s.ring {
		sum += d.Tps()
	}
	return sum / float64(len(s.ring))
}

// MeanErrorRate is the arithmetic mean of ErrorRate() over the
// non-skipped ring, used by the saturate controller instead of MeanTps.
func (s *SampleSet) MeanErrorRate() float64 {
	if len(s.ring) == 0 {
		return 0
	}
	var sum float64
	for _, d := range s.ring {
		sum += d.ErrorRate()
	}
	return sum / float64(len(s.ring))
}

// Clear empties the ring and rearms the skip counter, so the next
// skipFirstN pushes are discarded.
func (s *SampleSet) Clear() {
	s.ring = s.ring[:0]
	s.skipLeft = skipFirstN
}
