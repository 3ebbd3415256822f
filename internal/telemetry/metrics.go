// Package telemetry exposes run state over Prometheus gauges and a
// gRPC health check, and serves both alongside a JSON snapshot
// endpoint for tooling that doesn't want to scrape text exposition.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements scenario.Gauges (and saturate's identical
// interface) over two gauge vectors, throttle_scenario_concurrency and
// throttle_scenario_goal_tps, with one series per scenario name carried
// in the "scenario" label.
type Metrics struct {
	concurrency *prometheus.GaugeVec
	goalTps     *prometheus.GaugeVec
}

// NewMetrics registers both gauge vectors against reg. Passing a
// dedicated registry (rather than the global default) keeps repeated
// runs in tests from panicking on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		concurrency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "throttle",
			Name:      "scenario_concurrency",
			Help:      "Current worker pool size for a running scenario.",
		}, []string{"scenario"}),
		goalTps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "throttle",
			Name:      "scenario_goal_tps",
			Help:      "Current target transactions-per-second for a running scenario.",
		}, []string{"scenario"}),
	}
}

// SetConcurrency implements scenario.Gauges.
func (m *Metrics) SetConcurrency(name string, v float64) {
	m.concurrency.WithLabelValues(name).Set(v)
}

// SetGoalTps implements scenario.Gauges.
func (m *Metrics) SetGoalTps(name string, v float64) {
	m.goalTps.WithLabelValues(name).Set(v)
}
