package scenario

// Gauges is the metrics sink a Runner reports concurrency and goal-TPS
// transitions to. internal/telemetry implements this with two
// Prometheus gauge vectors, throttle_scenario_concurrency and
// throttle_scenario_goal_tps, each labelled by scenario name. A runner
// given nil gauges uses NopGauges.
type Gauges interface {
	SetConcurrency(scenario string, v float64)
	SetGoalTps(scenario string, v float64)
}

// NopGauges discards every observation.
type NopGauges struct{}

func (NopGauges) SetConcurrency(string, float64) {}
func (NopGauges) SetGoalTps(string, float64)     {}
