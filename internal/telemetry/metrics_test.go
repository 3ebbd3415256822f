package telemetry

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsSetAndSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetConcurrency("checkout", 12)
	m.SetGoalTps("checkout", 500)

	srv := NewServer(":0", reg, nil)

	req := httptest.NewRequest("GET", "/debug/metrics-snapshot", nil)
	rec := httptest.NewRecorder()
	srv.handleSnapshot(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var samples []snapshotSample
	if err := json.Unmarshal(rec.Body.Bytes(), &samples); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}

	var sawConcurrency, sawGoalTps bool
	for _, s := range samples {
		if s.Name == "throttle_scenario_concurrency" && s.Labels["scenario"] == "checkout" && s.Value == 12 {
			sawConcurrency = true
		}
		if s.Name == "throttle_scenario_goal_tps" && s.Labels["scenario"] == "checkout" && s.Value == 500 {
			sawGoalTps = true
		}
	}
	if !sawConcurrency {
		t.Fatalf("expected a concurrency sample for checkout, got %+v", samples)
	}
	if !sawGoalTps {
		t.Fatalf("expected a goal_tps sample for checkout, got %+v", samples)
	}
}
