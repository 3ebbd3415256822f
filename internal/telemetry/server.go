package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// Server serves Prometheus exposition on /metrics and a JSON snapshot
// of the same gauge families on /debug/metrics-snapshot, for anything
// that would rather poll one HTTP call than run a scrape loop.
type Server struct {
	http *http.Server
	reg  *prometheus.Registry
	log  *zap.SugaredLogger
}

// NewServer builds a Server bound to addr. reg must be the same
// registry Metrics was constructed against.
func NewServer(addr string, reg *prometheus.Registry, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{reg: reg, log: log}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/metrics-snapshot", s.handleSnapshot)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving until ctx is cancelled or the server
// errors, mirroring the pattern of a single blocking call per
// long-lived subsystem goroutine.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// snapshotSample is one exported gauge observation.
type snapshotSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	families, err := s.reg.Gather()
	if err != nil {
		http.Error(w, fmt.Sprintf("gathering metrics: %v", err), http.StatusInternalServerError)
		return
	}

	samples := make([]snapshotSample, 0, len(families))
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			samples = append(samples, snapshotSample{
				Name:   fam.GetName(),
				Labels: labelsOf(m),
				Value:  valueOf(fam.GetType(), m),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(samples)
}

func labelsOf(m *dto.Metric) map[string]string {
	if len(m.GetLabel()) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func valueOf(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	default:
		return 0
	}
}
