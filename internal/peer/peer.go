// Package peer implements scenario.Distribution over HTTP: surplus
// Config offered by a saturated run is POSTed as JSON to a configured
// set of peer addresses, round-robin, instead of staying in-process.
package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/throttlelab/throttle/internal/scenario"
	"github.com/throttlelab/throttle/pkg/protocol"
	"go.uber.org/zap"
)

// offerTimeout bounds how long one peer POST may take before it's
// treated as a failed offer.
const offerTimeout = 5 * time.Second

// Sink posts offered configs to one of a fixed set of peer base URLs,
// chosen round-robin. It implements scenario.Distribution.
type Sink struct {
	addresses []string
	client    protocol.Client
	next      atomic.Uint64
	log       *zap.SugaredLogger
}

// NewSink creates a Sink over the given peer base URLs (e.g.
// "http://10.0.1.12:9090"), reusing client for every request.
func NewSink(addresses []string, client protocol.Client, log *zap.SugaredLogger) *Sink {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sink{addresses: addresses, client: client, log: log}
}

// wireConfig is the JSON shape posted to a peer's /offer endpoint.
type wireConfig struct {
	Name        string        `json:"name"`
	Duration    time.Duration `json:"duration"`
	Kind        string        `json:"kind"`
	GoalTps     uint32        `json:"goalTps"`
	ErrorRate   float64       `json:"errorRate"`
	Concurrency int           `json:"concurrency"`
}

// Offer implements scenario.Distribution: it picks the next peer in
// round-robin order and POSTs cfg as JSON. A nil addresses list is a
// no-op, matching the in-process ChannelDistribution's own
// no-delivery-guarantee contract.
func (s *Sink) Offer(ctx context.Context, cfg scenario.Config) error {
	if len(s.addresses) == 0 {
		return nil
	}

	idx := s.next.Add(1) % uint64(len(s.addresses))
	addr := s.addresses[idx]

	body, err := json.Marshal(wireConfig{
		Name:        cfg.Name,
		Duration:    cfg.Duration,
		Kind:        cfg.Kind.String(),
		GoalTps:     cfg.GoalTps,
		ErrorRate:   cfg.ErrorRate,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("peer: marshaling offer: %w", err)
	}

	req := &protocol.Request{
		URL:     addr + "/offer",
		Method:  "POST",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: offerTimeout,
	}

	resp := s.client.Do(ctx, req)
	if resp.Error != nil {
		return fmt.Errorf("peer: offering to %s: %w", addr, resp.Error)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer: %s rejected offer with status %d", addr, resp.StatusCode)
	}

	s.log.Debugw("offered surplus tps to peer", "peer", addr, "scenario", cfg.Name, "goal_tps", cfg.GoalTps)
	return nil
}

// DecodeOffer parses the JSON body a peer's /offer handler receives
// back into a scenario.Config.
func DecodeOffer(body []byte) (scenario.Config, error) {
	var w wireConfig
	if err := json.Unmarshal(body, &w); err != nil {
		return scenario.Config{}, fmt.Errorf("peer: decoding offer: %w", err)
	}

	var kind scenario.Kind
	switch w.Kind {
	case "once":
		kind = scenario.KindOnce
	case "tps":
		kind = scenario.KindTps
	case "saturate":
		kind = scenario.KindSaturate
	case "direct":
		kind = scenario.KindDirect
	default:
		return scenario.Config{}, fmt.Errorf("peer: unknown scenario kind %q", w.Kind)
	}

	return scenario.Config{
		Name:        w.Name,
		Duration:    w.Duration,
		Kind:        kind,
		GoalTps:     w.GoalTps,
		ErrorRate:   w.ErrorRate,
		Concurrency: w.Concurrency,
	}, nil
}
