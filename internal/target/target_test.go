package target

import (
	"context"
	"testing"

	"github.com/throttlelab/throttle/internal/config"
	"github.com/throttlelab/throttle/pkg/protocol"
)

func TestNewSetRejectsEmptyTargets(t *testing.T) {
	if _, err := NewSet(nil, protocol.ClientConfig{}, 1); err == nil {
		t.Fatalf("expected an error for an empty target list")
	}
}

func TestNewSetRejectsUnknownProtocol(t *testing.T) {
	targets := []config.Target{{Name: "bad", URL: "http://example.test/", Protocol: "carrier-pigeon", Weight: 100}}
	if _, err := NewSet(targets, protocol.ClientConfig{}, 1); err == nil {
		t.Fatalf("expected an error for an unknown protocol")
	}
}

func TestNewSetSharesOneClientPerProtocol(t *testing.T) {
	targets := []config.Target{
		{Name: "a", URL: "http://a.test/", Protocol: config.ProtocolHTTP, Weight: 50},
		{Name: "b", URL: "http://b.test/", Protocol: config.ProtocolHTTP, Weight: 50},
	}
	s, err := NewSet(targets, protocol.ClientConfig{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.clients) != 1 {
		t.Fatalf("expected targets sharing a protocol to share one client, got %d clients", len(s.clients))
	}
}

func TestSelectOnlyReturnsKnownTargets(t *testing.T) {
	targets := []config.Target{
		{Name: "a", URL: "http://a.test/", Protocol: config.ProtocolHTTP, Weight: 1},
		{Name: "b", URL: "http://b.test/", Protocol: config.ProtocolHTTP, Weight: 9},
	}
	s, err := NewSet(targets, protocol.ClientConfig{}, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]int{}
	const n = 2000
	for i := 0; i < n; i++ {
		seen[s.Select().Name]++
	}
	if seen["a"] == 0 || seen["b"] == 0 {
		t.Fatalf("expected both targets to be selected at least once over %d draws, got %v", n, seen)
	}
	// b carries 9x the weight of a; allow generous slack since this is a
	// random draw, but the skew should be unmistakable.
	if seen["b"] < seen["a"]*3 {
		t.Fatalf("expected heavier-weighted target to dominate selection, got %v", seen)
	}
}

func TestSelectFallsBackToFirstTargetWhenWeightsAreZero(t *testing.T) {
	targets := []config.Target{
		{Name: "only", URL: "http://only.test/", Protocol: config.ProtocolHTTP, Weight: 0},
	}
	s, err := NewSet(targets, protocol.ClientConfig{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Select().Name; got != "only" {
		t.Fatalf("expected fallback to the only target, got %q", got)
	}
}

type stubClient struct {
	resp *protocol.Response
}

func (c *stubClient) Do(ctx context.Context, req *protocol.Request) *protocol.Response { return c.resp }
func (c *stubClient) Close() error                                                     { return nil }

func TestScenarioReturnsErrorOnHTTPErrorStatus(t *testing.T) {
	targets := []config.Target{{Name: "flaky", URL: "http://flaky.test/", Protocol: config.ProtocolHTTP, Weight: 100}}
	s, err := NewSet(targets, protocol.ClientConfig{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.clients[config.ProtocolHTTP] = &stubClient{resp: &protocol.Response{StatusCode: 503}}

	if err := s.Scenario()(context.Background()); err == nil {
		t.Fatalf("expected a 5xx response to surface as an error")
	}
}

func TestScenarioSucceedsOnOkStatus(t *testing.T) {
	targets := []config.Target{{Name: "ok", URL: "http://ok.test/", Protocol: config.ProtocolHTTP, Weight: 100}}
	s, err := NewSet(targets, protocol.ClientConfig{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.clients[config.ProtocolHTTP] = &stubClient{resp: &protocol.Response{StatusCode: 200}}

	if err := s.Scenario()(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCloseClosesAllClients(t *testing.T) {
	targets := []config.Target{
		{Name: "a", URL: "http://a.test/", Protocol: config.ProtocolHTTP, Weight: 50},
		{Name: "b", URL: "http://b.test/", Protocol: config.ProtocolHTTP2, Weight: 50},
	}
	s, err := NewSet(targets, protocol.ClientConfig{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closed := map[config.Protocol]bool{}
	s.clients[config.ProtocolHTTP] = &closeTrackingClient{proto: config.ProtocolHTTP, closed: closed}
	s.clients[config.ProtocolHTTP2] = &closeTrackingClient{proto: config.ProtocolHTTP2, closed: closed}

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed[config.ProtocolHTTP] || !closed[config.ProtocolHTTP2] {
		t.Fatalf("expected every client to be closed, got %v", closed)
	}
}

type closeTrackingClient struct {
	proto  config.Protocol
	closed map[config.Protocol]bool
}

func (c *closeTrackingClient) Do(ctx context.Context, req *protocol.Request) *protocol.Response {
	return &protocol.Response{StatusCode: 200}
}

func (c *closeTrackingClient) Close() error {
	c.closed[c.proto] = true
	return nil
}
