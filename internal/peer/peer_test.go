package peer

import (
	"context"
	"testing"
	"time"

	"github.com/throttlelab/throttle/internal/scenario"
	"github.com/throttlelab/throttle/pkg/protocol"
)

type fakeClient struct {
	requests []*protocol.Request
	resp     *protocol.Response
}

func (f *fakeClient) Do(ctx context.Context, req *protocol.Request) *protocol.Response {
	f.requests = append(f.requests, req)
	return f.resp
}

func (f *fakeClient) Close() error { return nil }

func TestOfferRoundRobinsAcrossPeers(t *testing.T) {
	client := &fakeClient{resp: &protocol.Response{StatusCode: 200}}
	sink := NewSink([]string{"http://a", "http://b"}, client, nil)

	cfg := scenario.Config{Name: "surplus", Kind: scenario.KindTps, GoalTps: 100, Duration: time.Second}
	for i := 0; i < 4; i++ {
		if err := sink.Offer(context.Background(), cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(client.requests) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(client.requests))
	}
	seenA, seenB := 0, 0
	for _, req := range client.requests {
		switch req.URL {
		case "http://a/offer":
			seenA++
		case "http://b/offer":
			seenB++
		default:
			t.Fatalf("unexpected url %q", req.URL)
		}
	}
	if seenA == 0 || seenB == 0 {
		t.Fatalf("expected both peers to receive offers, got a=%d b=%d", seenA, seenB)
	}
}

func TestOfferWithNoPeersIsNoop(t *testing.T) {
	client := &fakeClient{resp: &protocol.Response{StatusCode: 200}}
	sink := NewSink(nil, client, nil)

	if err := sink.Offer(context.Background(), scenario.Config{Name: "x"}); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if len(client.requests) != 0 {
		t.Fatalf("expected no requests sent with no peers configured")
	}
}

func TestOfferSurfacesTransportError(t *testing.T) {
	client := &fakeClient{resp: &protocol.Response{Error: context.DeadlineExceeded}}
	sink := NewSink([]string{"http://a"}, client, nil)

	err := sink.Offer(context.Background(), scenario.Config{Name: "x"})
	if err == nil {
		t.Fatalf("expected the transport error to surface")
	}
}

func TestOfferRejectsNonSuccessStatus(t *testing.T) {
	client := &fakeClient{resp: &protocol.Response{StatusCode: 503}}
	sink := NewSink([]string{"http://a"}, client, nil)

	err := sink.Offer(context.Background(), scenario.Config{Name: "x"})
	if err == nil {
		t.Fatalf("expected a non-2xx status to surface as an error")
	}
}

func TestDecodeOfferRoundTripsConfig(t *testing.T) {
	original := scenario.Config{Name: "rt", Kind: scenario.KindSaturate, ErrorRate: 0.02, Duration: 3 * time.Second}
	client := &fakeClient{resp: &protocol.Response{StatusCode: 200}}
	sink := NewSink([]string{"http://a"}, client, nil)

	if err := sink.Offer(context.Background(), original); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeOffer(client.requests[0].Body)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if decoded.Name != original.Name || decoded.Kind != original.Kind || decoded.ErrorRate != original.ErrorRate {
		t.Fatalf("expected decoded config to match original, got %+v", decoded)
	}
}
