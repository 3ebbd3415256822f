package script

import (
	"context"
	"testing"
	"time"

	"github.com/throttlelab/throttle/pkg/protocol"
)

type fakeClient struct {
	lastReq *protocol.Request
	resp    *protocol.Response
}

func (f *fakeClient) Do(ctx context.Context, req *protocol.Request) *protocol.Response {
	f.lastReq = req
	return f.resp
}

func (f *fakeClient) Close() error { return nil }

func TestScriptCallsRequestWithExpectedOptions(t *testing.T) {
	client := &fakeClient{resp: &protocol.Response{StatusCode: 200, Duration: 5 * time.Millisecond}}

	src := `
function run() {
  var result = request({url: "http://example.test/", method: "POST", timeoutMs: 250});
  if (result.statusCode !== 200) {
    throw new Error("unexpected status " + result.statusCode);
  }
}
`
	s, err := Compile("test.js", src, client, nil)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	scenarioFn := s.Scenario()
	if err := scenarioFn(context.Background()); err != nil {
		t.Fatalf("unexpected scenario error: %v", err)
	}

	if client.lastReq == nil {
		t.Fatalf("expected request() to have called the protocol client")
	}
	if client.lastReq.URL != "http://example.test/" {
		t.Fatalf("expected url to round-trip, got %q", client.lastReq.URL)
	}
	if client.lastReq.Method != "POST" {
		t.Fatalf("expected method to round-trip, got %q", client.lastReq.Method)
	}
	if client.lastReq.Timeout != 250*time.Millisecond {
		t.Fatalf("expected timeoutMs to map to a 250ms Timeout, got %v", client.lastReq.Timeout)
	}
}

func TestScriptPropagatesScriptThrownError(t *testing.T) {
	client := &fakeClient{resp: &protocol.Response{StatusCode: 500}}

	src := `
function run() {
  var result = request({url: "http://example.test/"});
  if (result.statusCode !== 200) {
    throw new Error("bad status");
  }
}
`
	s, err := Compile("fail.js", src, client, nil)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	if err := s.Scenario()(context.Background()); err == nil {
		t.Fatalf("expected the thrown script error to surface")
	}
}

func TestCompileRejectsMissingRunFunction(t *testing.T) {
	client := &fakeClient{}
	s, err := Compile("norun.js", "var x = 1;", client, nil)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if err := s.Scenario()(context.Background()); err == nil {
		t.Fatalf("expected an error for a script missing run()")
	}
}
