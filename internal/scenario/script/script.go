// Package script lets a scenario body be authored as JavaScript
// instead of Go, for operators who want to change request shape
// without recompiling the binary. Each compiled Script exposes a
// request(opts) binding backed by pkg/protocol, and is driven through
// scenario.Do the same way a native Go body is.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/throttlelab/throttle/internal/scenario"
	"github.com/throttlelab/throttle/pkg/protocol"
	"go.uber.org/zap"
)

// Script wraps one compiled JS program exposing a top-level run()
// function the scenario body calls once per transaction.
type Script struct {
	program *goja.Program
	client  protocol.Client
	log     *zap.SugaredLogger
}

// Compile parses source (JS program text). name is used in error
// messages and stack traces only.
func Compile(name, source string, client protocol.Client, log *zap.SugaredLogger) (*Script, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("script: compiling %s: %w", name, err)
	}
	return &Script{program: program, client: client, log: log}, nil
}

// requestOptions is the shape a script passes to request(opts).
type requestOptions struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
	Timeout int64             `json:"timeoutMs"`
}

// requestResult is what request(opts) returns to the script.
type requestResult struct {
	StatusCode int   `json:"statusCode"`
	DurationMs int64 `json:"durationMs"`
	BytesRead  int64 `json:"bytesRead"`
	Error      string
}

// Scenario returns a scenario.Scenario backed by a pool of goja VMs.
// goja.Runtime is not safe for concurrent use, so every concurrent
// call takes its own VM and its own compiled-program instantiation
// from the pool and returns it afterwards; re-running Compile per VM
// would re-parse the source, so this only re-instantiates from the
// already-parsed *goja.Program.
func (s *Script) Scenario() scenario.Scenario {
	newRun := func() (goja.Callable, bool) {
		vm := goja.New()
		vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
		s.bindRequest(vm)
		if _, err := vm.RunProgram(s.program); err != nil {
			s.log.Errorw("script failed to initialize", "error", err)
		}
		return goja.AssertFunction(vm.Get("run"))
	}
	first, ok := newRun()
	if !ok {
		s.log.Errorw("script does not define a run() function")
		return func(ctx context.Context) error {
			return fmt.Errorf("script: no run() function defined")
		}
	}
	vms := &sync.Pool{New: func() any { fn, _ := newRun(); return fn }}
	vms.Put(first)

	return func(ctx context.Context) error {
		runFn := vms.Get().(goja.Callable)
		defer vms.Put(runFn)
		return scenario.Do(ctx, func(ctx context.Context) error {
			_, err := runFn(goja.Undefined())
			return err
		})
	}
}

// bindRequest installs the request(opts) global the script body calls
// to perform one HTTP/gRPC transaction through the shared protocol.Client.
func (s *Script) bindRequest(vm *goja.Runtime) {
	_ = vm.Set("request", func(call goja.FunctionCall) goja.Value {
		var opts requestOptions
		if err := vm.ExportTo(call.Argument(0), &opts); err != nil {
			panic(vm.ToValue(fmt.Sprintf("request: invalid options: %v", err)))
		}

		req := &protocol.Request{
			URL:     opts.URL,
			Method:  opts.Method,
			Headers: opts.Headers,
			Body:    []byte(opts.Body),
			Timeout: time.Duration(opts.Timeout) * time.Millisecond,
		}

		resp := s.client.Do(context.Background(), req)
		result := requestResult{
			StatusCode: resp.StatusCode,
			DurationMs: resp.Duration.Milliseconds(),
			BytesRead:  resp.BytesRead,
		}
		if resp.Error != nil {
			result.Error = resp.Error.Error()
		}
		return vm.ToValue(result)
	})
}
