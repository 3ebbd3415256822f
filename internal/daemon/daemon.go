// Package daemon runs scenarios in the background behind a Unix
// socket control channel, the same trigger/stop/status command
// surface the original daemon exposed, now driving scenario.Runner and
// saturate.Runner instead of the old single pattern-engine controller.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/throttlelab/throttle/internal/config"
	"github.com/throttlelab/throttle/internal/pattern"
	"github.com/throttlelab/throttle/internal/peer"
	"github.com/throttlelab/throttle/internal/saturate"
	"github.com/throttlelab/throttle/internal/scenario"
	"github.com/throttlelab/throttle/internal/scenario/script"
	"github.com/throttlelab/throttle/internal/schedule"
	"github.com/throttlelab/throttle/internal/target"
	"github.com/throttlelab/throttle/internal/telemetry"
	"github.com/throttlelab/throttle/pkg/protocol"
)

const (
	SocketName = "throttle.sock"
	PidFile    = "throttle.pid"
	LogFile    = "throttle.log"
)

// Status is the current daemon status reported to the CLI.
type Status struct {
	Running     bool      `json:"running"`
	Triggered   bool      `json:"triggered"`
	StartTime   time.Time `json:"start_time"`
	Uptime      string    `json:"uptime"`
	Scenario    string    `json:"scenario"`
	Concurrency int       `json:"concurrency"`
	GoalTps     float64   `json:"goal_tps"`
	Stable      bool      `json:"stable"`
	LastError   string    `json:"last_error,omitempty"`
}

// Command is a request sent to the daemon over its control socket.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the daemon's reply to a Command.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Daemon owns one configured set of scenarios and runs them, one at a
// time in declaration order, once triggered.
type Daemon struct {
	cfg *config.Config
	log *zap.SugaredLogger

	reg     *prometheus.Registry
	metrics *telemetry.Metrics
	health  *telemetry.HealthServer
	httpSrv *telemetry.Server
	sink    *peer.Sink

	status   Status
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	listener net.Listener

	socketPath string
	logFile    *os.File

	spike atomic.Value // holds spikeState
}

// spikeState is a manually triggered, time-bounded multiplier on top of
// whatever a direct-mode scenario's shaper already computes.
type spikeState struct {
	factor float64
	until  time.Time
}

// spikeRequest is the JSON payload of a "spike" Command.
type spikeRequest struct {
	Factor   float64       `json:"factor"`
	Duration time.Duration `json:"duration"`
}

const defaultSpikeFactor = 3.0
const defaultSpikeDuration = 30 * time.Second

// GetRuntimeDir returns the runtime directory throttle uses for its
// socket, pid file and log file.
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "throttle")
	}
	return filepath.Join(os.TempDir(), "throttle")
}

func GetSocketPath() string { return filepath.Join(GetRuntimeDir(), SocketName) }
func GetPidPath() string    { return filepath.Join(GetRuntimeDir(), PidFile) }
func GetLogPath() string    { return filepath.Join(GetRuntimeDir(), LogFile) }

// New constructs a Daemon for cfg. log may be nil, in which case the
// daemon logs nowhere but its own log file.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Daemon, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	runtimeDir := GetRuntimeDir()
	if err := os.MkdirAll(runtimeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	logFile, err := os.OpenFile(GetLogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		cfg:        cfg,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		socketPath: GetSocketPath(),
		logFile:    logFile,
		status:     Status{Running: true},
	}, nil
}

// Start opens the control socket and the optional metrics/health
// servers, then waits for a trigger command.
func (d *Daemon) Start() error {
	d.log.Info("starting daemon")

	if err := os.WriteFile(GetPidPath(), []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}

	os.Remove(d.socketPath)
	var err error
	d.listener, err = net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}

	d.reg = prometheus.NewRegistry()
	d.metrics = telemetry.NewMetrics(d.reg)

	if len(d.cfg.Peers) > 0 {
		d.sink = peer.NewSink(d.cfg.Peers, protocol.NewHTTPClient(protocol.ClientConfig{}), d.log)
	}

	if d.cfg.Health.Enabled {
		d.health = telemetry.NewHealthServer()
		hl, err := net.Listen("tcp", d.cfg.Health.Address)
		if err != nil {
			return fmt.Errorf("failed to bind health address: %w", err)
		}
		go func() {
			if err := d.health.Serve(hl); err != nil {
				d.log.Warnw("health server stopped", "error", err)
			}
		}()
	}

	if d.cfg.Metrics.Enabled {
		d.httpSrv = telemetry.NewServer(d.cfg.Metrics.Address, d.reg, d.log)
		go func() {
			if err := d.httpSrv.ListenAndServe(d.ctx); err != nil {
				d.log.Warnw("metrics server stopped", "error", err)
			}
		}()
	}

	d.status.StartTime = time.Now()
	d.log.Info("daemon started, waiting for trigger")

	go d.acceptConnections()
	return nil
}

// Trigger starts running the configured scenarios, in order, on a
// background goroutine. Calling Trigger twice is a no-op.
func (d *Daemon) Trigger() {
	d.mu.Lock()
	if d.status.Triggered {
		d.mu.Unlock()
		return
	}
	d.status.Triggered = true
	d.mu.Unlock()

	d.log.Info("trigger pulled, starting scenarios")
	go d.runScenarios()
}

func (d *Daemon) runScenarios() {
	for _, sc := range d.cfg.Scenarios {
		select {
		case <-d.ctx.Done():
			return
		default:
		}
		if err := d.runOne(sc); err != nil {
			d.log.Errorw("scenario failed", "scenario", sc.Name, "error", err)
			d.mu.Lock()
			d.status.LastError = err.Error()
			d.mu.Unlock()
		}
	}
	d.mu.Lock()
	d.status.Triggered = false
	d.mu.Unlock()
}

func (d *Daemon) runOne(sc config.Scenario) error {
	scCfg, err := config.ToScenarioConfig(sc)
	if err != nil {
		return err
	}

	body, closeBody, err := d.buildBody(sc)
	if err != nil {
		return err
	}
	defer closeBody()

	d.mu.Lock()
	d.status.Scenario = sc.Name
	d.mu.Unlock()

	// A nil *peer.Sink stored in the interface would not compare equal
	// to nil inside the runner, so only pass a sink that exists.
	var sink scenario.Distribution
	if d.sink != nil {
		sink = d.sink
	}

	switch scCfg.Kind {
	case scenario.KindOnce:
		return scenario.Do(d.ctx, func(ctx context.Context) error { return body(ctx) })

	case scenario.KindTps:
		runner := scenario.NewRunner(body, d.metrics, sink, d.log)
		summary, err := runner.RunTps(d.ctx, scCfg)
		d.recordSummary(summary)
		return err

	case scenario.KindSaturate:
		runner := saturate.NewRunner(body, d.metrics, d.log)
		summary, _, err := runner.Run(d.ctx, scCfg)
		d.recordSummary(summary)
		return err

	case scenario.KindDirect:
		runner := scenario.NewRunner(body, d.metrics, sink, d.log)
		var base scenario.Shaper
		if d.cfg.Pattern.Poisson.Enabled || d.cfg.Pattern.Noise.Enabled {
			base = pattern.NewEngine(d.cfg.Pattern, float64(scCfg.GoalTps), float64(scCfg.GoalTps)*d.cfg.Pattern.Poisson.SpikeFactor)
		} else {
			base = flatShaper(scCfg.GoalTps)
		}
		shaper := &spikingShaper{inner: base, daemon: d}
		var sched scenario.ScheduleMultiplier
		if d.cfg.Schedule.Script != "" {
			src, err := os.ReadFile(d.cfg.Schedule.Script)
			if err != nil {
				return fmt.Errorf("reading schedule script: %w", err)
			}
			loaded, err := schedule.LoadScripted(d.cfg.Schedule.Script, string(src), nil)
			if err != nil {
				return err
			}
			sched = loaded
		} else {
			sched = schedule.NewStatic(nil)
		}
		summary, err := runner.RunDirect(d.ctx, scCfg, shaper, sched)
		d.recordSummary(summary)
		return err

	default:
		return fmt.Errorf("unknown scenario kind %v", scCfg.Kind)
	}
}

// buildBody constructs the scenario body sc runs: a JS-scripted body
// compiled from sc.Script if set, otherwise the built-in weighted
// target-selection body. The returned close func releases whatever
// protocol clients the body holds and must always be called.
func (d *Daemon) buildBody(sc config.Scenario) (scenario.Scenario, func(), error) {
	clientCfg := protocol.ClientConfig{MaxIdleConns: 256, IdleConnTimeout: 90 * time.Second}

	if sc.Script != "" {
		src, err := os.ReadFile(sc.Script)
		if err != nil {
			return nil, nil, fmt.Errorf("reading scenario script: %w", err)
		}
		client := protocol.NewHTTPClient(clientCfg)
		s, err := script.Compile(sc.Script, string(src), client, d.log)
		if err != nil {
			return nil, nil, err
		}
		return s.Scenario(), func() { client.Close() }, nil
	}

	targets, err := target.NewSet(d.cfg.Targets, clientCfg, target.Now())
	if err != nil {
		return nil, nil, err
	}
	return targets.Scenario(), func() { targets.Close() }, nil
}

// flatShaper implements scenario.Shaper over a fixed base rate, for
// direct-mode scenarios with no poisson/noise pattern configured.
type flatShaper uint32

func (f flatShaper) CalculateTPS(scheduleMultiplier float64) float64 {
	return float64(f) * scheduleMultiplier
}

// spikingShaper layers a manually triggered, time-bounded multiplier
// on top of inner, so operators can kick a running direct-mode
// scenario without restarting it.
type spikingShaper struct {
	inner  scenario.Shaper
	daemon *Daemon
}

func (s *spikingShaper) CalculateTPS(scheduleMultiplier float64) float64 {
	tps := s.inner.CalculateTPS(scheduleMultiplier)
	if st, ok := s.daemon.spike.Load().(spikeState); ok && time.Now().Before(st.until) {
		return tps * st.factor
	}
	return tps
}

// Spike arms a manual TPS multiplier for the next duration, applied on
// top of whatever a running direct-mode scenario's shaper already
// computes. A zero or negative factor or duration is replaced by
// defaultSpikeFactor or defaultSpikeDuration.
func (d *Daemon) Spike(factor float64, duration time.Duration) {
	if factor <= 0 {
		factor = defaultSpikeFactor
	}
	if duration <= 0 {
		duration = defaultSpikeDuration
	}
	d.spike.Store(spikeState{factor: factor, until: time.Now().Add(duration)})
	d.log.Infow("manual spike armed", "factor", factor, "duration", duration)
}

func (d *Daemon) recordSummary(s scenario.Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Concurrency = s.Concurrency
	d.status.GoalTps = float64(s.GoalTps)
	d.status.Stable = s.Stable
}

// GetStatus returns a snapshot of the current daemon status.
func (d *Daemon) GetStatus() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := d.status
	if !status.StartTime.IsZero() {
		status.Uptime = time.Since(status.StartTime).Round(time.Second).String()
	}
	return status
}

// Stop tears down every subsystem the daemon started.
func (d *Daemon) Stop() {
	d.log.Info("stopping daemon")
	d.cancel()

	if d.health != nil {
		d.health.Stop()
	}
	if d.listener != nil {
		d.listener.Close()
	}

	os.Remove(d.socketPath)
	os.Remove(GetPidPath())

	if d.logFile != nil {
		d.logFile.Close()
	}
	d.log.Info("daemon stopped")
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
				d.log.Warnw("accept error", "error", err)
				continue
			}
		}
		go d.handleConnection(conn)
	}
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd Command
	if err := decoder.Decode(&cmd); err != nil {
		encoder.Encode(Response{Success: false, Message: err.Error()})
		return
	}

	var resp Response
	switch cmd.Type {
	case "status":
		resp = Response{Success: true, Data: d.GetStatus()}
	case "trigger":
		d.Trigger()
		resp = Response{Success: true, Message: "trigger pulled"}
	case "spike":
		var req spikeRequest
		if len(cmd.Data) > 0 {
			if err := json.Unmarshal(cmd.Data, &req); err != nil {
				resp = Response{Success: false, Message: "invalid spike payload: " + err.Error()}
				encoder.Encode(resp)
				return
			}
		}
		d.Spike(req.Factor, req.Duration)
		resp = Response{Success: true, Message: "spike armed"}
	case "stop":
		resp = Response{Success: true, Message: "stopping daemon..."}
		encoder.Encode(resp)
		go func() {
			time.Sleep(100 * time.Millisecond)
			d.Stop()
			os.Exit(0)
		}()
		return
	default:
		resp = Response{Success: false, Message: "unknown command: " + cmd.Type}
	}

	encoder.Encode(resp)
}

// IsRunning reports whether a daemon is already listening on the
// control socket.
func IsRunning() bool {
	conn, err := net.Dial("unix", GetSocketPath())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// SendCommand sends cmd to the running daemon and returns its reply.
func SendCommand(cmd Command) (*Response, error) {
	conn, err := net.Dial("unix", GetSocketPath())
	if err != nil {
		return nil, fmt.Errorf("daemon not running: %w", err)
	}
	defer conn.Close()

	encoder := json.NewEncoder(conn)
	decoder := json.NewDecoder(conn)

	if err := encoder.Encode(cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &resp, nil
}
