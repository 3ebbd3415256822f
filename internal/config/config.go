package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Scenarios []Scenario `yaml:"scenarios"`
	Targets   []Target   `yaml:"targets"`
	Pattern   Pattern    `yaml:"pattern"`
	Schedule  Schedule   `yaml:"schedule"`
	Peers     []string   `yaml:"peers,omitempty"`
	Health    Health     `yaml:"health"`
	Metrics   Metrics    `yaml:"metrics"`
	Logging   Logging    `yaml:"logging"`
}

// Scenario describes one run. Kind selects which fields below are
// meaningful, mirroring internal/scenario.Kind.
type Scenario struct {
	Name        string        `yaml:"name"`
	Kind        string        `yaml:"kind"` // once, tps, saturate, direct
	Duration    time.Duration `yaml:"duration"`
	GoalTps     uint32        `yaml:"goal_tps,omitempty"`
	ErrorRate   float64       `yaml:"error_rate,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	Script      string        `yaml:"script,omitempty"` // path to a JS scenario body; empty uses the built-in target-request body
}

// Target defines a single candidate endpoint a scenario body may
// select among. Weight controls the probability of selection relative
// to the other targets in the same list.
type Target struct {
	Name     string            `yaml:"name"`
	URL      string            `yaml:"url"`
	Protocol Protocol          `yaml:"protocol"`
	Method   string            `yaml:"method"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Body     string            `yaml:"body,omitempty"`
	Weight   int               `yaml:"weight"`
	Timeout  time.Duration     `yaml:"timeout"`
}

// Protocol represents the supported protocols.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTP2 Protocol = "http2"
	ProtocolGRPC  Protocol = "grpc"
)

// Schedule configures the time-of-day multiplier applied to direct-mode
// scenarios. An empty Script uses a flat 1.0 multiplier at all times.
type Schedule struct {
	Script string `yaml:"script,omitempty"`
}

// Pattern configures the traffic pattern engine used to shape
// direct-mode scenarios on top of the schedule multiplier.
type Pattern struct {
	Poisson Poisson `yaml:"poisson"`
	Noise   Noise   `yaml:"noise"`
}

// Poisson configures Poisson spike generation.
type Poisson struct {
	Enabled     bool          `yaml:"enabled"`
	Lambda      float64       `yaml:"lambda"`
	Interval    time.Duration `yaml:"interval,omitempty"`
	SpikeFactor float64       `yaml:"spike_factor"`
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
	RampUp      time.Duration `yaml:"ramp_up"`
	RampDown    time.Duration `yaml:"ramp_down"`
}

// Noise configures micro fluctuations.
type Noise struct {
	Enabled   bool    `yaml:"enabled"`
	Amplitude float64 `yaml:"amplitude"`
}

// Health configures the gRPC health check server.
type Health struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Metrics configures the Prometheus/snapshot HTTP server.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pattern: Pattern{
			Poisson: Poisson{
				Enabled:     false,
				Lambda:      0.0083,
				SpikeFactor: 2.0,
				MinInterval: 1 * time.Minute,
				MaxInterval: 10 * time.Minute,
				RampUp:      5 * time.Second,
				RampDown:    10 * time.Second,
			},
			Noise: Noise{
				Enabled:   false,
				Amplitude: 0.10,
			},
		},
		Health: Health{
			Enabled: true,
			Address: ":9091",
		},
		Metrics: Metrics{
			Enabled: true,
			Address: ":9090",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
