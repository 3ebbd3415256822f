package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/throttlelab/throttle/internal/scenario"
)

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	if len(cfg.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}

	for i, t := range cfg.Targets {
		if t.Name == "" {
			return fmt.Errorf("target[%d]: name is required", i)
		}
		if t.URL == "" {
			return fmt.Errorf("target[%d]: url is required", i)
		}
		if t.Protocol == "" {
			cfg.Targets[i].Protocol = ProtocolHTTP
		}
		if t.Method == "" {
			cfg.Targets[i].Method = "GET"
		}
		if t.Weight <= 0 {
			cfg.Targets[i].Weight = 100
		}
		if t.Timeout <= 0 {
			cfg.Targets[i].Timeout = 30 * time.Second
		}
	}

	for i, s := range cfg.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenarios[%d]: name is required", i)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("scenarios[%d]: duration must be positive", i)
		}
		if _, err := ParseKind(s.Kind); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}
	}

	if cfg.Pattern.Poisson.Enabled {
		if cfg.Pattern.Poisson.Lambda <= 0 && cfg.Pattern.Poisson.Interval <= 0 {
			return fmt.Errorf("pattern.poisson.lambda or pattern.poisson.interval must be positive")
		}
		if cfg.Pattern.Poisson.SpikeFactor < 1 {
			return fmt.Errorf("pattern.poisson.spike_factor must be >= 1")
		}
	}

	if cfg.Pattern.Noise.Enabled {
		if cfg.Pattern.Noise.Amplitude < 0 || cfg.Pattern.Noise.Amplitude > 1 {
			return fmt.Errorf("pattern.noise.amplitude must be between 0 and 1")
		}
	}

	return nil
}

// ParseKind maps a scenario.yaml kind string to scenario.Kind.
func ParseKind(s string) (scenario.Kind, error) {
	switch s {
	case "once":
		return scenario.KindOnce, nil
	case "tps":
		return scenario.KindTps, nil
	case "saturate":
		return scenario.KindSaturate, nil
	case "direct":
		return scenario.KindDirect, nil
	default:
		return 0, fmt.Errorf("unknown scenario kind %q (want once, tps, saturate or direct)", s)
	}
}

// ToScenarioConfig converts a YAML Scenario entry into the runtime
// scenario.Config the runners consume.
func ToScenarioConfig(s Scenario) (scenario.Config, error) {
	kind, err := ParseKind(s.Kind)
	if err != nil {
		return scenario.Config{}, err
	}
	return scenario.Config{
		Name:        s.Name,
		Duration:    s.Duration,
		Kind:        kind,
		GoalTps:     s.GoalTps,
		ErrorRate:   s.ErrorRate,
		Concurrency: s.Concurrency,
	}, nil
}
