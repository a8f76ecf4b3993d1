// Package config loads the driver configuration: known devices plus the
// session tuning knobs. Every timing threshold in the session engine is
// empirical rather than a protocol requirement, so all of them are
// exposed here with defaults matching observed firmware behavior.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ledstack/ledwifi/pkg/light"
)

// Config is the root configuration structure.
type Config struct {
	Devices []DeviceConfig `yaml:"devices"`
	Session SessionConfig  `yaml:"session"`
	Power   PowerConfig    `yaml:"power"`
	Polling PollingConfig  `yaml:"polling"`
	Logging LoggingConfig  `yaml:"logging"`
}

// DeviceConfig names one statically configured controller.
type DeviceConfig struct {
	Addr string `yaml:"addr"` // host or host:port
	ID   string `yaml:"id"`   // defaults to addr
	Name string `yaml:"name"` // defaults to id
}

// SessionConfig contains the transport timing settings, in milliseconds.
type SessionConfig struct {
	ConnectTimeoutMs   int `yaml:"connect_timeout_ms"`
	ResponseTimeoutMs  int `yaml:"response_timeout_ms"`
	DetectTimeoutMs    int `yaml:"detect_timeout_ms"`
	MaxNoResponse      int `yaml:"max_no_response"`
	DeviceLatencyMs    int `yaml:"device_latency_ms"`
	FadePerSpeedUnitMs int `yaml:"fade_per_speed_unit_ms"`
}

// PowerConfig contains the power-change retry settings. The phase
// fractions are applied to the response timeout.
type PowerConfig struct {
	Attempts     int `yaml:"attempts"`
	LenientAfter int `yaml:"lenient_after"`
	Phase1Num    int `yaml:"phase1_num"`
	Phase1Den    int `yaml:"phase1_den"`
	Phase2Num    int `yaml:"phase2_num"`
	Phase2Den    int `yaml:"phase2_den"`
}

// PollingConfig contains the state refresh intervals.
type PollingConfig struct {
	IntervalMs         int `yaml:"interval_ms"`
	LivenessIntervalMs int `yaml:"liveness_interval_ms"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config matching light.DefaultTuning.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			ConnectTimeoutMs:   5000,
			ResponseTimeoutMs:  2000,
			DetectTimeoutMs:    1000,
			MaxNoResponse:      4,
			DeviceLatencyMs:    600,
			FadePerSpeedUnitMs: 20,
		},
		Power: PowerConfig{
			Attempts:     6,
			LenientAfter: 3,
			Phase1Num:    3, Phase1Den: 8,
			Phase2Num: 5, Phase2Den: 8,
		},
		Polling: PollingConfig{
			IntervalMs:         5000,
			LivenessIntervalMs: 120000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the session engine cannot
// work with.
func (c *Config) Validate() error {
	var errs []string

	for i, d := range c.Devices {
		if d.Addr == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].addr is required", i))
		}
	}

	for name, v := range map[string]int{
		"session.connect_timeout_ms":   c.Session.ConnectTimeoutMs,
		"session.response_timeout_ms":  c.Session.ResponseTimeoutMs,
		"session.detect_timeout_ms":    c.Session.DetectTimeoutMs,
		"session.max_no_response":      c.Session.MaxNoResponse,
		"polling.interval_ms":          c.Polling.IntervalMs,
		"polling.liveness_interval_ms": c.Polling.LivenessIntervalMs,
	} {
		if v <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}
	if c.Session.DeviceLatencyMs < 0 || c.Session.FadePerSpeedUnitMs < 0 {
		errs = append(errs, "session latency settings must not be negative")
	}

	if c.Power.Attempts < 1 {
		errs = append(errs, "power.attempts must be at least 1")
	}
	if c.Power.LenientAfter < 0 || c.Power.LenientAfter > c.Power.Attempts {
		errs = append(errs, "power.lenient_after must be between 0 and power.attempts")
	}
	for name, p := range map[string][2]int{
		"power.phase1": {c.Power.Phase1Num, c.Power.Phase1Den},
		"power.phase2": {c.Power.Phase2Num, c.Power.Phase2Den},
	} {
		if p[0] < 1 || p[1] < 1 || p[0] > p[1] {
			errs = append(errs, name+" must be a fraction between 0 and 1")
		}
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logging.level must be one of trace, debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Tuning converts the configuration into the session engine's tuning set.
func (c *Config) Tuning() light.Tuning {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return light.Tuning{
		ConnectTimeout:  ms(c.Session.ConnectTimeoutMs),
		ResponseTimeout: ms(c.Session.ResponseTimeoutMs),
		DetectTimeout:   ms(c.Session.DetectTimeoutMs),

		PowerAttempts:  c.Power.Attempts,
		LenientAfter:   c.Power.LenientAfter,
		PowerPhase1Num: c.Power.Phase1Num, PowerPhase1Den: c.Power.Phase1Den,
		PowerPhase2Num: c.Power.Phase2Num, PowerPhase2Den: c.Power.Phase2Den,

		MaxNoResponse: c.Session.MaxNoResponse,

		DeviceLatency:    ms(c.Session.DeviceLatencyMs),
		FadePerSpeedUnit: ms(c.Session.FadePerSpeedUnitMs),

		PollInterval:     ms(c.Polling.IntervalMs),
		LivenessInterval: ms(c.Polling.LivenessIntervalMs),
	}
}
