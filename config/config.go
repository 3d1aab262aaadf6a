// Package config loads the sample harness configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NetPo4ki/go-dispatch/chainwrite"
	"github.com/NetPo4ki/go-dispatch/dispatch"
	"github.com/NetPo4ki/go-dispatch/monitor"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the root configuration.
type Config struct {
	// Workers is the capacity of the shared worker pool.
	Workers int `yaml:"workers"`
	// Units is the number of work units per run.
	Units int `yaml:"units"`
	// Strategy is the dispatch selector: "1".."4" or a strategy name.
	Strategy string `yaml:"strategy"`

	Dispatch dispatch.Config `yaml:"dispatch"`
	Monitor  MonitorConfig   `yaml:"monitor"`
	Write    WriteConfig     `yaml:"write"`
	Log      LogConfig       `yaml:"log"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// WriteConfig controls the chained write facility.
type WriteConfig struct {
	Output string `yaml:"output"`
	Style  string `yaml:"style"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: console or json
	Format string `yaml:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `yaml:"outputs"`
	// Rotation applies to file outputs
	Rotation RotationConfig `yaml:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `yaml:"development"`
}

type RotationConfig struct {
	Enable     bool `yaml:"enable"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// Default returns the classic demo setup: 1000 units over 50 workers.
func Default() *Config {
	return &Config{
		Workers:  50,
		Units:    1000,
		Strategy: dispatch.TaskBased.String(),
		Dispatch: dispatch.DefaultConfig(),
		Monitor:  MonitorConfig{Interval: monitor.DefaultInterval},
		Write:    WriteConfig{Output: "somefile", Style: chainwrite.Async.String()},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

// Load reads path over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and selectors.
func (c *Config) Validate() error {
	var problems []error
	if c.Workers < 1 {
		problems = append(problems, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Units < 1 {
		problems = append(problems, fmt.Errorf("units must be at least 1, got %d", c.Units))
	}
	if _, err := dispatch.ParseStrategy(c.Strategy); err != nil {
		problems = append(problems, err)
	}
	if _, err := chainwrite.ParseStyle(c.Write.Style); err != nil {
		problems = append(problems, err)
	}
	if c.Write.Output == "" {
		problems = append(problems, errors.New("write.output must be set"))
	}
	for name, d := range map[string]time.Duration{
		"dispatch.unit_delay":       c.Dispatch.UnitDelay,
		"dispatch.blocking_work":    c.Dispatch.BlockingWork,
		"dispatch.nonblocking_work": c.Dispatch.NonBlockingWork,
		"dispatch.deferred_work":    c.Dispatch.DeferredWork,
	} {
		if d < 0 {
			problems = append(problems, fmt.Errorf("%s must not be negative, got %v", name, d))
		}
	}
	if c.Dispatch.PollInterval <= 0 {
		problems = append(problems, fmt.Errorf("dispatch.poll_interval must be positive, got %v", c.Dispatch.PollInterval))
	}
	if c.Monitor.Interval <= 0 {
		problems = append(problems, fmt.Errorf("monitor.interval must be positive, got %v", c.Monitor.Interval))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
}
