// Package config loads and validates run configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so configs can use strings like "30s".
type Duration time.Duration

// GetDuration returns the duration or a default if unset.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// HTTPConfig tunes the shared HTTP transport.
type HTTPConfig struct {
	Timeout             Duration `yaml:"timeout,omitempty"`
	MaxIdleConnsPerHost int      `yaml:"maxIdleConnsPerHost,omitempty"`
	MaxConnsPerHost     int      `yaml:"maxConnsPerHost,omitempty"`
	DisableKeepAlives   bool     `yaml:"disableKeepAlives,omitempty"`
	InsecureSkipVerify  bool     `yaml:"insecureSkipVerify,omitempty"`
}

// Config is the full run configuration.
type Config struct {
	// Host is the base URL of the target system.
	Host string `yaml:"host"`

	// Users is the target virtual-user population.
	Users int `yaml:"users"`

	// SpawnRate is users spawned per second during ramp-up.
	SpawnRate float64 `yaml:"spawnRate"`

	// Duration is how long the run holds the target population.
	Duration Duration `yaml:"duration"`

	// MinWait and MaxWait bound each user's pacing interval.
	MinWait Duration `yaml:"minWait,omitempty"`
	MaxWait Duration `yaml:"maxWait,omitempty"`

	// GracefulStop bounds the drain at the end of the run.
	GracefulStop Duration `yaml:"gracefulStop,omitempty"`

	// Seed makes a run reproducible; zero picks a time-based seed.
	Seed int64 `yaml:"seed,omitempty"`

	// QueueSize is the collector queue capacity.
	QueueSize int `yaml:"queueSize,omitempty"`

	HTTP HTTPConfig `yaml:"http,omitempty"`
}

// Default returns a config with every optional knob at its default.
func Default() *Config {
	c := &Config{}
	ApplyDefaults(c)
	return c
}

// ApplyDefaults fills unset optional fields.
func ApplyDefaults(c *Config) {
	if c.Users == 0 {
		c.Users = 1
	}
	if c.SpawnRate == 0 {
		c.SpawnRate = 1
	}
	if c.Duration == 0 {
		c.Duration = Duration(time.Minute)
	}
	if c.MinWait == 0 {
		c.MinWait = Duration(time.Second)
	}
	if c.MaxWait == 0 {
		c.MaxWait = Duration(3 * time.Second)
	}
	if c.GracefulStop == 0 {
		c.GracefulStop = Duration(30 * time.Second)
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = Duration(30 * time.Second)
	}
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyDefaults(&c)
	return &c, nil
}

// Validate checks the config for contradictions. Call after
// ApplyDefaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host is required")
	}
	if !strings.HasPrefix(c.Host, "http://") && !strings.HasPrefix(c.Host, "https://") {
		return fmt.Errorf("config: host must start with http:// or https://, got %q", c.Host)
	}
	if c.Users < 1 {
		return fmt.Errorf("config: users must be >= 1, got %d", c.Users)
	}
	if c.SpawnRate <= 0 {
		return fmt.Errorf("config: spawnRate must be > 0, got %g", c.SpawnRate)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be > 0")
	}
	if c.MinWait < 0 || c.MaxWait < 0 {
		return fmt.Errorf("config: wait bounds must not be negative")
	}
	if c.MaxWait < c.MinWait {
		return fmt.Errorf("config: maxWait (%s) is below minWait (%s)",
			time.Duration(c.MaxWait), time.Duration(c.MinWait))
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("config: queueSize must not be negative, got %d", c.QueueSize)
	}
	return nil
}
