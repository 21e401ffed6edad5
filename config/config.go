package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/terrasense/mowkit/breaker"
	"github.com/terrasense/mowkit/degrade"
	"github.com/terrasense/mowkit/logger"
	"github.com/terrasense/mowkit/observability"
	"github.com/terrasense/mowkit/retry"
)

var validate = validator.New()

// Config is the root configuration tree for a mowkit deployment.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	Breakers    BreakersConfig     `yaml:"breakers" mapstructure:"breakers"`
	Retry       []retry.PolicySpec `yaml:"retry" mapstructure:"retry" validate:"dive"`
	Degradation []degrade.Strategy `yaml:"degradation" mapstructure:"degradation"`
	Health      HealthConfig       `yaml:"health" mapstructure:"health"`
	Recovery    RecoveryConfig     `yaml:"recovery" mapstructure:"recovery"`
}

// BreakerSpec is the declarative form of a circuit breaker configuration.
// Hooks and fallbacks are wired in code, not in config.
type BreakerSpec struct {
	FailureThreshold         int           `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"omitempty,min=1"`
	Timeout                  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,min=0"`
	FailureWindow            time.Duration `yaml:"failure_window" mapstructure:"failure_window" validate:"omitempty,min=0"`
	HalfOpenSuccessThreshold int           `yaml:"half_open_success_threshold" mapstructure:"half_open_success_threshold" validate:"omitempty,min=1"`
	ResetTimeout             time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout" validate:"omitempty,min=0"`
}

// Apply converts a BreakerSpec into a runtime breaker configuration.
func (s BreakerSpec) Apply(name string) breaker.Config {
	return breaker.Config{
		Name:                     name,
		FailureThreshold:         s.FailureThreshold,
		Timeout:                  s.Timeout,
		FailureWindow:            s.FailureWindow,
		HalfOpenSuccessThreshold: s.HalfOpenSuccessThreshold,
		ResetTimeout:             s.ResetTimeout,
	}
}

// BreakersConfig carries the default breaker tuning plus per-name
// overrides. Names not listed fall back to the default or the hardware
// class preset.
type BreakersConfig struct {
	Default   *BreakerSpec           `yaml:"default" mapstructure:"default"`
	Overrides map[string]BreakerSpec `yaml:"overrides" mapstructure:"overrides"`
}

// HealthConfig tunes the health monitor's background poller.
type HealthConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" validate:"omitempty,min=1ms"`
}

// RecoveryConfig tunes gating for the built-in recovery strategies.
type RecoveryConfig struct {
	Cooldown           time.Duration `yaml:"cooldown" mapstructure:"cooldown" validate:"omitempty,min=0"`
	MaxAttemptsPerHour int           `yaml:"max_attempts_per_hour" mapstructure:"max_attempts_per_hour" validate:"omitempty,min=1"`
}

// ApplyDefaults fills unset fields with sensible development defaults.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	if c.Health.PollInterval == 0 {
		c.Health.PollInterval = 30 * time.Second
	}
	if c.Recovery.Cooldown == 0 {
		c.Recovery.Cooldown = time.Minute
	}
	if c.Recovery.MaxAttemptsPerHour == 0 {
		c.Recovery.MaxAttemptsPerHour = 3
	}
}

// Validate checks the whole tree, including named retry policies and
// degradation strategies.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seen := make(map[string]bool, len(c.Retry))
	for _, spec := range c.Retry {
		if spec.Name == "" {
			return fmt.Errorf("config: retry policy without a name")
		}
		if seen[spec.Name] {
			return fmt.Errorf("config: duplicate retry policy %q", spec.Name)
		}
		seen[spec.Name] = true
	}
	for _, s := range c.Degradation {
		if s.Name == "" {
			return fmt.Errorf("config: degradation strategy without a name")
		}
		if len(s.TriggerSensors) == 0 {
			return fmt.Errorf("config: degradation strategy %q has no trigger sensors", s.Name)
		}
		if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
			return fmt.Errorf("config: degradation strategy %q confidence threshold out of [0,1]", s.Name)
		}
	}
	return nil
}
