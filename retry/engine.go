package retry

import (
	"fmt"
	"sync"
	"time"
)

// PolicySpec is the declarative form of a Policy, as it appears in config
// files. Durations use Go duration syntax ("250ms", "5s").
type PolicySpec struct {
	Name         string        `yaml:"name" mapstructure:"name" validate:"required"`
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"min=1"`
	Strategy     string        `yaml:"strategy" mapstructure:"strategy"`
	BaseDelay    time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Jitter       bool          `yaml:"jitter" mapstructure:"jitter"`
	JitterFactor float64       `yaml:"jitter_factor" mapstructure:"jitter_factor"`
}

// Build converts a spec into a Policy. The classifier is supplied by the
// caller since it cannot be expressed declaratively.
func (s PolicySpec) Build(retryIf func(error) bool) (Policy, error) {
	strategy, err := ParseStrategy(s.Strategy)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %q: %w", s.Name, err)
	}
	if s.MaxAttempts < 1 {
		return Policy{}, fmt.Errorf("policy %q: max_attempts must be >= 1", s.Name)
	}

	p := Policy{
		MaxAttempts:  s.MaxAttempts,
		Strategy:     strategy,
		BaseDelay:    s.BaseDelay,
		MaxDelay:     s.MaxDelay,
		Jitter:       s.Jitter,
		JitterFactor: s.JitterFactor,
		RetryIf:      retryIf,
	}
	return p, nil
}

// Engine is a shared registry of named retry policies.
type Engine struct {
	mu           sync.RWMutex
	policies     map[string]Policy
	defaultName  string
	defaultValue Policy
}

// NewEngine creates an engine whose default policy is used by Named for
// unknown names.
func NewEngine(defaultPolicy Policy) *Engine {
	return &Engine{
		policies:     make(map[string]Policy),
		defaultValue: defaultPolicy,
	}
}

// Register stores a named policy, replacing any existing one.
func (e *Engine) Register(name string, p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies[name] = p
}

// SetDefault names an already-registered policy as the default.
func (e *Engine) SetDefault(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.policies[name]
	if !ok {
		return fmt.Errorf("retry policy %q not registered", name)
	}
	e.defaultName = name
	e.defaultValue = p
	return nil
}

// Named returns the policy registered under name, or the default policy if
// the name is unknown. The returned value is a copy; callers may attach
// their own hooks without affecting the registry.
func (e *Engine) Named(name string) Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.policies[name]; ok {
		return p
	}
	return e.defaultValue
}

// Default returns the engine's default policy.
func (e *Engine) Default() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultValue
}

// Load registers policies from declarative specs, attaching the given
// classifier to each. A spec named "default" also becomes the default.
func (e *Engine) Load(specs []PolicySpec, retryIf func(error) bool) error {
	for _, spec := range specs {
		p, err := spec.Build(retryIf)
		if err != nil {
			return err
		}
		e.Register(spec.Name, p)
		if spec.Name == "default" {
			if err := e.SetDefault(spec.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names returns the registered policy names.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	return names
}
