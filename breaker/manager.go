package breaker

import (
	"sort"
	"sync"

	"github.com/terrasense/mowkit/logger"
)

// Manager owns the named breakers for a process. Breakers are created once
// per protected call site and live for the process lifetime.
type Manager struct {
	mu       sync.Mutex
	defaults Config
	breakers map[string]*Breaker
	log      *logger.Logger
}

// NewManager creates a breaker manager with the given default config.
// The default's Name field is ignored; each breaker gets its own name.
func NewManager(defaults Config) *Manager {
	return &Manager{
		defaults: defaults,
		breakers: make(map[string]*Breaker),
		log:      logger.Get("breaker"),
	}
}

// SetDefaults replaces the default config used for breakers created by Get.
// Existing breakers are unaffected.
func (m *Manager) SetDefaults(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = cfg
}

// Get returns the breaker registered under name, creating it from the
// manager defaults if absent. Creation is idempotent: concurrent callers
// always observe the same instance.
func (m *Manager) Get(name string) *Breaker {
	cfg := m.defaults
	cfg.Name = name
	return m.GetWithConfig(name, cfg)
}

// GetWithConfig returns the breaker registered under name, creating it with
// cfg if absent. If the breaker already exists, cfg is ignored.
func (m *Manager) GetWithConfig(name string, cfg Config) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[name]; ok {
		return b
	}

	cfg.Name = name
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = m.logStateChange
	}
	b := New(cfg)
	m.breakers[name] = b

	m.log.Debug("breaker registered", logger.Fields(
		logger.FieldBreaker, name,
		"failure_threshold", cfg.FailureThreshold,
		"timeout", cfg.Timeout.String(),
	))
	return b
}

// GetForClass returns the breaker registered under name, creating it from
// the hardware-class preset if absent.
func (m *Manager) GetForClass(class HardwareClass, name string) *Breaker {
	return m.GetWithConfig(name, ForClass(class, name))
}

// ResetAll forces every registered breaker back to closed.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.breakers {
		b.Reset()
	}
	m.log.Info("all breakers reset", logger.Fields("count", len(m.breakers)))
}

// Names returns the registered breaker names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.breakers))
	for name := range m.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot exports the state of every registered breaker, sorted by name.
func (m *Manager) Snapshot() []Status {
	m.mu.Lock()
	breakers := make([]*Breaker, 0, len(m.breakers))
	for _, b := range m.breakers {
		breakers = append(breakers, b)
	}
	m.mu.Unlock()

	statuses := make([]Status, 0, len(breakers))
	for _, b := range breakers {
		statuses = append(statuses, b.Status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (m *Manager) logStateChange(name string, from, to State) {
	fields := logger.Fields(
		logger.FieldBreaker, name,
		"from", from.String(),
		"to", to.String(),
	)
	if to == StateOpen {
		m.log.Warn("circuit opened", fields)
	} else {
		m.log.Info("circuit state changed", fields)
	}
}
