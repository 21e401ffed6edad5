package health

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/terrasense/mowkit/faults"
	"github.com/terrasense/mowkit/logger"
)

// Checker is implemented by monitored components that can self-report.
// Errors returned here are caught by the monitor, never propagated.
type Checker interface {
	CheckHealth() error
}

// MetricsProvider is optionally implemented by checkers that also expose
// numeric health metrics.
type MetricsProvider interface {
	HealthMetrics() map[string]any
}

// Callback observes a component health change. Callbacks receive a snapshot
// and run outside the monitor lock; panics are recovered and logged.
type Callback func(ComponentHealth)

// Monitor is the shared health registry. All mutation is serialized behind
// one mutex; many reporters may call in concurrently.
type Monitor struct {
	mu              sync.Mutex
	components      map[string]*ComponentHealth
	checkers        map[string]Checker
	byComponent     map[string][]Callback
	globalCallbacks []Callback
	log             *logger.Logger
}

// NewMonitor creates an empty health monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		components:  make(map[string]*ComponentHealth),
		checkers:    make(map[string]Checker),
		byComponent: make(map[string][]Callback),
		log:         logger.Get("health"),
	}
}

// Register lazily creates the component record and attaches dependencies.
func (m *Monitor) Register(name string, dependencies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.getOrCreate(name)
	for _, dep := range dependencies {
		if !containsString(c.Dependencies, dep) {
			c.Dependencies = append(c.Dependencies, dep)
		}
	}
}

// RegisterChecker registers a component with a pollable health check.
func (m *Monitor) RegisterChecker(name string, checker Checker, dependencies ...string) {
	m.Register(name, dependencies...)
	m.mu.Lock()
	m.checkers[name] = checker
	m.mu.Unlock()
}

// OnChange registers a callback for one component's health changes.
func (m *Monitor) OnChange(name string, cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byComponent[name] = append(m.byComponent[name], cb)
}

// OnAnyChange registers a callback fired for every component's changes.
func (m *Monitor) OnAnyChange(cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalCallbacks = append(m.globalCallbacks, cb)
}

// UpdateOption mutates one field of a health update.
type UpdateOption func(*update)

type update struct {
	status      *Status
	metrics     map[string]any
	issues      []Issue
	clearIssues bool
}

// WithStatus sets the component status.
func WithStatus(s Status) UpdateOption {
	return func(u *update) { u.status = &s }
}

// WithMetrics merges metrics into the component's metrics map.
func WithMetrics(metrics map[string]any) UpdateOption {
	return func(u *update) { u.metrics = metrics }
}

// WithIssues appends issues, applying severity-driven status transitions.
func WithIssues(issues ...Issue) UpdateOption {
	return func(u *update) { u.issues = append(u.issues, issues...) }
}

// ClearIssues drops the component's issue list without touching its status.
func ClearIssues() UpdateOption {
	return func(u *update) { u.clearIssues = true }
}

// UpdateHealth applies each optional field to the named component, creating
// it if needed. A status change or a critical issue fires the component's
// and the global callbacks.
func (m *Monitor) UpdateHealth(name string, opts ...UpdateOption) {
	var u update
	for _, opt := range opts {
		opt(&u)
	}

	m.mu.Lock()
	c := m.getOrCreate(name)
	prev := c.Status

	if u.clearIssues {
		c.clearIssues()
	}
	if u.status != nil {
		c.Status = *u.status
	}
	for k, v := range u.metrics {
		c.Metrics[k] = v
	}
	hasCritical := false
	for _, issue := range u.issues {
		c.addIssue(issue)
		if issue.Severity == faults.SeverityCritical {
			hasCritical = true
		}
	}
	c.LastCheck = time.Now()

	changed := c.Status != prev
	var snap ComponentHealth
	var callbacks []Callback
	if changed || hasCritical {
		snap = c.snapshot()
		callbacks = append(callbacks, m.byComponent[name]...)
		callbacks = append(callbacks, m.globalCallbacks...)
	}
	m.mu.Unlock()

	if changed {
		m.log.Info("component status changed", logger.Fields(
			logger.FieldComponent, name,
			"from", string(prev),
			"to", string(snap.Status),
		))
	}
	for _, cb := range callbacks {
		m.invoke(cb, snap)
	}
}

// ReportFailure records an error against a component as an issue.
func (m *Monitor) ReportFailure(name string, err error) {
	m.UpdateHealth(name, WithIssues(IssueFromError(name, err)))
}

// CheckComponent polls the named component's checker. Checker errors and
// panics become a Degraded status plus an error issue instead of
// propagating.
func (m *Monitor) CheckComponent(name string) {
	m.mu.Lock()
	checker, ok := m.checkers[name]
	m.mu.Unlock()
	if !ok {
		return
	}

	err := m.safeCheck(name, checker)
	if err != nil {
		issue := NewIssue(name, fmt.Sprintf("health check failed: %v", err), faults.SeverityError)
		m.UpdateHealth(name, WithStatus(StatusDegraded), WithIssues(issue))
		return
	}

	opts := []UpdateOption{WithStatus(StatusHealthy)}
	if mp, ok := checker.(MetricsProvider); ok {
		opts = append(opts, WithMetrics(mp.HealthMetrics()))
	}
	m.UpdateHealth(name, opts...)
}

// CheckAll polls every registered checker.
func (m *Monitor) CheckAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.checkers))
	for name := range m.checkers {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		m.CheckComponent(name)
	}
}

// SystemStatus rolls component statuses up into one: any Failed wins, then
// any Degraded, then all-Healthy; a mix of transitional states reports
// Degraded. An empty registry is Unknown.
func (m *Monitor) SystemStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.components) == 0 {
		return StatusUnknown
	}

	anyDegraded := false
	allHealthy := true
	for _, c := range m.components {
		switch {
		case c.Status == StatusFailed:
			return StatusFailed
		case c.Status == StatusDegraded:
			anyDegraded = true
			allHealthy = false
		case c.Status != StatusHealthy:
			allHealthy = false
		}
	}
	if anyDegraded {
		return StatusDegraded
	}
	if allHealthy {
		return StatusHealthy
	}
	return StatusDegraded
}

// Snapshot returns a copy of one component's health.
func (m *Monitor) Snapshot(name string) (ComponentHealth, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.components[name]
	if !ok {
		return ComponentHealth{}, false
	}
	return c.snapshot(), true
}

// All returns snapshots of every component, sorted by name.
func (m *Monitor) All() []ComponentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ComponentHealth, 0, len(m.components))
	for _, c := range m.components {
		out = append(out, c.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Summary is a serializable system-health rollup for dashboards.
type Summary struct {
	Status         Status                  `json:"status"`
	Components     int                     `json:"components"`
	StatusCounts   map[Status]int          `json:"status_counts"`
	SeverityCounts map[faults.Severity]int `json:"severity_counts"`
	CriticalIssues []Issue                 `json:"critical_issues,omitempty"`
	ErrorIssues    []Issue                 `json:"error_issues,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
}

// Summarize builds a system-wide health summary.
func (m *Monitor) Summarize() Summary {
	status := m.SystemStatus()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		Status:         status,
		Components:     len(m.components),
		StatusCounts:   make(map[Status]int),
		SeverityCounts: make(map[faults.Severity]int),
		Timestamp:      time.Now(),
	}
	for _, c := range m.components {
		s.StatusCounts[c.Status]++
		for _, issue := range c.Issues {
			s.SeverityCounts[issue.Severity]++
			switch issue.Severity {
			case faults.SeverityCritical:
				s.CriticalIssues = append(s.CriticalIssues, issue)
			case faults.SeverityError:
				s.ErrorIssues = append(s.ErrorIssues, issue)
			}
		}
	}
	return s
}

func (m *Monitor) getOrCreate(name string) *ComponentHealth {
	c, ok := m.components[name]
	if !ok {
		c = newComponentHealth(name)
		m.components[name] = c
		m.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	}
	return c
}

func (m *Monitor) invoke(cb Callback, snap ComponentHealth) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("health callback panicked", logger.Fields(
				logger.FieldComponent, snap.Name, "panic", r,
			))
		}
	}()
	cb(snap)
}

func (m *Monitor) safeCheck(name string, checker Checker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panicked: %v", r)
			m.log.Error("health check panicked", logger.Fields(
				logger.FieldComponent, name, "panic", r,
			))
		}
	}()
	return checker.CheckHealth()
}

func containsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
