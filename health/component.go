package health

import (
	"time"

	"github.com/terrasense/mowkit/faults"
)

// Status represents the health state of a component.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusFailed      Status = "failed"
	StatusStarting    Status = "starting"
	StatusStopping    Status = "stopping"
	StatusMaintenance Status = "maintenance"
)

// transitional reports whether the status is a non-steady lifecycle state.
func (s Status) transitional() bool {
	switch s {
	case StatusStarting, StatusStopping, StatusMaintenance, StatusUnknown:
		return true
	}
	return false
}

// ComponentHealth holds the health record for one component. It is mutated
// only under the owning Monitor's lock.
type ComponentHealth struct {
	Name         string         `json:"name"`
	Status       Status         `json:"status"`
	LastCheck    time.Time      `json:"last_check,omitzero"`
	StartTime    time.Time      `json:"start_time"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	Issues       []Issue        `json:"issues,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

func newComponentHealth(name string) *ComponentHealth {
	return &ComponentHealth{
		Name:      name,
		Status:    StatusUnknown,
		StartTime: time.Now(),
		Metrics:   make(map[string]any),
	}
}

// addIssue appends the issue and applies the severity-driven status
// transition: critical forces Failed, error degrades unless already Failed,
// warning degrades only a Healthy component.
func (c *ComponentHealth) addIssue(issue Issue) {
	c.Issues = append(c.Issues, issue)

	switch issue.Severity {
	case faults.SeverityCritical:
		c.Status = StatusFailed
	case faults.SeverityError:
		if c.Status != StatusFailed {
			c.Status = StatusDegraded
		}
	case faults.SeverityWarning:
		if c.Status == StatusHealthy {
			c.Status = StatusDegraded
		}
	}
}

// clearIssues drops the issue list. The status is left untouched: clearing
// records never auto-downgrades a component.
func (c *ComponentHealth) clearIssues() {
	c.Issues = nil
}

// snapshot returns a deep-enough copy safe to hand to callbacks and
// external consumers.
func (c *ComponentHealth) snapshot() ComponentHealth {
	out := *c
	out.Metrics = make(map[string]any, len(c.Metrics))
	for k, v := range c.Metrics {
		out.Metrics[k] = v
	}
	out.Issues = append([]Issue(nil), c.Issues...)
	out.Dependencies = append([]string(nil), c.Dependencies...)
	return out
}
