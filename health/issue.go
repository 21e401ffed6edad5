package health

import (
	"time"

	"github.com/google/uuid"

	"github.com/terrasense/mowkit/faults"
)

// Issue is a timestamped, severity-tagged record of an abnormal condition
// tied to a component. Issues are immutable once created.
type Issue struct {
	ID               string          `json:"id"`
	Description      string          `json:"description"`
	Severity         faults.Severity `json:"severity"`
	Timestamp        time.Time       `json:"timestamp"`
	Details          map[string]any  `json:"details,omitempty"`
	RelatedComponent string          `json:"related_component,omitempty"`
	ResolutionSteps  []string        `json:"resolution_steps,omitempty"`
}

// NewIssue creates an issue with a generated ID and the current timestamp.
func NewIssue(component, description string, severity faults.Severity) Issue {
	return Issue{
		ID:               uuid.NewString(),
		Description:      description,
		Severity:         severity,
		Timestamp:        time.Now(),
		RelatedComponent: component,
	}
}

// IssueFromError builds an issue from a fault or plain error.
func IssueFromError(component string, err error) Issue {
	issue := NewIssue(component, err.Error(), faults.SeverityOf(err))
	if code := faults.CodeOf(err); code != faults.CodeInternal {
		issue.Details = map[string]any{"fault_code": string(code)}
	}
	return issue
}

// WithDetails returns a copy of the issue with the given details attached.
func (i Issue) WithDetails(details map[string]any) Issue {
	i.Details = details
	return i
}

// WithResolutionSteps returns a copy of the issue with operator guidance.
func (i Issue) WithResolutionSteps(steps ...string) Issue {
	i.ResolutionSteps = steps
	return i
}
