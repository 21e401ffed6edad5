package recovery

import (
	"context"
	"time"

	"github.com/terrasense/mowkit/faults"
)

// Result is the outcome of a recovery attempt.
type Result int

const (
	// ResultSuccess means the component was fully recovered.
	ResultSuccess Result = iota
	// ResultPartial means the component improved but is not fully
	// recovered; the chain continues.
	ResultPartial
	// ResultFailed means the attempt ran and did not help.
	ResultFailed
	// ResultRetryLater means the attempt was gated by a cooldown.
	ResultRetryLater
	// ResultNotApplicable means the strategy cannot act on this failure.
	ResultNotApplicable
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultPartial:
		return "partial"
	case ResultFailed:
		return "failed"
	case ResultRetryLater:
		return "retry_later"
	case ResultNotApplicable:
		return "not_applicable"
	default:
		return "unknown"
	}
}

// FailureContext describes the failure a strategy is asked to repair.
// Target is the failing component object; strategies probe it for the
// capability interfaces they need.
type FailureContext struct {
	Component string
	Target    any
	Err       error
	Code      faults.FaultCode
	Details   map[string]any
	Timestamp time.Time
}

// NewFailureContext builds a context from a component name, its object
// and the observed error, deriving the fault code from the error.
func NewFailureContext(component string, target any, err error) FailureContext {
	return FailureContext{
		Component: component,
		Target:    target,
		Err:       err,
		Code:      faults.CodeOf(err),
		Timestamp: time.Now(),
	}
}

// Strategy is an automatic repair procedure. Priority orders strategies
// when recent success rates tie; lower runs first, so the most disruptive
// procedures carry the highest priorities.
type Strategy interface {
	Name() string
	Priority() int
	CanRecover(fc FailureContext) bool
	Recover(ctx context.Context, fc FailureContext) (Result, error)
}

// Attempt is one timestamped entry in a strategy's history.
type Attempt struct {
	Strategy  string
	Component string
	Result    Result
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

// Succeeded reports whether the attempt fully recovered the component.
func (a Attempt) Succeeded() bool { return a.Result == ResultSuccess }
