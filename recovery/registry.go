package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/terrasense/mowkit/logger"
)

const (
	defaultCooldown    = time.Minute
	defaultMaxAttempts = 3

	rateWindow = 24 * time.Hour
	capWindow  = time.Hour
)

type entry struct {
	strategy   Strategy
	cooldown   time.Duration
	maxPerHour int

	attempts []Attempt // append-only, executed attempts only
}

// RegisterOption tunes gating for a registered strategy.
type RegisterOption func(*entry)

// WithCooldown sets the minimum interval between attempts of the same
// strategy against the same component.
func WithCooldown(d time.Duration) RegisterOption {
	return func(e *entry) { e.cooldown = d }
}

// WithMaxAttemptsPerHour caps attempts of a strategy against a component
// in any trailing hour.
func WithMaxAttemptsPerHour(n int) RegisterOption {
	return func(e *entry) { e.maxPerHour = n }
}

// Registry holds recovery strategies, their attempt histories and
// per-component in-progress flags.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*entry
	inProgress map[string]bool
	log        *logger.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		entries:    make(map[string]*entry),
		inProgress: make(map[string]bool),
		log:        logger.Get("recovery"),
	}
}

// NewDefaultRegistry returns a registry preloaded with the built-in
// strategies under default gating.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ConnectionRecovery{})
	r.Register(&SensorRecalibration{})
	r.Register(&ServiceRestart{})
	r.Register(&HardwareReset{})
	return r
}

// Register adds a strategy. Re-registering a name replaces the strategy
// but keeps its history.
func (r *Registry) Register(s Strategy, opts ...RegisterOption) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[s.Name()]
	if !ok {
		e = &entry{cooldown: defaultCooldown, maxPerHour: defaultMaxAttempts}
		r.entries[s.Name()] = e
	}
	e.strategy = s
	for _, opt := range opts {
		opt(e)
	}
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attempt runs a single named strategy against the failure, applying the
// gating rules: NotApplicable when the strategy cannot act, RetryLater
// inside the cooldown, Failed without invocation once the trailing-hour
// cap is reached. Executed attempts are always recorded. A second Attempt
// for the same component while one is running returns RetryLater.
func (r *Registry) Attempt(ctx context.Context, name string, fc FailureContext) (Result, error) {
	r.mu.Lock()
	if r.inProgress[fc.Component] {
		r.mu.Unlock()
		return ResultRetryLater, nil
	}
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return ResultNotApplicable, fmt.Errorf("recovery: unknown strategy %q", name)
	}
	s := e.strategy
	if !s.CanRecover(fc) {
		r.mu.Unlock()
		return ResultNotApplicable, nil
	}
	if gate, reason := e.gate(fc.Component, time.Now()); gate != ResultSuccess {
		r.mu.Unlock()
		r.log.Warn("recovery attempt gated", logger.Fields(
			logger.FieldStrategy, name,
			logger.FieldComponent, fc.Component,
			logger.FieldResult, gate.String(),
			"reason", reason,
		))
		return gate, nil
	}
	r.inProgress[fc.Component] = true
	r.mu.Unlock()

	result, err := r.execute(ctx, e, s, fc)

	r.mu.Lock()
	r.inProgress[fc.Component] = false
	r.mu.Unlock()
	return result, err
}

// Recover tries every applicable strategy for the failure, most promising
// first: recent success rate descending, then the fixed priority order in
// which the least disruptive procedures come first. The chain stops at the
// first Success; Partial results continue it; gated strategies are
// skipped. A second Recover for the same component while one is running
// returns RetryLater immediately.
func (r *Registry) Recover(ctx context.Context, fc FailureContext) (Result, error) {
	now := time.Now()

	r.mu.Lock()
	if r.inProgress[fc.Component] {
		r.mu.Unlock()
		return ResultRetryLater, nil
	}

	type candidate struct {
		e    *entry
		rate float64
	}
	var candidates []candidate
	for _, e := range r.entries {
		if e.strategy.CanRecover(fc) {
			candidates = append(candidates, candidate{e, e.successRate(now)})
		}
	}
	if len(candidates) == 0 {
		r.mu.Unlock()
		return ResultNotApplicable, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].e.strategy.Priority() < candidates[j].e.strategy.Priority()
	})
	r.inProgress[fc.Component] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inProgress[fc.Component] = false
		r.mu.Unlock()
	}()

	sawPartial := false
	allGated := true
	var lastErr error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return ResultRetryLater, err
		}

		r.mu.Lock()
		gate, _ := c.e.gate(fc.Component, time.Now())
		r.mu.Unlock()
		if gate != ResultSuccess {
			continue
		}
		allGated = false

		result, err := r.execute(ctx, c.e, c.e.strategy, fc)
		switch result {
		case ResultSuccess:
			return ResultSuccess, nil
		case ResultPartial:
			sawPartial = true
		case ResultFailed:
			lastErr = err
		}
	}
	if sawPartial {
		return ResultPartial, nil
	}
	if allGated {
		return ResultRetryLater, nil
	}
	return ResultFailed, lastErr
}

// InProgress reports whether a recovery is running for the component.
func (r *Registry) InProgress(component string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inProgress[component]
}

// History returns a copy of a strategy's attempt records.
func (r *Registry) History(strategy string) []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[strategy]
	if !ok {
		return nil
	}
	return append([]Attempt(nil), e.attempts...)
}

// execute runs the strategy, converting panics to Failed, and records
// the attempt.
func (r *Registry) execute(ctx context.Context, e *entry, s Strategy, fc FailureContext) (result Result, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ResultFailed
			err = fmt.Errorf("recovery: strategy %s panicked: %v", s.Name(), rec)
		}
		attempt := Attempt{
			Strategy:  s.Name(),
			Component: fc.Component,
			Result:    result,
			Err:       err,
			Duration:  time.Since(start),
			Timestamp: start,
		}
		r.mu.Lock()
		e.attempts = append(e.attempts, attempt)
		r.mu.Unlock()

		r.log.Info("recovery attempt finished", logger.Fields(
			logger.FieldStrategy, s.Name(),
			logger.FieldComponent, fc.Component,
			logger.FieldResult, result.String(),
			logger.FieldDuration, attempt.Duration,
		))
	}()

	return s.Recover(ctx, fc)
}

// gate checks cooldown and the trailing-hour cap for a component. It
// returns ResultSuccess when the attempt may proceed. Callers hold r.mu.
func (e *entry) gate(component string, now time.Time) (Result, string) {
	var last time.Time
	inHour := 0
	for _, a := range e.attempts {
		if a.Component != component {
			continue
		}
		if a.Timestamp.After(last) {
			last = a.Timestamp
		}
		if now.Sub(a.Timestamp) <= capWindow {
			inHour++
		}
	}
	if !last.IsZero() && now.Sub(last) < e.cooldown {
		return ResultRetryLater, "inside cooldown"
	}
	if inHour >= e.maxPerHour {
		return ResultFailed, "hourly attempt cap reached"
	}
	return ResultSuccess, ""
}

// successRate is the fraction of successful attempts across all
// components in the trailing day. No history yields zero. Callers hold
// r.mu.
func (e *entry) successRate(now time.Time) float64 {
	total, ok := 0, 0
	for _, a := range e.attempts {
		if now.Sub(a.Timestamp) > rateWindow {
			continue
		}
		total++
		if a.Succeeded() {
			ok++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total)
}
