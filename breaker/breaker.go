package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited probe requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is the sentinel matched by errors.Is for rejected calls.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected by an open breaker.
// It carries enough context for operator tooling to diagnose the rejection
// without reading logs.
type OpenError struct {
	Name             string
	Failures         int
	RemainingTimeout time.Duration
}

// Error returns the string representation of the rejection.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open (%d failures, retry in %s)",
		e.Name, e.Failures, e.RemainingTimeout.Round(time.Millisecond))
}

// Is lets errors.Is(err, ErrOpen) match an *OpenError.
func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// Config configures a circuit breaker.
type Config struct {
	// Name identifies this breaker for logging and status export.
	Name string
	// FailureThreshold is the number of matched failures before opening.
	FailureThreshold int
	// Timeout is how long an open breaker waits before allowing a probe.
	Timeout time.Duration
	// FailureWindow, when positive, counts only failures inside a trailing
	// window instead of monotonically. Pruning is lazy: old timestamps are
	// dropped when the next failure is recorded, not on a background timer.
	FailureWindow time.Duration
	// HalfOpenSuccessThreshold is the number of consecutive probe successes
	// required to close the breaker.
	HalfOpenSuccessThreshold int
	// ResetTimeout, when positive, zeroes the failure count on a success in
	// the closed state once that much time has passed since the last failure.
	ResetTimeout time.Duration
	// ShouldTrip classifies errors. Errors it rejects bypass all bookkeeping
	// and propagate unchanged. Nil means every error counts.
	ShouldTrip func(error) bool
	// Fallback, when set, is invoked instead of returning an OpenError while
	// the breaker is open.
	Fallback func(err error) error
	// OnStateChange is called after each state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns sensible defaults for a generic call site.
func DefaultConfig(name string) Config {
	return Config{
		Name:                     name,
		FailureThreshold:         5,
		Timeout:                  30 * time.Second,
		HalfOpenSuccessThreshold: 1,
	}
}

// Breaker guards a single hardware call site. All state is held behind one
// mutex; Do and DoContext are thin wrappers over the same transitions.
type Breaker struct {
	cfg Config

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
	failureTimes    []time.Time
	probeInflight   int
}

// New creates a circuit breaker.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenSuccessThreshold <= 0 {
		cfg.HalfOpenSuccessThreshold = 1
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Do runs op through the breaker. While open it invokes the configured
// fallback, or returns an *OpenError if none is set, without calling op.
// Matched failures are recorded and re-returned; the breaker is transparent
// to failures and opaque only when already open.
func (b *Breaker) Do(op func() error) error {
	if err := b.acquire(); err != nil {
		if b.cfg.Fallback != nil {
			return b.cfg.Fallback(err)
		}
		return err
	}

	err := op()
	b.settle(err)
	return err
}

// DoContext runs op through the breaker with a context. The context is
// checked before acquiring a slot so cancelled callers never consume a
// half-open probe.
func (b *Breaker) DoContext(ctx context.Context, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.acquire(); err != nil {
		if b.cfg.Fallback != nil {
			return b.cfg.Fallback(err)
		}
		return err
	}

	err := op(ctx)
	b.settle(err)
	return err
}

// Call runs a value-returning operation through a breaker.
func Call[T any](b *Breaker, op func() (T, error)) (T, error) {
	var result T
	err := b.Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}

// CallWithFallback runs a value-returning operation, substituting fallback
// while the breaker is open.
func CallWithFallback[T any](b *Breaker, op func() (T, error), fallback func() (T, error)) (T, error) {
	result, err := Call(b, op)
	if errors.Is(err, ErrOpen) {
		return fallback()
	}
	return result, err
}

// State returns the current state, applying the open-to-half-open timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailureTime) >= b.cfg.Timeout {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.cfg.Name }

// Reset forces the breaker back to closed and zeroes all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toState(StateClosed)
	b.clearCounters()
}

// Status is a serializable snapshot of breaker state for dashboards.
type Status struct {
	Name             string        `json:"name"`
	State            string        `json:"state"`
	Failures         int           `json:"failures"`
	Successes        int           `json:"successes"`
	LastFailure      time.Time     `json:"last_failure,omitzero"`
	RemainingTimeout time.Duration `json:"remaining_timeout,omitempty"`
}

// Status returns a snapshot of the breaker.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		Name:        b.cfg.Name,
		State:       b.state.String(),
		Failures:    b.failures,
		Successes:   b.successes,
		LastFailure: b.lastFailureTime,
	}
	if b.state == StateOpen {
		if remaining := b.cfg.Timeout - time.Since(b.lastFailureTime); remaining > 0 {
			st.RemainingTimeout = remaining
		}
	}
	return st
}

// acquire decides whether a call may proceed. It performs the lazy
// open-to-half-open transition and limits half-open probes to one in flight.
func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		elapsed := time.Since(b.lastFailureTime)
		if elapsed < b.cfg.Timeout {
			return &OpenError{
				Name:             b.cfg.Name,
				Failures:         b.failures,
				RemainingTimeout: b.cfg.Timeout - elapsed,
			}
		}
		b.toState(StateHalfOpen)
		b.probeInflight++
		return nil
	case StateHalfOpen:
		if b.probeInflight >= 1 {
			return &OpenError{Name: b.cfg.Name, Failures: b.failures}
		}
		b.probeInflight++
		return nil
	default:
		return &OpenError{Name: b.cfg.Name, Failures: b.failures}
	}
}

// settle records the outcome of a call that was allowed through.
func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.probeInflight > 0 {
		b.probeInflight--
	}

	if err == nil {
		b.onSuccess()
		return
	}
	if b.cfg.ShouldTrip != nil && !b.cfg.ShouldTrip(err) {
		// Unmatched errors bypass all bookkeeping.
		return
	}
	b.onFailure()
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		if b.cfg.ResetTimeout > 0 && !b.lastFailureTime.IsZero() &&
			time.Since(b.lastFailureTime) >= b.cfg.ResetTimeout {
			b.failures = 0
			b.failureTimes = nil
		}
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenSuccessThreshold {
			b.toState(StateClosed)
			b.clearCounters()
		}
	}
}

func (b *Breaker) onFailure() {
	now := time.Now()
	b.lastFailureTime = now

	if b.cfg.FailureWindow > 0 {
		b.failureTimes = append(b.failureTimes, now)
		cutoff := now.Add(-b.cfg.FailureWindow)
		kept := b.failureTimes[:0]
		for _, ts := range b.failureTimes {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		b.failureTimes = kept
		b.failures = len(kept)
	} else {
		b.failures++
	}

	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.toState(StateOpen)
		}
	case StateHalfOpen:
		b.toState(StateOpen)
	}
}

func (b *Breaker) clearCounters() {
	b.failures = 0
	b.successes = 0
	b.failureTimes = nil
	b.probeInflight = 0
	b.lastFailureTime = time.Time{}
}

func (b *Breaker) toState(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	switch to {
	case StateHalfOpen:
		b.successes = 0
		b.probeInflight = 0
	case StateOpen:
		b.successes = 0
		b.probeInflight = 0
	}

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}
