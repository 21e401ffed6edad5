package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/terrasense/mowkit/logger"
)

// Policy configures retry behavior for one call site.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// Strategy selects the backoff curve.
	Strategy Strategy
	// BaseDelay seeds the backoff curve.
	BaseDelay time.Duration
	// MaxDelay caps every computed delay. Zero means no cap.
	MaxDelay time.Duration
	// Jitter adds a uniform offset in [-delay*JitterFactor, +delay*JitterFactor].
	Jitter bool
	// JitterFactor controls jitter width; defaults to 0.1 when Jitter is set.
	JitterFactor float64
	// RetryIf classifies errors. Errors it rejects propagate immediately
	// without consuming an attempt. Nil means every error is retried.
	RetryIf func(error) bool
	// OnRetry is called before each wait, best-effort: a panic inside the
	// hook is recovered and logged.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns sensible defaults for hardware reads.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    Exponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Result reports the outcome of a retried operation.
type Result struct {
	// Success is true if some attempt returned nil.
	Success bool `json:"success"`
	// Attempts is the number of times the operation was invoked.
	Attempts int `json:"attempts"`
	// TotalDelay is the summed wait time between attempts.
	TotalDelay time.Duration `json:"total_delay"`
	// Err is the error from the final attempt on failure.
	Err error `json:"-"`
}

// Delay computes the wait after a failed 1-based attempt. Both call paths
// use this single computation, so blocking and context-aware execution
// produce identical delay sequences.
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.Strategy.baseDelay(attempt, p.BaseDelay)

	if p.Jitter {
		factor := p.JitterFactor
		if factor <= 0 {
			factor = 0.1
		}
		width := float64(d) * factor
		d += time.Duration((rand.Float64()*2 - 1) * width)
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Do runs op up to MaxAttempts times, sleeping between attempts.
func (p *Policy) Do(op func() error) Result {
	return p.run(func(d time.Duration) error {
		time.Sleep(d)
		return nil
	}, func() error { return op() })
}

// DoContext runs op up to MaxAttempts times. Waits suspend on a timer and
// honor context cancellation without blocking sibling goroutines.
func (p *Policy) DoContext(ctx context.Context, op func(context.Context) error) Result {
	return p.run(func(d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return op(ctx)
	})
}

// Execute runs a value-returning operation under a policy.
func Execute[T any](p *Policy, op func() (T, error)) (T, Result) {
	var value T
	res := p.Do(func() error {
		var err error
		value, err = op()
		return err
	})
	return value, res
}

// ExecuteContext runs a value-returning operation under a policy with a context.
func ExecuteContext[T any](ctx context.Context, p *Policy, op func(context.Context) (T, error)) (T, Result) {
	var value T
	res := p.DoContext(ctx, func(ctx context.Context) error {
		var err error
		value, err = op(ctx)
		return err
	})
	return value, res
}

// run is the shared retry loop. wait performs the inter-attempt delay and
// may fail (context cancellation), aborting the loop.
func (p *Policy) run(wait func(time.Duration) error, op func() error) Result {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var res Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		res.Attempts = attempt
		if err == nil {
			res.Success = true
			return res
		}
		res.Err = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			return res
		}
		if attempt == maxAttempts {
			return res
		}

		delay := p.Delay(attempt)
		p.notifyRetry(attempt, err, delay)

		if waitErr := wait(delay); waitErr != nil {
			res.Err = waitErr
			return res
		}
		res.TotalDelay += delay
	}
	return res
}

func (p *Policy) notifyRetry(attempt int, err error, delay time.Duration) {
	if p.OnRetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Get("retry").Error("retry hook panicked", logger.Fields(
				logger.FieldAttempt, attempt, "panic", r,
			))
		}
	}()
	p.OnRetry(attempt, err, delay)
}
