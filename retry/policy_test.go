package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky read")

func TestPolicy_SucceedsOnFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, Strategy: Fixed, BaseDelay: time.Millisecond}
	calls := 0

	res := p.Do(func() error {
		calls++
		return nil
	})

	if !res.Success {
		t.Error("expected success")
	}
	if res.Attempts != 1 || calls != 1 {
		t.Errorf("expected 1 attempt, got attempts=%d calls=%d", res.Attempts, calls)
	}
	if res.TotalDelay != 0 {
		t.Errorf("expected no delay, got %s", res.TotalDelay)
	}
}

// Scenario: max_attempts=3, fixed base=10ms, no jitter, failing twice then
// returning "ok".
func TestExecute_SucceedsAfterRetries(t *testing.T) {
	p := Policy{MaxAttempts: 3, Strategy: Fixed, BaseDelay: 10 * time.Millisecond}
	calls := 0

	value, res := Execute(&p, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}
		return "ok", nil
	})

	if !res.Success {
		t.Error("expected success")
	}
	if value != "ok" {
		t.Errorf("expected value ok, got %q", value)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if res.TotalDelay < 20*time.Millisecond {
		t.Errorf("expected at least 20ms total delay, got %s", res.TotalDelay)
	}
}

func TestPolicy_AlwaysFailingInvokesExactlyMaxAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 4, Strategy: Fixed, BaseDelay: time.Millisecond}
	calls := 0

	res := p.Do(func() error {
		calls++
		return errFlaky
	})

	if res.Success {
		t.Error("expected failure")
	}
	if calls != 4 || res.Attempts != 4 {
		t.Errorf("expected exactly 4 invocations, got calls=%d attempts=%d", calls, res.Attempts)
	}
	if !errors.Is(res.Err, errFlaky) {
		t.Errorf("expected original error, got %v", res.Err)
	}
}

func TestPolicy_UnmatchedErrorPropagatesImmediately(t *testing.T) {
	errFatal := errors.New("motor stall")
	p := Policy{
		MaxAttempts: 5,
		Strategy:    Fixed,
		BaseDelay:   time.Millisecond,
		RetryIf:     func(err error) bool { return errors.Is(err, errFlaky) },
	}
	calls := 0

	res := p.Do(func() error {
		calls++
		return errFatal
	})

	if calls != 1 {
		t.Errorf("expected 1 invocation for non-retryable error, got %d", calls)
	}
	if !errors.Is(res.Err, errFatal) {
		t.Errorf("expected errFatal, got %v", res.Err)
	}
}

func TestPolicy_DelaySequences(t *testing.T) {
	base := time.Second

	tests := []struct {
		strategy Strategy
		attempt  int
		want     time.Duration
	}{
		{Fixed, 1, time.Second},
		{Fixed, 5, time.Second},
		{Linear, 1, time.Second},
		{Linear, 3, 3 * time.Second},
		{Exponential, 1, time.Second},
		{Exponential, 2, 2 * time.Second},
		{Exponential, 3, 4 * time.Second},
		{Exponential, 4, 8 * time.Second},
		{Fibonacci, 1, time.Second},
		{Fibonacci, 2, time.Second},
		{Fibonacci, 3, 2 * time.Second},
		{Fibonacci, 4, 3 * time.Second},
		{Fibonacci, 5, 5 * time.Second},
		{Fibonacci, 6, 8 * time.Second},
	}

	for _, tt := range tests {
		p := Policy{Strategy: tt.strategy, BaseDelay: base}
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("%s attempt %d: expected %s, got %s", tt.strategy, tt.attempt, tt.want, got)
		}
	}
}

func TestPolicy_RandomDelayWithinBounds(t *testing.T) {
	p := Policy{Strategy: Random, BaseDelay: 100 * time.Millisecond}

	for attempt := 1; attempt <= 5; attempt++ {
		for i := 0; i < 50; i++ {
			d := p.Delay(attempt)
			lo := p.BaseDelay
			hi := p.BaseDelay * time.Duration(attempt)
			if d < lo || d > hi {
				t.Fatalf("attempt %d: delay %s outside [%s, %s]", attempt, d, lo, hi)
			}
		}
	}
}

func TestPolicy_DelayClampedToMaxDelay(t *testing.T) {
	p := Policy{
		Strategy:  Exponential,
		BaseDelay: time.Second,
		MaxDelay:  3 * time.Second,
		Jitter:    true,
	}

	for attempt := 1; attempt <= 12; attempt++ {
		d := p.Delay(attempt)
		if d < 0 || d > p.MaxDelay {
			t.Fatalf("attempt %d: delay %s outside [0, %s]", attempt, d, p.MaxDelay)
		}
	}
}

func TestPolicy_JitterStaysNearBase(t *testing.T) {
	p := Policy{Strategy: Fixed, BaseDelay: 100 * time.Millisecond, Jitter: true, JitterFactor: 0.5}

	for i := 0; i < 100; i++ {
		d := p.Delay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %s outside expected band", d)
		}
	}
}

func TestPolicy_OnRetryHook(t *testing.T) {
	var attempts []int
	var delays []time.Duration

	p := Policy{
		MaxAttempts: 3,
		Strategy:    Fixed,
		BaseDelay:   time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	}

	_ = p.Do(func() error { return errFlaky })

	// Called before each wait, not after the final attempt.
	if len(attempts) != 2 {
		t.Fatalf("expected 2 hook calls, got %d", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
	for _, d := range delays {
		if d != time.Millisecond {
			t.Errorf("expected 1ms delay reported, got %s", d)
		}
	}
}

func TestPolicy_OnRetryPanicIsRecovered(t *testing.T) {
	p := Policy{
		MaxAttempts: 2,
		Strategy:    Fixed,
		BaseDelay:   time.Millisecond,
		OnRetry:     func(int, error, time.Duration) { panic("hook bug") },
	}

	res := p.Do(func() error { return errFlaky })

	if res.Attempts != 2 {
		t.Errorf("expected the loop to survive the hook panic, attempts=%d", res.Attempts)
	}
}

func TestPolicy_DoContextCancelledDuringWait(t *testing.T) {
	p := Policy{MaxAttempts: 10, Strategy: Fixed, BaseDelay: 100 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	calls := 0
	res := p.DoContext(ctx, func(context.Context) error {
		calls++
		return errFlaky
	})

	if res.Success {
		t.Error("expected failure")
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", res.Err)
	}
	if calls >= 10 {
		t.Errorf("expected cancellation to cut the loop short, calls=%d", calls)
	}
}

func TestPolicy_BothPathsSameDelaySequence(t *testing.T) {
	p := Policy{MaxAttempts: 5, Strategy: Exponential, BaseDelay: time.Millisecond}

	collect := func(do func(hook func(int, error, time.Duration))) []time.Duration {
		var delays []time.Duration
		do(func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		})
		return delays
	}

	sync := collect(func(hook func(int, error, time.Duration)) {
		q := p
		q.OnRetry = hook
		_ = q.Do(func() error { return errFlaky })
	})
	async := collect(func(hook func(int, error, time.Duration)) {
		q := p
		q.OnRetry = hook
		_ = q.DoContext(context.Background(), func(context.Context) error { return errFlaky })
	})

	if len(sync) != len(async) {
		t.Fatalf("delay counts differ: %d vs %d", len(sync), len(async))
	}
	for i := range sync {
		if sync[i] != async[i] {
			t.Errorf("delay %d differs: %s vs %s", i, sync[i], async[i])
		}
	}
}

func TestParseStrategy(t *testing.T) {
	if _, err := ParseStrategy("fibonacci"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if s, err := ParseStrategy(""); err != nil || s != Exponential {
		t.Errorf("expected empty string to default to exponential, got %s, %v", s, err)
	}
	if _, err := ParseStrategy("quadratic"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
