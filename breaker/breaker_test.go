package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errHardware = errors.New("hardware fault")

func failingOp() error { return errHardware }

func TestBreaker_StartsClosed(t *testing.T) {
	b := New(DefaultConfig("test"))

	if b.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", b.State())
	}
}

func TestBreaker_OpensAtExactlyThreshold(t *testing.T) {
	b := New(Config{Name: "test", FailureThreshold: 3, Timeout: time.Hour})

	// N-1 failures never open the circuit.
	for i := 0; i < 2; i++ {
		_ = b.Do(failingOp)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected StateClosed after 2 failures, got %s", b.State())
	}

	// The Nth failure opens it.
	_ = b.Do(failingOp)
	if b.State() != StateOpen {
		t.Errorf("expected StateOpen after 3 failures, got %s", b.State())
	}
}

func TestBreaker_OpenRejectsWithoutInvoking(t *testing.T) {
	b := New(Config{Name: "test", FailureThreshold: 1, Timeout: time.Hour})
	_ = b.Do(failingOp)

	err := b.Do(func() error {
		t.Error("operation should not have been invoked")
		return nil
	})

	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}

	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatal("expected *OpenError")
	}
	if oe.Name != "test" || oe.Failures != 1 {
		t.Errorf("unexpected OpenError contents: %+v", oe)
	}
	if oe.RemainingTimeout <= 0 {
		t.Errorf("expected positive remaining timeout, got %s", oe.RemainingTimeout)
	}
}

func TestBreaker_FailuresAreReRaised(t *testing.T) {
	b := New(Config{Name: "test", FailureThreshold: 5, Timeout: time.Hour})

	if err := b.Do(failingOp); !errors.Is(err, errHardware) {
		t.Errorf("expected original error, got %v", err)
	}
}

func TestBreaker_HalfOpenProbeAfterTimeout(t *testing.T) {
	b := New(Config{
		Name:                     "test",
		FailureThreshold:         1,
		Timeout:                  30 * time.Millisecond,
		HalfOpenSuccessThreshold: 1,
	})
	_ = b.Do(failingOp)

	time.Sleep(40 * time.Millisecond)

	if b.State() != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %s", b.State())
	}

	invoked := false
	if err := b.Do(func() error { invoked = true; return nil }); err != nil {
		t.Errorf("expected probe to succeed, got %v", err)
	}
	if !invoked {
		t.Error("probe was not invoked")
	}
	if b.State() != StateClosed {
		t.Errorf("expected StateClosed after probe success, got %s", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("expected counters zeroed, got %d failures", b.Failures())
	}
}

func TestBreaker_FailingProbeReopensWithTimerReset(t *testing.T) {
	b := New(Config{Name: "test", FailureThreshold: 1, Timeout: 30 * time.Millisecond})
	_ = b.Do(failingOp)

	time.Sleep(40 * time.Millisecond)
	_ = b.Do(failingOp) // failing probe

	if b.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", b.State())
	}

	// The timer restarted at the probe failure, so an immediate call is
	// still rejected.
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen right after reopening, got %v", err)
	}
}

func TestBreaker_HalfOpenSuccessThreshold(t *testing.T) {
	b := New(Config{
		Name:                     "test",
		FailureThreshold:         1,
		Timeout:                  20 * time.Millisecond,
		HalfOpenSuccessThreshold: 3,
	})
	_ = b.Do(failingOp)
	time.Sleep(30 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d rejected: %v", i+1, err)
		}
		if b.State() != StateHalfOpen {
			t.Fatalf("expected StateHalfOpen after %d successes, got %s", i+1, b.State())
		}
	}

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("third probe rejected: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected StateClosed after 3 probe successes, got %s", b.State())
	}
}

func TestBreaker_FailureWindowPruning(t *testing.T) {
	b := New(Config{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          time.Hour,
		FailureWindow:    50 * time.Millisecond,
	})

	_ = b.Do(failingOp)
	time.Sleep(60 * time.Millisecond) // outside the window

	// threshold-1 more failures must NOT open the circuit: the first
	// failure has aged out.
	_ = b.Do(failingOp)
	_ = b.Do(failingOp)

	if b.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", b.State())
	}
	if b.Failures() != 2 {
		t.Errorf("expected 2 failures in window, got %d", b.Failures())
	}
}

func TestBreaker_UnmatchedErrorsBypassBookkeeping(t *testing.T) {
	errIgnored := errors.New("not a hardware fault")
	b := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		Timeout:          time.Hour,
		ShouldTrip:       func(err error) bool { return errors.Is(err, errHardware) },
	})

	if err := b.Do(func() error { return errIgnored }); !errors.Is(err, errIgnored) {
		t.Fatalf("expected error to propagate unchanged, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("expected 0 failures, got %d", b.Failures())
	}

	// A matched failure still trips.
	_ = b.Do(failingOp)
	if b.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", b.State())
	}
}

func TestBreaker_ResetTimeoutSelfHeal(t *testing.T) {
	b := New(Config{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          time.Hour,
		ResetTimeout:     30 * time.Millisecond,
	})

	_ = b.Do(failingOp)
	_ = b.Do(failingOp)
	if b.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", b.Failures())
	}

	time.Sleep(40 * time.Millisecond)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Failures() != 0 {
		t.Errorf("expected failure count self-healed to 0, got %d", b.Failures())
	}
}

func TestBreaker_FallbackWhileOpen(t *testing.T) {
	fallbackCalled := false
	b := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		Timeout:          time.Hour,
		Fallback: func(err error) error {
			fallbackCalled = true
			if !errors.Is(err, ErrOpen) {
				t.Errorf("fallback expected ErrOpen, got %v", err)
			}
			return nil
		},
	})
	_ = b.Do(failingOp)

	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("expected fallback to absorb rejection, got %v", err)
	}
	if !fallbackCalled {
		t.Error("fallback was not invoked")
	}
}

// Scenario: threshold=2, timeout=100ms around a function failing twice then
// succeeding.
func TestBreaker_OpenAndRecoverLifecycle(t *testing.T) {
	b := New(Config{Name: "drive", FailureThreshold: 2, Timeout: 100 * time.Millisecond})

	calls := 0
	op := func() error {
		calls++
		if calls <= 2 {
			return errHardware
		}
		return nil
	}

	// Calls 1-2 raise and open the circuit.
	for i := 0; i < 2; i++ {
		if err := b.Do(op); !errors.Is(err, errHardware) {
			t.Fatalf("call %d: expected hardware error, got %v", i+1, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", b.State())
	}

	// Call 3 is rejected without invoking the operation.
	if err := b.Do(op); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected operation not invoked while open, calls=%d", calls)
	}

	// After the timeout, call 4 succeeds and closes the circuit.
	time.Sleep(150 * time.Millisecond)
	if err := b.Do(op); err != nil {
		t.Fatalf("call 4: expected success, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", b.State())
	}
}

func TestBreaker_DoContextRespectsCancellation(t *testing.T) {
	b := New(DefaultConfig("test"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.DoContext(ctx, func(context.Context) error {
		t.Error("operation should not run on a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var transitions []struct{ from, to State }

	b := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		Timeout:          time.Hour,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			transitions = append(transitions, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	})
	_ = b.Do(failingOp)

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	if transitions[0].from != StateClosed || transitions[0].to != StateOpen {
		t.Errorf("expected Closed->Open, got %s->%s", transitions[0].from, transitions[0].to)
	}
}

func TestBreaker_ConcurrentFailuresSingleTransition(t *testing.T) {
	var mu sync.Mutex
	opens := 0

	b := New(Config{
		Name:             "test",
		FailureThreshold: 10,
		Timeout:          time.Hour,
		OnStateChange: func(name string, from, to State) {
			if to == StateOpen {
				mu.Lock()
				opens++
				mu.Unlock()
			}
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Do(failingOp)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if opens != 1 {
		t.Errorf("expected exactly one open transition, got %d", opens)
	}
	if b.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", b.State())
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	b := New(DefaultConfig("test"))

	got, err := Call(b, func() (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestCallWithFallback_SubstitutesWhileOpen(t *testing.T) {
	b := New(Config{Name: "test", FailureThreshold: 1, Timeout: time.Hour})
	_ = b.Do(failingOp)

	got, err := CallWithFallback(b,
		func() (string, error) { return "primary", nil },
		func() (string, error) { return "cached", nil },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cached" {
		t.Errorf("expected cached fallback value, got %q", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
