package retry

import (
	"testing"
	"time"
)

func TestEngine_NamedFallsBackToDefault(t *testing.T) {
	e := NewEngine(Policy{MaxAttempts: 7, Strategy: Fixed, BaseDelay: time.Millisecond})

	p := e.Named("no-such-policy")
	if p.MaxAttempts != 7 {
		t.Errorf("expected default policy, got MaxAttempts=%d", p.MaxAttempts)
	}
}

func TestEngine_RegisterAndNamed(t *testing.T) {
	e := NewEngine(DefaultPolicy())
	e.Register("gps-read", Policy{MaxAttempts: 2, Strategy: Linear, BaseDelay: time.Millisecond})

	p := e.Named("gps-read")
	if p.MaxAttempts != 2 || p.Strategy != Linear {
		t.Errorf("unexpected policy %+v", p)
	}
}

func TestEngine_SetDefaultUnknown(t *testing.T) {
	e := NewEngine(DefaultPolicy())
	if err := e.SetDefault("missing"); err == nil {
		t.Error("expected error for unknown default")
	}
}

func TestEngine_LoadSpecs(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	specs := []PolicySpec{
		{Name: "default", MaxAttempts: 5, Strategy: "exponential", BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second},
		{Name: "motor-command", MaxAttempts: 2, Strategy: "fixed", BaseDelay: 200 * time.Millisecond},
	}

	calls := 0
	retryIf := func(error) bool { calls++; return true }

	if err := e.Load(specs, retryIf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Default().MaxAttempts != 5 {
		t.Errorf("expected loaded default, got MaxAttempts=%d", e.Default().MaxAttempts)
	}

	p := e.Named("motor-command")
	if p.Strategy != Fixed || p.MaxAttempts != 2 {
		t.Errorf("unexpected policy %+v", p)
	}
	if p.RetryIf == nil {
		t.Fatal("expected classifier attached")
	}
	p.RetryIf(nil)
	if calls != 1 {
		t.Error("expected supplied classifier to be wired")
	}
}

func TestEngine_LoadRejectsBadSpec(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	err := e.Load([]PolicySpec{{Name: "bad", MaxAttempts: 0}}, nil)
	if err == nil {
		t.Error("expected error for max_attempts=0")
	}

	err = e.Load([]PolicySpec{{Name: "bad", MaxAttempts: 1, Strategy: "quadratic"}}, nil)
	if err == nil {
		t.Error("expected error for unknown strategy")
	}
}
