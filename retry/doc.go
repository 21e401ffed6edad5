// Package retry implements the per-call-site retry policy engine.
//
// A Policy maps attempt numbers to delays through one of five backoff
// strategies (fixed, linear, exponential, fibonacci, random), optionally
// jittered, always clamped to [0, MaxDelay]. The blocking Do path and the
// context-aware DoContext path share the same delay computation, so both
// produce identical sequences.
//
// An Engine holds named policies loaded from declarative config, with a
// default policy for call sites that do not name one.
//
//	p := retry.Policy{MaxAttempts: 3, Strategy: retry.Exponential, BaseDelay: 100 * time.Millisecond}
//	res := p.Do(func() error { return sensor.Read() })
package retry
