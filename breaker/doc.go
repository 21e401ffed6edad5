// Package breaker implements the circuit breaker protecting calls into
// flaky mower hardware.
//
// A Breaker fails fast once a call site exceeds its failure threshold,
// probes the dependency again after a cooldown, and closes only after enough
// consecutive probe successes. The state machine is a single lock-protected
// data structure with two thin call paths, Do (blocking) and DoContext
// (context-aware), so both observe identical semantics.
//
// A Manager provides idempotent named-breaker creation and bulk operations.
// Presets tune thresholds per hardware class: motors get the fewest
// tolerated failures and the longest cooldown, sensors get more tolerance
// for transient noise.
//
//	b := breaker.New(breaker.ForClass(breaker.ClassMotor, "left-drive"))
//	err := b.Do(func() error { return motor.SetSpeed(0.5) })
package breaker
