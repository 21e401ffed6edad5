// Package faults provides unified error handling for hardware failures.
//
// It defines FaultError, a structured error type carrying a machine-readable
// fault code, a severity, and a retryable flag. Retry policies and circuit
// breakers classify errors through IsRetryable and IsTransient rather than
// matching concrete error types, so callers can wrap driver errors from any
// source.
//
//	err := faults.BusTimeout("i2c-1", cause)
//	if faults.IsRetryable(err) { ... }
package faults
