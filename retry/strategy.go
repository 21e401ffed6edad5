package retry

import (
	"fmt"
	"math/rand"
	"time"
)

// Strategy names a backoff curve.
type Strategy string

const (
	// Fixed waits BaseDelay between every attempt.
	Fixed Strategy = "fixed"
	// Linear waits BaseDelay scaled by the attempt number.
	Linear Strategy = "linear"
	// Exponential doubles the delay with each attempt.
	Exponential Strategy = "exponential"
	// Fibonacci scales BaseDelay by the Fibonacci number of the attempt.
	Fibonacci Strategy = "fibonacci"
	// Random waits a uniform duration between BaseDelay and BaseDelay
	// scaled by the attempt number.
	Random Strategy = "random"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Fixed, Linear, Exponential, Fibonacci, Random:
		return Strategy(s), nil
	case "":
		return Exponential, nil
	default:
		return "", fmt.Errorf("unknown retry strategy %q", s)
	}
}

// baseDelay computes the unjittered delay for a 1-based attempt number.
func (s Strategy) baseDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch s {
	case Fixed:
		return base
	case Linear:
		return base * time.Duration(attempt)
	case Exponential:
		return base << (attempt - 1)
	case Fibonacci:
		return base * time.Duration(fib(attempt))
	case Random:
		lo, hi := float64(base), float64(base)*float64(attempt)
		return time.Duration(lo + rand.Float64()*(hi-lo))
	default:
		return base
	}
}

// fib returns the attempt-th Fibonacci number with fib(1) = fib(2) = 1.
func fib(n int) int64 {
	if n <= 2 {
		return 1
	}
	var a, b int64 = 1, 1
	for i := 3; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}
