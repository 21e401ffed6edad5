package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments the resilience engine reports into.
type Metrics struct {
	callTotal          metric.Int64Counter
	callDuration       metric.Float64Histogram
	breakerTransitions metric.Int64Counter
	retryAttempts      metric.Int64Counter
	retryDelay         metric.Float64Histogram
	recoveryAttempts   metric.Int64Counter
	degradationLevel   metric.Int64Gauge
	faultTotal         metric.Int64Counter
}

// NewMetrics creates the instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	callTotal, err := meter.Int64Counter("mowkit.call.total",
		metric.WithDescription("Protected calls by breaker and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating call.total counter: %w", err)
	}

	callDuration, err := meter.Float64Histogram("mowkit.call.duration",
		metric.WithDescription("Duration of protected calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating call.duration histogram: %w", err)
	}

	breakerTransitions, err := meter.Int64Counter("mowkit.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaker.transitions counter: %w", err)
	}

	retryAttempts, err := meter.Int64Counter("mowkit.retry.attempts",
		metric.WithDescription("Retry attempts by policy"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry.attempts counter: %w", err)
	}

	retryDelay, err := meter.Float64Histogram("mowkit.retry.delay",
		metric.WithDescription("Backoff delays in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry.delay histogram: %w", err)
	}

	recoveryAttempts, err := meter.Int64Counter("mowkit.recovery.attempts",
		metric.WithDescription("Recovery attempts by strategy and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating recovery.attempts counter: %w", err)
	}

	degradationLevel, err := meter.Int64Gauge("mowkit.degradation.level",
		metric.WithDescription("Current degradation level"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating degradation.level gauge: %w", err)
	}

	faultTotal, err := meter.Int64Counter("mowkit.fault.total",
		metric.WithDescription("Faults by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fault.total counter: %w", err)
	}

	return &Metrics{
		callTotal:          callTotal,
		callDuration:       callDuration,
		breakerTransitions: breakerTransitions,
		retryAttempts:      retryAttempts,
		retryDelay:         retryDelay,
		recoveryAttempts:   recoveryAttempts,
		degradationLevel:   degradationLevel,
		faultTotal:         faultTotal,
	}, nil
}

// RecordCall records a completed protected call.
func (m *Metrics) RecordCall(ctx context.Context, breaker, outcome string, duration time.Duration) {
	m.callTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", breaker),
		attribute.String("outcome", outcome),
	))
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("breaker", breaker),
	))
}

// RecordBreakerTransition records a state transition.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, from, to string) {
	m.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", breaker),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordRetry records one retry attempt and its backoff delay.
func (m *Metrics) RecordRetry(ctx context.Context, policy string, attempt int, delay time.Duration) {
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.Int("attempt", attempt),
	))
	m.retryDelay.Record(ctx, delay.Seconds(), metric.WithAttributes(
		attribute.String("policy", policy),
	))
}

// RecordRecovery records a recovery attempt outcome.
func (m *Metrics) RecordRecovery(ctx context.Context, strategy, component, result string) {
	m.recoveryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("component", component),
		attribute.String("result", result),
	))
}

// RecordDegradationLevel records the current degradation level.
func (m *Metrics) RecordDegradationLevel(ctx context.Context, level int) {
	m.degradationLevel.Record(ctx, int64(level))
}

// RecordFault records a classified fault.
func (m *Metrics) RecordFault(ctx context.Context, code, component string) {
	m.faultTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
