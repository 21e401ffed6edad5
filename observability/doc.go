// Package observability provides OpenTelemetry tracing and metrics for the
// resilience engine.
//
// Setup:
//
//	providers, err := observability.Init(ctx, observability.DefaultConfig("mower-7"))
//	defer providers.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("mowkit"))
//	metrics.RecordBreakerTransition(ctx, "drive-motor", "closed", "open")
//
// Tracing:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanProtectedCall)
//	defer span.End()
package observability
