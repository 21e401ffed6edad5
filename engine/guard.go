package engine

import (
	"context"
	"errors"
	"time"

	"github.com/terrasense/mowkit/breaker"
	"github.com/terrasense/mowkit/faults"
	"github.com/terrasense/mowkit/health"
	"github.com/terrasense/mowkit/logger"
	"github.com/terrasense/mowkit/observability"
	"github.com/terrasense/mowkit/recovery"
	"github.com/terrasense/mowkit/retry"
)

// Guard protects one hardware call site: retries inside, breaker outside,
// with failures fanned out to health, degradation and recovery.
type Guard struct {
	eng     *Engine
	breaker *breaker.Breaker
	policy  retry.Policy

	component string
	sensor    string
	target    any
}

// Protect returns the guard for a call site. The breaker comes from the
// per-name config override when one exists, else from the hardware class
// preset; the retry policy is looked up by name in the policy engine.
func (e *Engine) Protect(component string, class breaker.HardwareClass, policy string) *Guard {
	var b *breaker.Breaker
	if spec, ok := e.cfg.Breakers.Overrides[component]; ok {
		cfg := spec.Apply(component)
		cfg.OnStateChange = e.onBreakerTransition
		b = e.Breakers.GetWithConfig(component, cfg)
	} else {
		cfg := breaker.ForClass(class, component)
		cfg.OnStateChange = e.onBreakerTransition
		b = e.Breakers.GetWithConfig(component, cfg)
	}

	p := e.Retry.Named(policy)
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.metrics.RecordRetry(context.Background(), policy, attempt, delay)
	}

	e.Health.Register(component)
	return &Guard{
		eng:       e,
		breaker:   b,
		policy:    p,
		component: component,
	}
}

// WithSensor ties the guard to a degradation sensor, so failures raise
// sensor-failure events and recoveries reverse them.
func (g *Guard) WithSensor(sensor string) *Guard {
	g.sensor = sensor
	return g
}

// WithTarget supplies the component object recovery strategies probe for
// capability interfaces. Without a target no recovery is attempted.
func (g *Guard) WithTarget(target any) *Guard {
	g.target = target
	return g
}

// Do runs the operation under retry and the breaker, blocking the caller.
func (g *Guard) Do(op func() error) error {
	start := time.Now()
	err := g.breaker.Do(func() error {
		res := g.policy.Do(op)
		return res.Err
	})
	g.settle(context.Background(), start, err)
	return err
}

// DoContext is Do with context-aware waits and cancellation.
func (g *Guard) DoContext(ctx context.Context, op func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanProtectedCall)
	observability.SetSpanAttribute(ctx, observability.AttrBreaker, g.component)
	defer span.End()

	start := time.Now()
	err := g.breaker.DoContext(ctx, func(ctx context.Context) error {
		res := g.policy.DoContext(ctx, op)
		return res.Err
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	g.settle(ctx, start, err)
	return err
}

// settle records the call and fans a failure out to the monitor, the
// degradation controller and the recovery registry.
func (g *Guard) settle(ctx context.Context, start time.Time, err error) {
	duration := time.Since(start)

	switch {
	case err == nil:
		g.eng.metrics.RecordCall(ctx, g.component, "ok", duration)
		g.eng.Health.UpdateHealth(g.component,
			health.WithStatus(health.StatusHealthy), health.ClearIssues())
		return
	case errors.Is(err, breaker.ErrOpen):
		// Rejections are not new evidence; the original failure already
		// went through the fan-out.
		g.eng.metrics.RecordCall(ctx, g.component, "rejected", duration)
		return
	}

	g.eng.metrics.RecordCall(ctx, g.component, "error", duration)
	g.eng.metrics.RecordFault(ctx, string(faults.CodeOf(err)), g.component)
	g.eng.Health.ReportFailure(g.component, err)
	if g.sensor != "" {
		g.eng.Degrade.HandleSensorFailure(g.sensor, err)
	}
	if g.target != nil {
		g.recoverAsync(err)
	}
}

// recoverAsync drives the recovery registry in the background and, on
// success, reverses the health and degradation effects of the failure.
func (g *Guard) recoverAsync(cause error) {
	e := g.eng
	fc := recovery.NewFailureContext(g.component, g.target, cause)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, span := observability.StartSpan(context.Background(), observability.SpanRecovery)
		observability.SetSpanAttribute(ctx, observability.AttrComponent, g.component)
		defer span.End()

		result, err := e.Recovery.Recover(ctx, fc)
		e.metrics.RecordRecovery(ctx, "chain", g.component, result.String())
		if err != nil {
			observability.SetSpanError(ctx, err)
		}

		if result != recovery.ResultSuccess {
			e.log.Warn("recovery did not restore component", logger.Fields(
				logger.FieldComponent, g.component,
				logger.FieldResult, result.String(),
			))
			return
		}

		e.Health.UpdateHealth(g.component,
			health.WithStatus(health.StatusHealthy), health.ClearIssues())
		if g.sensor != "" {
			e.Degrade.HandleSensorRecovery(g.sensor)
		}
		e.log.Info("component recovered", logger.Fields(
			logger.FieldComponent, g.component,
		))
	}()
}

// Call runs a value-returning operation under the guard.
func Call[T any](g *Guard, op func() (T, error)) (T, error) {
	var value T
	err := g.Do(func() error {
		v, err := op()
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, err
}
