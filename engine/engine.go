package engine

import (
	"context"
	"sync"
	"time"

	"github.com/terrasense/mowkit/breaker"
	"github.com/terrasense/mowkit/config"
	"github.com/terrasense/mowkit/degrade"
	"github.com/terrasense/mowkit/faults"
	"github.com/terrasense/mowkit/health"
	"github.com/terrasense/mowkit/logger"
	"github.com/terrasense/mowkit/observability"
	"github.com/terrasense/mowkit/recovery"
	"github.com/terrasense/mowkit/retry"
	"github.com/terrasense/mowkit/version"
)

// Engine owns the resilience building blocks for one mower process.
type Engine struct {
	Breakers *breaker.Manager
	Retry    *retry.Engine
	Health   *health.Monitor
	Degrade  *degrade.Controller
	Recovery *recovery.Registry

	cfg       *config.Config
	metrics   *observability.Metrics
	providers *observability.Providers
	poller    *health.Poller
	log       *logger.Logger
	wg        sync.WaitGroup
}

// New builds an engine from a loaded configuration tree.
func New(cfg *config.Config) (*Engine, error) {
	logger.Init(cfg.Logging)

	e := &Engine{
		cfg:    cfg,
		Health: health.NewMonitor(),
		log:    logger.Get("engine"),
	}

	metrics, err := observability.NewMetrics(observability.Meter("mowkit"))
	if err != nil {
		return nil, err
	}
	e.metrics = metrics

	defaults := breaker.DefaultConfig("")
	if cfg.Breakers.Default != nil {
		defaults = cfg.Breakers.Default.Apply("")
	}
	defaults.OnStateChange = e.onBreakerTransition
	e.Breakers = breaker.NewManager(defaults)

	e.Retry = retry.NewEngine(retry.DefaultPolicy())
	if err := e.Retry.Load(cfg.Retry, faults.IsRetryable); err != nil {
		return nil, err
	}

	e.Degrade = degrade.NewController(cfg.Degradation...)
	e.Degrade.OnEvent(func(ev degrade.Event) {
		e.metrics.RecordDegradationLevel(context.Background(), int(ev.Level))
	})

	e.Recovery = recovery.NewRegistry()
	gating := []recovery.RegisterOption{
		recovery.WithCooldown(cfg.Recovery.Cooldown),
		recovery.WithMaxAttemptsPerHour(cfg.Recovery.MaxAttemptsPerHour),
	}
	e.Recovery.Register(&recovery.ConnectionRecovery{}, gating...)
	e.Recovery.Register(&recovery.SensorRecalibration{}, gating...)
	e.Recovery.Register(&recovery.ServiceRestart{}, gating...)
	e.Recovery.Register(&recovery.HardwareReset{}, gating...)

	e.poller = health.NewPoller(e.Health, cfg.Health.PollInterval)
	return e, nil
}

// Start brings up telemetry export and the health poller.
func (e *Engine) Start(ctx context.Context) error {
	providers, err := observability.Init(ctx, e.cfg.Observability)
	if err != nil {
		return err
	}
	e.providers = providers

	if err := e.poller.Start(); err != nil {
		_ = providers.Shutdown(ctx)
		return err
	}
	e.log.Info("engine started", logger.Fields(
		"poll_interval", e.cfg.Health.PollInterval.String(),
	))
	return nil
}

// Stop halts the poller, waits for background recoveries and flushes
// telemetry.
func (e *Engine) Stop(ctx context.Context) error {
	e.poller.Stop()
	e.wg.Wait()
	if e.providers != nil {
		return e.providers.Shutdown(ctx)
	}
	return nil
}

func (e *Engine) onBreakerTransition(name string, from, to breaker.State) {
	e.metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
	e.log.Warn("breaker state changed", logger.Fields(
		logger.FieldBreaker, name,
		"from", from.String(),
		"to", to.String(),
	))
}

// Snapshot is a serializable view of the whole engine for dashboards.
type Snapshot struct {
	Firmware    version.Info     `json:"firmware"`
	Breakers    []breaker.Status `json:"breakers"`
	Health      health.Summary   `json:"health"`
	Degradation degrade.State    `json:"degradation"`
	Strategies  []string         `json:"strategies"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Snapshot collects the current status of every subsystem.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Firmware:    version.Get(),
		Breakers:    e.Breakers.Snapshot(),
		Health:      e.Health.Summarize(),
		Degradation: e.Degrade.Status(),
		Strategies:  e.Recovery.Names(),
		Timestamp:   time.Now(),
	}
}
