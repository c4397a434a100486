package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/quell-dev/quell/internal/changereq"
	"github.com/quell-dev/quell/internal/config"
	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/executor"
	"github.com/quell-dev/quell/internal/guard"
	"github.com/quell-dev/quell/internal/ledger"
	"github.com/quell-dev/quell/internal/lock"
	"github.com/quell-dev/quell/internal/logging"
	"github.com/quell-dev/quell/internal/monitor"
	"github.com/quell-dev/quell/internal/notify"
	"github.com/quell-dev/quell/internal/pipeline"
	"github.com/quell-dev/quell/internal/processor"
	"github.com/quell-dev/quell/internal/retry"
	"github.com/quell-dev/quell/internal/scheduler"
	"github.com/quell-dev/quell/internal/tracker"
)

// app holds the wired component graph shared by the run and daemon
// commands.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	bus       *event.Bus
	ledger    *ledger.Ledger
	units     tracker.Client
	processor *processor.Processor
	scheduler *scheduler.Scheduler
	monitor   *monitor.Monitor
	pool      *executor.Pool
}

// buildApp loads configuration and constructs every component. A nil
// pool means batches run sequentially.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.Paths.ResolveDataDir()
	logger, err := logging.NewLogger(dataDir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	bus := event.NewBus()

	var locks lock.Backend
	switch cfg.Lock.Backend {
	case "kv":
		locks = lock.NewKVBackend(lock.NewMemoryStore(), logger)
	default:
		locks = lock.NewFileBackend(filepath.Join(dataDir, "locks"), logger)
	}

	led, err := ledger.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	units := tracker.NewGitHubClient()
	changes := changereq.NewGitHubClient()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(registry, cfg.Pipeline.MaxIterations,
		cfg.Pipeline.PerUnitTimeout(), bus, logger)

	retryPolicy := retry.DefaultPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		retryPolicy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelayMs > 0 {
		retryPolicy.BaseDelay = cfg.Retry.BaseDelay()
	}

	proc := processor.New(locks, guard.New(changes, logger), runner, changes,
		units, led, bus, logger, cfg.Lock.TTL(), cfg.Change,
		processor.WithRetryPolicy(retryPolicy))

	var mon *monitor.Monitor
	var pool *executor.Pool
	if cfg.Scheduler.Parallel {
		mon = monitor.NewMonitor(monitor.DefaultSampler(), cfg.Executor.SampleInterval(), logger)
		pool = executor.NewPool(executor.Options{
			MinWidth:         cfg.Executor.MinWidth,
			MaxWidth:         cfg.Executor.MaxWidth,
			FallbackWidth:    cfg.Executor.FallbackWidth,
			ScalingCooldown:  cfg.Executor.ScalingCooldown(),
			BreakerThreshold: cfg.Executor.BreakerThreshold,
			BreakerCooldown:  cfg.Executor.BreakerCooldown(),
		}, mon, bus, logger)
	}

	sched := scheduler.New(units, proc, led, pool, logger,
		cfg.Scheduler.Interval(), cfg.Scheduler.MaxUnitsPerRun,
		scheduler.WithRetryPolicy(retryPolicy))

	if cfg.Notify.Enabled {
		notifier := notify.New(cfg.Notify.WebhookURL, logger,
			notify.WithTimeout(cfg.Notify.Timeout()))
		notifier.SubscribeTo(bus)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		bus:       bus,
		ledger:    led,
		units:     units,
		processor: proc,
		scheduler: sched,
		monitor:   mon,
		pool:      pool,
	}, nil
}

// buildRegistry binds the configured engine command to every category
// panel. Panels come from the built-in set, overridden per category by
// the judge profile when one is configured.
func buildRegistry(cfg *config.Config) (*pipeline.Registry, error) {
	panels := pipeline.DefaultPanels(cfg.Pipeline.IronWillThreshold)
	if cfg.Pipeline.Profile != "" {
		overrides, err := pipeline.LoadPanels(cfg.Pipeline.Profile, cfg.Pipeline.IronWillThreshold)
		if err != nil {
			return nil, err
		}
		for cat, panel := range overrides {
			panels[cat] = panel
		}
	}

	engine := pipeline.NewCommandEngine("engine",
		cfg.Pipeline.EngineCommand, cfg.Pipeline.EngineArgs...)

	registry := pipeline.NewRegistry()
	for cat, panel := range panels {
		registry.Register(cat, engine, panel)
	}
	return registry, nil
}

// start launches the resource monitor and executor pool when parallel
// processing is enabled.
func (a *app) start(ctx context.Context) {
	if a.pool == nil {
		return
	}
	go a.monitor.Start(ctx)
	a.pool.Start(ctx)
}

// close stops the pool and flushes the log file.
func (a *app) close() {
	if a.pool != nil {
		a.pool.Stop()
	}
	_ = a.logger.Close()
}
