// Package scheduler periodically enumerates open work units, filters
// the ones already recorded in the ledger, and submits a bounded batch
// to the processor.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/quell-dev/quell/internal/executor"
	"github.com/quell-dev/quell/internal/ledger"
	"github.com/quell-dev/quell/internal/logging"
	"github.com/quell-dev/quell/internal/processor"
	"github.com/quell-dev/quell/internal/retry"
	"github.com/quell-dev/quell/internal/tracker"
)

// Scheduler drives periodic processing passes.
type Scheduler struct {
	units       tracker.Client
	processor   *processor.Processor
	ledger      *ledger.Ledger
	pool        *executor.Pool // nil means sequential batches
	logger      *logging.Logger
	interval    time.Duration
	retryPolicy retry.Policy

	mu        sync.Mutex
	maxPerRun int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRetryPolicy replaces the unit-listing retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Scheduler) { s.retryPolicy = policy }
}

// New creates a Scheduler. A nil pool processes batches sequentially.
func New(
	units tracker.Client,
	proc *processor.Processor,
	led *ledger.Ledger,
	pool *executor.Pool,
	logger *logging.Logger,
	interval time.Duration,
	maxPerRun int,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		units:       units,
		processor:   proc,
		ledger:      led,
		pool:        pool,
		logger:      logger.WithComponent("scheduler"),
		interval:    interval,
		maxPerRun:   maxPerRun,
		retryPolicy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes passes on the configured interval until ctx is
// cancelled. The first pass runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Pass(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Pass(ctx)
		}
	}
}

// Pass runs one scheduling pass: enumerate, filter, process.
func (s *Scheduler) Pass(ctx context.Context) []processor.Outcome {
	units, err := s.listOpen(ctx)
	if err != nil {
		s.logger.Error("listing open units failed", "error", err)
		return nil
	}

	batch := s.eligible(units)
	if len(batch) == 0 {
		s.logger.Debug("no eligible units this pass", "open", len(units))
		return nil
	}

	s.logger.Info("processing batch", "eligible", len(batch), "open", len(units))
	outcomes := s.processor.ProcessBatch(ctx, batch, s.pool)

	counts := make(map[processor.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	s.logger.Info("pass complete",
		"resolved", counts[processor.StatusResolved],
		"skipped", counts[processor.StatusSkipped],
		"failed", counts[processor.StatusFailed],
		"contended", counts[processor.StatusContended])
	return outcomes
}

// listOpen enumerates open units with retry around transient tracker
// failures.
func (s *Scheduler) listOpen(ctx context.Context) ([]tracker.WorkUnit, error) {
	var units []tracker.WorkUnit
	err := retry.Do(ctx, s.retryPolicy, func(ctx context.Context) error {
		var err error
		units, err = s.units.ListOpen(ctx)
		return err
	})
	return units, err
}

// eligible filters units already recorded in the ledger and bounds the
// batch size.
func (s *Scheduler) eligible(units []tracker.WorkUnit) []tracker.WorkUnit {
	s.mu.Lock()
	limit := s.maxPerRun
	s.mu.Unlock()

	var out []tracker.WorkUnit
	for _, u := range units {
		if s.ledger.Has(u.ID) {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SetMaxPerRun updates the batch bound. Takes effect on the next pass.
func (s *Scheduler) SetMaxPerRun(n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	s.maxPerRun = n
	s.mu.Unlock()
}
