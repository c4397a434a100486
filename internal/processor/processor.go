// Package processor is the facade over the lock backend, duplicate
// guard, and execute-and-judge pipeline. ProcessUnit owns a unit's
// transition from Locked to a terminal state; the lock is released on
// every exit path, panics included.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/quell-dev/quell/internal/changereq"
	"github.com/quell-dev/quell/internal/config"
	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/guard"
	"github.com/quell-dev/quell/internal/ledger"
	"github.com/quell-dev/quell/internal/lock"
	"github.com/quell-dev/quell/internal/logging"
	"github.com/quell-dev/quell/internal/pipeline"
	"github.com/quell-dev/quell/internal/retry"
	"github.com/quell-dev/quell/internal/tracker"
)

// Processor processes work units end to end.
type Processor struct {
	locks    lock.Backend
	guard    *guard.Guard
	runner   *pipeline.Runner
	changes  changereq.Client
	units    tracker.Client
	ledger   *ledger.Ledger
	bus      *event.Bus
	logger   *logging.Logger
	recorder *retry.Recorder

	lockTTL     time.Duration
	retryPolicy retry.Policy
	change      config.ChangeConfig

	// now is replaceable in tests.
	now func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the processor's clock. For tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithRetryPolicy replaces the external-call retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Processor) { p.retryPolicy = policy }
}

// New creates a Processor.
func New(
	locks lock.Backend,
	g *guard.Guard,
	runner *pipeline.Runner,
	changes changereq.Client,
	units tracker.Client,
	led *ledger.Ledger,
	bus *event.Bus,
	logger *logging.Logger,
	lockTTL time.Duration,
	change config.ChangeConfig,
	opts ...Option,
) *Processor {
	p := &Processor{
		locks:       locks,
		guard:       g,
		runner:      runner,
		changes:     changes,
		units:       units,
		ledger:      led,
		bus:         bus,
		logger:      logger.WithComponent("processor"),
		recorder:    retry.NewRecorder(),
		lockTTL:     lockTTL,
		retryPolicy: retry.DefaultPolicy(),
		change:      change,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessUnit takes a unit through lock, guard, pipeline, and
// change-request creation. The lock is released on every exit path.
func (p *Processor) ProcessUnit(ctx context.Context, unit tracker.WorkUnit) (outcome Outcome) {
	logger := p.logger.WithUnit(unit.ID)

	if !p.locks.Acquire(unit.ID, p.lockTTL) {
		logger.Info("unit already being processed", "key", unit.ID)
		p.publish(event.NewUnitContendedEvent(unit.ID, ""))
		return Outcome{UnitID: unit.ID, Status: StatusContended, Detail: "lock held by another worker"}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing unit", "panic", r)
			detail := fmt.Sprintf("panic: %v", r)
			p.record(unit.ID, ledger.OutcomeFailed, detail)
			p.publish(event.NewUnitFailedEvent(unit.ID, detail))
			outcome = Outcome{UnitID: unit.ID, Status: StatusFailed, Detail: detail}
		}
		p.locks.Release(unit.ID)
	}()

	return p.processLocked(ctx, unit, logger)
}

// processLocked runs the guard and pipeline while holding the lock.
func (p *Processor) processLocked(ctx context.Context, unit tracker.WorkUnit, logger *logging.Logger) Outcome {
	duplicate, err := p.checkDuplicate(ctx, unit.ID)
	if err != nil {
		detail := "duplicate check failed: " + err.Error()
		logger.Error("duplicate check exhausted retries", "error", err)
		p.record(unit.ID, ledger.OutcomeFailed, detail)
		p.publish(event.NewUnitFailedEvent(unit.ID, detail))
		return Outcome{UnitID: unit.ID, Status: StatusFailed, Detail: detail}
	}
	if duplicate {
		detail := "existing change-request references this unit"
		logger.Info("skipping unit with existing resolution")
		p.annotate(ctx, unit.ID, "Skipped: "+detail+".")
		p.record(unit.ID, ledger.OutcomeSkipped, detail)
		p.publish(event.NewUnitSkippedEvent(unit.ID, detail))
		return Outcome{UnitID: unit.ID, Status: StatusSkipped, Detail: detail}
	}

	run, err := p.runner.Run(ctx, unit)
	if err != nil {
		detail := "pipeline dispatch failed: " + err.Error()
		logger.Error("pipeline dispatch failed", "error", err)
		p.annotate(ctx, unit.ID, "Failed: "+detail)
		p.record(unit.ID, ledger.OutcomeFailed, detail)
		p.publish(event.NewUnitFailedEvent(unit.ID, detail))
		return Outcome{UnitID: unit.ID, Status: StatusFailed, Detail: detail}
	}

	if !run.Approved() {
		detail := fmt.Sprintf("pipeline %s after %d iterations: %s",
			run.State, len(run.Iterations), run.Final.Rationale)
		logger.Warn("pipeline did not approve", "state", string(run.State), "iterations", len(run.Iterations))
		p.annotate(ctx, unit.ID, "Failed: "+detail)
		p.record(unit.ID, ledger.OutcomeFailed, detail)
		p.publish(event.NewUnitFailedEvent(unit.ID, detail))
		return Outcome{UnitID: unit.ID, Status: StatusFailed, Detail: detail, Run: run}
	}

	cr, err := p.createChangeRequest(ctx, unit, run)
	if err != nil {
		detail := "change-request creation failed: " + err.Error()
		logger.Error("change-request creation failed", "error", err)
		p.annotate(ctx, unit.ID, "Failed: "+detail)
		p.record(unit.ID, ledger.OutcomeFailed, detail)
		p.publish(event.NewUnitFailedEvent(unit.ID, detail))
		return Outcome{UnitID: unit.ID, Status: StatusFailed, Detail: detail, Run: run}
	}

	logger.Info("unit resolved", "cr_number", cr.Number, "cr_url", cr.URL)
	p.annotate(ctx, unit.ID, fmt.Sprintf("Resolved by change-request %s.", cr.URL))
	p.record(unit.ID, ledger.OutcomeResolved, cr.URL)
	p.publish(event.NewChangeRequestCreatedEvent(unit.ID, cr.URL, cr.HeadBranch))
	p.publish(event.NewUnitResolvedEvent(unit.ID, cr.URL))
	return Outcome{UnitID: unit.ID, Status: StatusResolved, Detail: cr.URL, Run: run}
}

// checkDuplicate queries the guard with retry around transient
// change-request system failures.
func (p *Processor) checkDuplicate(ctx context.Context, unitID string) (bool, error) {
	var duplicate bool
	err := retry.Do(ctx, p.retryPolicy, func(ctx context.Context) error {
		var err error
		duplicate, err = p.guard.HasExistingResolution(ctx, unitID)
		p.recorder.RecordAttempt(unitID, err)
		return err
	})
	return duplicate, err
}

// createChangeRequest builds the branch name and submits the
// change-request with retry.
func (p *Processor) createChangeRequest(ctx context.Context, unit tracker.WorkUnit, run *pipeline.Run) (*changereq.ChangeRequest, error) {
	branch := changereq.BranchName(
		p.change.BranchPrefix, unit.ID, p.change.UseTimestampedBranches, p.now())

	summary := ""
	if last := len(run.Iterations); last > 0 && run.Iterations[last-1].Result != nil {
		summary = run.Iterations[last-1].Result.Summary
	}

	opts := changereq.CreateOptions{
		UnitID:       unit.ID,
		Title:        unit.Title,
		Summary:      summary,
		Rationale:    run.Final.Rationale,
		SourceBranch: branch,
		TargetBranch: p.change.TargetBranch,
		Draft:        p.change.Draft,
		Labels:       p.change.Labels,
	}

	var cr *changereq.ChangeRequest
	err := retry.Do(ctx, p.retryPolicy, func(ctx context.Context) error {
		var err error
		cr, err = p.changes.Create(ctx, opts)
		p.recorder.RecordAttempt(unit.ID, err)
		return err
	})
	return cr, err
}

// annotate posts an informational comment on the unit. Best effort.
func (p *Processor) annotate(ctx context.Context, unitID, message string) {
	if err := p.units.Annotate(ctx, unitID, message); err != nil {
		p.logger.Warn("annotating unit failed", "unit_id", unitID, "error", err)
	}
}

// record appends a terminal outcome to the ledger. Best effort: a
// ledger write failure is logged, not propagated, because the outcome
// itself already happened.
func (p *Processor) record(unitID string, outcome ledger.Outcome, detail string) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Append(unitID, outcome, detail); err != nil {
		p.logger.Error("recording outcome failed", "unit_id", unitID, "error", err)
	}
}

func (p *Processor) publish(e event.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}

// Recorder exposes per-unit external-call attempt history.
func (p *Processor) Recorder() *retry.Recorder {
	return p.recorder
}
