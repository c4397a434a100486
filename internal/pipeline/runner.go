package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/logging"
	"github.com/quell-dev/quell/internal/tracker"
)

// Runner drives the execute-and-judge loop for one unit. Each
// iteration runs the engine under the per-run timeout, judges the
// result, and on NeedsRevision feeds the rationale back as an engine
// constraint. Reaching the iteration cap without approval is Failed,
// never a silent success.
type Runner struct {
	registry      *Registry
	maxIterations int
	runTimeout    time.Duration
	bus           *event.Bus
	logger        *logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerClock overrides the runner's clock. For tests.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. runTimeout bounds one engine execution;
// zero means no timeout.
func NewRunner(registry *Registry, maxIterations int, runTimeout time.Duration,
	bus *event.Bus, logger *logging.Logger, opts ...RunnerOption) *Runner {

	r := &Runner{
		registry:      registry,
		maxIterations: maxIterations,
		runTimeout:    runTimeout,
		bus:           bus,
		logger:        logger.WithComponent("pipeline"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline for one unit and returns the full run
// record. The returned error is non-nil only for dispatch problems
// (no binding for the unit's category); engine failures and exhausted
// iterations terminate the run in StateFailed instead.
func (r *Runner) Run(ctx context.Context, unit tracker.WorkUnit) (*Run, error) {
	cat, binding, err := r.registry.Resolve(unit)
	if err != nil {
		return nil, err
	}

	run := &Run{
		UnitID:   unit.ID,
		Category: cat,
		State:    StateIdle,
	}
	logger := r.logger.WithUnit(unit.ID).With("category", cat.String(), "engine", binding.Engine.Name())
	logger.Info("pipeline run started", "max_iterations", r.maxIterations)

	var constraints []string
	for attempt := 1; attempt <= r.maxIterations; attempt++ {
		run.State = StateExecuting
		started := r.now()

		result, execErr := r.executeOnce(ctx, binding.Engine, unit, constraints)

		var judgment Judgment
		if execErr != nil {
			// An engine failure or timeout is a failed judgment for
			// this iteration, not a propagated error.
			judgment = Judgment{
				Verdict:   VerdictNeedsRevision,
				Score:     0,
				Rationale: fmt.Sprintf("engine did not produce a result: %v", execErr),
			}
			logger.Warn("engine execution failed", "attempt", attempt, "error", execErr)
		} else {
			run.State = StateJudging
			judgment = binding.Panel.Evaluate(result)
		}

		run.Iterations = append(run.Iterations, Iteration{
			Attempt:  attempt,
			Result:   result,
			Judgment: judgment,
			Started:  started,
			Finished: r.now(),
		})
		run.Final = judgment

		logger.Info("iteration judged",
			"attempt", attempt, "verdict", judgment.Verdict.String(), "score", judgment.Score)
		if r.bus != nil {
			r.bus.Publish(event.NewVerdictEvent(unit.ID, judgment.Verdict.String(), judgment.Score, attempt))
		}

		switch judgment.Verdict {
		case VerdictApproved:
			run.State = StateApproved
			return run, nil
		case VerdictRejected:
			// Hard-fail criteria are zero tolerance; revision cannot
			// recover them.
			run.State = StateFailed
			logger.Warn("pipeline run rejected", "attempt", attempt)
			return run, nil
		case VerdictNeedsRevision:
			if ctx.Err() != nil {
				run.State = StateFailed
				return run, nil
			}
			run.State = StateRevising
			constraints = append(constraints, judgment.Rationale)
		}
	}

	run.State = StateFailed
	logger.Warn("iteration cap reached without approval", "iterations", r.maxIterations)
	return run, nil
}

// executeOnce runs the engine under the per-run timeout.
func (r *Runner) executeOnce(ctx context.Context, engine Engine, unit tracker.WorkUnit, constraints []string) (*ExecutionResult, error) {
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}
	return engine.Execute(ctx, unit, constraints)
}
