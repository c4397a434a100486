package processor

import (
	"context"

	"github.com/quell-dev/quell/internal/executor"
	"github.com/quell-dev/quell/internal/pipeline"
	"github.com/quell-dev/quell/internal/tracker"
)

// ProcessBatch processes units through the executor pool when one is
// given, sequentially otherwise. Outcomes are returned in input order.
// A unit rejected at dispatch (open breaker, stopped pool) gets a
// Failed outcome but is not recorded in the ledger, so a later pass
// retries it.
func (p *Processor) ProcessBatch(ctx context.Context, units []tracker.WorkUnit, pool *executor.Pool) []Outcome {
	if pool == nil {
		return p.processSequential(ctx, units)
	}

	outcomes := make([]Outcome, len(units))
	futures := make([]*executor.Future, len(units))

	for i, unit := range units {
		i, unit := i, unit
		fut, err := pool.Submit(executor.Task{
			UnitID: unit.ID,
			Class:  pipeline.DetectCategory(unit).String(),
			Run: func(ctx context.Context) error {
				outcome := p.ProcessUnit(ctx, unit)
				outcomes[i] = outcome
				if outcome.Status == StatusFailed {
					return statusError{outcome}
				}
				return nil
			},
		})
		if err != nil {
			p.logger.Warn("unit dispatch rejected", "unit_id", unit.ID, "error", err)
			outcomes[i] = Outcome{
				UnitID: unit.ID,
				Status: StatusFailed,
				Detail: "dispatch rejected: " + err.Error(),
			}
			continue
		}
		futures[i] = fut
	}

	// Dispatched units run to completion or timeout; every accepted
	// future resolves, so waiting on Done is bounded.
	for i, fut := range futures {
		if fut == nil {
			continue
		}
		<-fut.Done()
		if outcomes[i].Status == "" {
			// The pool resolved the future without running the task
			// (shutdown drain).
			outcomes[i] = Outcome{
				UnitID: units[i].ID,
				Status: StatusFailed,
				Detail: "not processed: executor stopped",
			}
		}
	}
	return outcomes
}

func (p *Processor) processSequential(ctx context.Context, units []tracker.WorkUnit) []Outcome {
	outcomes := make([]Outcome, len(units))
	for i, unit := range units {
		if ctx.Err() != nil {
			outcomes[i] = Outcome{
				UnitID: unit.ID,
				Status: StatusFailed,
				Detail: "not processed: " + ctx.Err().Error(),
			}
			continue
		}
		outcomes[i] = p.ProcessUnit(ctx, unit)
	}
	return outcomes
}

// statusError feeds a failed outcome into the pool's error accounting
// without losing the outcome itself.
type statusError struct {
	outcome Outcome
}

func (e statusError) Error() string {
	return "unit " + e.outcome.UnitID + " failed: " + e.outcome.Detail
}
