package processor

import (
	"github.com/quell-dev/quell/internal/pipeline"
)

// Status is the terminal status of one processing attempt.
type Status string

const (
	// StatusResolved means the pipeline approved and a change-request
	// was created.
	StatusResolved Status = "resolved"

	// StatusSkipped means an existing resolution was found; no engine
	// ran.
	StatusSkipped Status = "skipped"

	// StatusFailed means the pipeline or an external call failed
	// terminally.
	StatusFailed Status = "failed"

	// StatusContended means another worker holds the unit's lock.
	// Informational; the unit is not retried this pass.
	StatusContended Status = "contended"
)

// Outcome is the result of processing one unit.
type Outcome struct {
	UnitID string
	Status Status

	// Detail carries the change-request URL on resolution, the skip
	// reason, or failure diagnostics.
	Detail string

	// Run holds the full pipeline history when a pipeline ran.
	Run *pipeline.Run
}
