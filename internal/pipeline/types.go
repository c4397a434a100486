// Package pipeline runs the execute-and-judge loop for one work unit.
// An Engine performs deterministic work and emits an ExecutionResult;
// a panel of Judges evaluates the result against fixed numeric
// thresholds. The loop iterates, feeding revision rationale back to
// the engine, until approval or a safety cap. An engine's raw output
// is never treated as final.
package pipeline

import (
	"time"
)

// Verdict is a judge's conclusion about one execution result.
type Verdict string

const (
	// VerdictApproved accepts the result as final.
	VerdictApproved Verdict = "approved"

	// VerdictNeedsRevision sends the result back to the engine with
	// the judgment's rationale as an additional constraint.
	VerdictNeedsRevision Verdict = "needs_revision"

	// VerdictRejected fails the result outright. Produced when a
	// hard-fail criterion does not pass; not recoverable by revision.
	VerdictRejected Verdict = "rejected"
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// RunState is the pipeline's per-unit state machine position.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateExecuting RunState = "executing"
	StateJudging   RunState = "judging"
	StateRevising  RunState = "revising"
	StateApproved  RunState = "approved"
	StateFailed    RunState = "failed"
)

// ExecutionResult is the structured output of one engine run.
// Immutable once produced; consumed exactly once by the paired judges.
type ExecutionResult struct {
	// Metrics are the engine's measured values, keyed by metric name
	// (e.g. "coverage", "tests_added").
	Metrics map[string]float64

	// Artifacts lists produced artifacts, typically patched file paths.
	Artifacts []string

	// Summary describes what the engine did, for the change-request.
	Summary string
}

// CriterionResult is one evaluated (criterion, measured, threshold)
// tuple within a judgment.
type CriterionResult struct {
	Criterion string
	Measured  float64
	Threshold float64
	Pass      bool
	HardFail  bool // a failing hard-fail criterion rejects outright
}

// Judgment is a judge's (or panel's) evaluation of one execution
// result. Never mutated after production.
type Judgment struct {
	Verdict   Verdict
	Score     float64 // 0-100
	Criteria  []CriterionResult
	Rationale string
}

// Iteration is one engine execution paired with its judgment.
type Iteration struct {
	Attempt  int // 1-based
	Result   *ExecutionResult
	Judgment Judgment
	Started  time.Time
	Finished time.Time
}

// Run is the full record of one pipeline run for a unit: the ordered
// iteration history and the terminal state.
type Run struct {
	UnitID     string
	Category   Category
	State      RunState
	Iterations []Iteration
	Final      Judgment
}

// Approved reports whether the run terminated approved.
func (r *Run) Approved() bool {
	return r.State == StateApproved
}
