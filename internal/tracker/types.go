// Package tracker models work units and the issue source they come
// from. The scheduler enumerates open units through a Client; the
// processor annotates terminal outcomes back on the originating unit.
package tracker

import (
	"context"
	"time"
)

// UnitState is the lifecycle state of a work unit.
type UnitState string

const (
	StateDiscovered UnitState = "discovered"
	StateLocked     UnitState = "locked"
	StateProcessing UnitState = "processing"
	StateJudging    UnitState = "judging"
	StateResolved   UnitState = "resolved"
	StateSkipped    UnitState = "skipped"
	StateFailed     UnitState = "failed"
)

// String returns the string representation of the state.
func (s UnitState) String() string {
	return string(s)
}

// Terminal reports whether the state is a terminal outcome.
func (s UnitState) Terminal() bool {
	return s == StateResolved || s == StateSkipped || s == StateFailed
}

// WorkUnit is one discrete item of work. The ID is opaque and stable
// across retries. The scheduler owns a unit until it hands it to the
// processor, which owns the transition from Locked to a terminal state.
type WorkUnit struct {
	ID        string
	Title     string
	Body      string
	Labels    []string
	CreatedAt time.Time
	State     UnitState
}

// Client is the issue source surface the scheduler and processor use.
type Client interface {
	// ListOpen enumerates open work units.
	ListOpen(ctx context.Context) ([]WorkUnit, error)

	// Annotate posts an informational comment on a unit. Used for
	// terminal outcome annotations.
	Annotate(ctx context.Context, unitID, message string) error
}
