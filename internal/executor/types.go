package executor

import (
	"context"
	"time"
)

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp indicates the pool should widen.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates the pool should narrow.
	ActionScaleDown Action = "scale_down"

	// ActionNone indicates no width change is needed.
	ActionNone Action = "none"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Decision is the result of evaluating the scaling policy.
type Decision struct {
	// Action is the recommended scaling action.
	Action Action

	// TargetWidth is the new pool width. Equals the current width when
	// Action is ActionNone.
	TargetWidth int

	// Reason is a human-readable explanation of the decision.
	Reason string
}

// Task is one unit of work submitted to the pool.
type Task struct {
	// UnitID identifies the work unit, for logs and audit.
	UnitID string

	// Class groups tasks for the circuit breaker (typically the
	// pipeline category name).
	Class string

	// Run does the work. A non-nil error counts against the class's
	// breaker and the pool's error rate.
	Run func(ctx context.Context) error
}

// Future resolves when a submitted task finishes.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve records the task's error and unblocks waiters. Called once.
func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the task finishes or ctx is cancelled. It returns
// the task's error, or the context's error on cancellation.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the task finishes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// WidthChange is one audited pool width transition.
type WidthChange struct {
	At       time.Time // when the change applied
	From     int       // previous width
	To       int       // new width
	Pressure float64   // monitor pressure at decision time
	Reason   string    // trigger reason
}
