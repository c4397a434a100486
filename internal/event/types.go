package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "unit.resolved", "breaker.opened")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// WorkUnit Lifecycle Events
// -----------------------------------------------------------------------------

// UnitResolvedEvent is emitted when a work unit is resolved and a
// change-request has been opened for it.
type UnitResolvedEvent struct {
	baseEvent
	UnitID           string // Work unit identifier
	ChangeRequestURL string // URL of the created change-request
}

// NewUnitResolvedEvent creates a UnitResolvedEvent.
func NewUnitResolvedEvent(unitID, crURL string) UnitResolvedEvent {
	return UnitResolvedEvent{
		baseEvent:        newBaseEvent("unit.resolved"),
		UnitID:           unitID,
		ChangeRequestURL: crURL,
	}
}

// UnitFailedEvent is emitted when a work unit exhausts the pipeline
// without approval or hits an unrecoverable error.
type UnitFailedEvent struct {
	baseEvent
	UnitID string // Work unit identifier
	Reason string // Diagnostic detail
}

// NewUnitFailedEvent creates a UnitFailedEvent.
func NewUnitFailedEvent(unitID, reason string) UnitFailedEvent {
	return UnitFailedEvent{
		baseEvent: newBaseEvent("unit.failed"),
		UnitID:    unitID,
		Reason:    reason,
	}
}

// UnitSkippedEvent is emitted when the duplicate guard finds an existing
// resolution for a work unit.
type UnitSkippedEvent struct {
	baseEvent
	UnitID string // Work unit identifier
	Reason string // Why the unit was skipped (e.g., existing change-request)
}

// NewUnitSkippedEvent creates a UnitSkippedEvent.
func NewUnitSkippedEvent(unitID, reason string) UnitSkippedEvent {
	return UnitSkippedEvent{
		baseEvent: newBaseEvent("unit.skipped"),
		UnitID:    unitID,
		Reason:    reason,
	}
}

// UnitContendedEvent is emitted when a work unit's lock was held by
// another worker. Informational only; the unit is not retried this pass.
type UnitContendedEvent struct {
	baseEvent
	UnitID string // Work unit identifier
	Holder string // Lock holder identity, if known
}

// NewUnitContendedEvent creates a UnitContendedEvent.
func NewUnitContendedEvent(unitID, holder string) UnitContendedEvent {
	return UnitContendedEvent{
		baseEvent: newBaseEvent("unit.contended"),
		UnitID:    unitID,
		Holder:    holder,
	}
}

// -----------------------------------------------------------------------------
// Lock Events
// -----------------------------------------------------------------------------

// LockAcquiredEvent is emitted when a per-unit lock is acquired.
type LockAcquiredEvent struct {
	baseEvent
	Key    string        // Lock key
	Holder string        // Holder identity
	TTL    time.Duration // Lock time-to-live
}

// NewLockAcquiredEvent creates a LockAcquiredEvent.
func NewLockAcquiredEvent(key, holder string, ttl time.Duration) LockAcquiredEvent {
	return LockAcquiredEvent{
		baseEvent: newBaseEvent("lock.acquired"),
		Key:       key,
		Holder:    holder,
		TTL:       ttl,
	}
}

// LockReleasedEvent is emitted when a per-unit lock is released.
type LockReleasedEvent struct {
	baseEvent
	Key    string // Lock key
	Holder string // Holder identity
}

// NewLockReleasedEvent creates a LockReleasedEvent.
func NewLockReleasedEvent(key, holder string) LockReleasedEvent {
	return LockReleasedEvent{
		baseEvent: newBaseEvent("lock.released"),
		Key:       key,
		Holder:    holder,
	}
}

// -----------------------------------------------------------------------------
// Executor Events
// -----------------------------------------------------------------------------

// WidthChangedEvent is emitted when the adaptive executor changes its
// target worker width.
type WidthChangedEvent struct {
	baseEvent
	From     int     // Previous width
	To       int     // New width
	Pressure float64 // Resource pressure at decision time
	Reason   string  // Why the width changed
}

// NewWidthChangedEvent creates a WidthChangedEvent.
func NewWidthChangedEvent(from, to int, pressure float64, reason string) WidthChangedEvent {
	return WidthChangedEvent{
		baseEvent: newBaseEvent("executor.width_changed"),
		From:      from,
		To:        to,
		Pressure:  pressure,
		Reason:    reason,
	}
}

// BreakerStateChangedEvent is emitted on circuit breaker transitions.
type BreakerStateChangedEvent struct {
	baseEvent
	Class  string // Work class the breaker guards
	From   string // Previous breaker state
	To     string // New breaker state
	Reason string // Trigger reason
}

// NewBreakerStateChangedEvent creates a BreakerStateChangedEvent.
func NewBreakerStateChangedEvent(class, from, to, reason string) BreakerStateChangedEvent {
	return BreakerStateChangedEvent{
		baseEvent: newBaseEvent("breaker.state_changed"),
		Class:     class,
		From:      from,
		To:        to,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Pipeline Events
// -----------------------------------------------------------------------------

// VerdictEvent is emitted when a pipeline run reaches a terminal verdict.
type VerdictEvent struct {
	baseEvent
	UnitID     string  // Work unit identifier
	Verdict    string  // Terminal verdict name
	Score      float64 // Aggregate score
	Iterations int     // Engine invocations performed
}

// NewVerdictEvent creates a VerdictEvent.
func NewVerdictEvent(unitID, verdict string, score float64, iterations int) VerdictEvent {
	return VerdictEvent{
		baseEvent:  newBaseEvent("pipeline.verdict"),
		UnitID:     unitID,
		Verdict:    verdict,
		Score:      score,
		Iterations: iterations,
	}
}

// ChangeRequestCreatedEvent is emitted after a change-request is opened.
type ChangeRequestCreatedEvent struct {
	baseEvent
	UnitID string // Work unit the change-request resolves
	URL    string // Change-request URL
	Branch string // Source branch
}

// NewChangeRequestCreatedEvent creates a ChangeRequestCreatedEvent.
func NewChangeRequestCreatedEvent(unitID, url, branch string) ChangeRequestCreatedEvent {
	return ChangeRequestCreatedEvent{
		baseEvent: newBaseEvent("changereq.created"),
		UnitID:    unitID,
		URL:       url,
		Branch:    branch,
	}
}
