package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/quell-dev/quell/internal/event"
)

// BreakerState is the circuit breaker state for one work class.
type BreakerState string

const (
	// BreakerClosed allows all work.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen rejects all work until the cooldown elapses.
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen allows exactly one probe task.
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerTransition is one audited breaker state change.
type BreakerTransition struct {
	At     time.Time    // when the transition happened
	Class  string       // work class
	From   BreakerState // previous state
	To     BreakerState // new state
	Reason string       // trigger reason
}

// Breaker is a per-work-class circuit breaker. After threshold
// consecutive failures of one class it opens for the cooldown period,
// then half-opens and admits a single probe before closing again.
// Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	classes   map[string]*classState
	history   []BreakerTransition
	bus       *event.Bus

	// now is replaceable in tests.
	now func() time.Time
}

type classState struct {
	state       BreakerState
	consecutive int       // consecutive failures while closed
	openedAt    time.Time // when the breaker opened
	probing     bool      // a half-open probe is in flight
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerClock overrides the breaker's clock. For tests.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

// WithBreakerBus sets the event bus for transition events.
func WithBreakerBus(bus *event.Bus) BreakerOption {
	return func(b *Breaker) { b.bus = bus }
}

// NewBreaker creates a Breaker that opens a class after threshold
// consecutive failures and probes again after cooldown.
func NewBreaker(threshold int, cooldown time.Duration, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		classes:   make(map[string]*classState),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether work of the given class may be dispatched now.
// In the half-open state exactly one caller receives true (the probe);
// others are rejected until the probe resolves.
func (b *Breaker) Allow(class string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cs := b.classLocked(class)
	switch cs.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(cs.openedAt) < b.cooldown {
			return false
		}
		b.transitionLocked(class, cs, BreakerHalfOpen, "cooldown elapsed")
		cs.probing = true
		return true
	case BreakerHalfOpen:
		if cs.probing {
			return false
		}
		cs.probing = true
		return true
	}
	return false
}

// RecordSuccess notes a successful task of the given class.
func (b *Breaker) RecordSuccess(class string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cs := b.classLocked(class)
	cs.consecutive = 0
	if cs.state == BreakerHalfOpen {
		cs.probing = false
		b.transitionLocked(class, cs, BreakerClosed, "probe succeeded")
	}
}

// RecordFailure notes a failed task of the given class.
func (b *Breaker) RecordFailure(class string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cs := b.classLocked(class)
	switch cs.state {
	case BreakerClosed:
		cs.consecutive++
		if cs.consecutive >= b.threshold {
			b.transitionLocked(class, cs, BreakerOpen,
				fmt.Sprintf("%d consecutive failures", cs.consecutive))
			cs.openedAt = b.now()
		}
	case BreakerHalfOpen:
		cs.probing = false
		b.transitionLocked(class, cs, BreakerOpen, "probe failed")
		cs.openedAt = b.now()
	}
}

// State returns the current breaker state for a class.
func (b *Breaker) State(class string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.classLocked(class).state
}

// History returns a copy of all recorded transitions.
func (b *Breaker) History() []BreakerTransition {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]BreakerTransition, len(b.history))
	copy(out, b.history)
	return out
}

// classLocked returns the state for class, creating it closed.
// Caller holds the lock.
func (b *Breaker) classLocked(class string) *classState {
	cs, ok := b.classes[class]
	if !ok {
		cs = &classState{state: BreakerClosed}
		b.classes[class] = cs
	}
	return cs
}

// transitionLocked records and publishes a state change.
// Caller holds the lock.
func (b *Breaker) transitionLocked(class string, cs *classState, to BreakerState, reason string) {
	from := cs.state
	cs.state = to
	b.history = append(b.history, BreakerTransition{
		At:     b.now(),
		Class:  class,
		From:   from,
		To:     to,
		Reason: reason,
	})
	if b.bus != nil {
		b.bus.Publish(event.NewBreakerStateChangedEvent(class, string(from), string(to), reason))
	}
}
