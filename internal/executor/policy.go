package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/quell-dev/quell/internal/monitor"
)

// Default policy values.
const (
	defaultHighPressure  = 0.8
	defaultLowPressure   = 0.4
	defaultMinConfidence = 0.5
	defaultHighErrorRate = 0.5
)

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithPressureBands sets the pressure levels that trigger scaling down
// (high) and permit scaling up (low).
func WithPressureBands(low, high float64) PolicyOption {
	return func(p *Policy) {
		p.lowPressure = low
		p.highPressure = high
	}
}

// WithMinConfidence sets the monitor confidence required before the
// policy will act on a pressure signal.
func WithMinConfidence(c float64) PolicyOption {
	return func(p *Policy) { p.minConfidence = c }
}

// WithPolicyClock overrides the policy's clock. For tests.
func WithPolicyClock(now func() time.Time) PolicyOption {
	return func(p *Policy) { p.now = now }
}

// Policy decides pool width from resource pressure, throughput, and
// error rate. A cooldown between decisions prevents thrash, and a
// minimum monitor confidence prevents acting on noise.
// Safe for concurrent use.
type Policy struct {
	mu            sync.Mutex
	minWidth      int
	maxWidth      int
	cooldown      time.Duration
	highPressure  float64
	lowPressure   float64
	minConfidence float64
	highErrorRate float64
	lastDecision  time.Time

	now func() time.Time
}

// NewPolicy creates a Policy bounded by [minWidth, maxWidth] with the
// given cooldown between non-none decisions.
func NewPolicy(minWidth, maxWidth int, cooldown time.Duration, opts ...PolicyOption) *Policy {
	p := &Policy{
		minWidth:      minWidth,
		maxWidth:      maxWidth,
		cooldown:      cooldown,
		highPressure:  defaultHighPressure,
		lowPressure:   defaultLowPressure,
		minConfidence: defaultMinConfidence,
		highErrorRate: defaultHighErrorRate,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate returns a width decision for the current conditions.
// At most one non-none decision is produced per cooldown window.
func (p *Policy) Evaluate(snap monitor.Snapshot, throughput, errorRate float64, currentWidth int) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.lastDecision.IsZero() && now.Sub(p.lastDecision) < p.cooldown {
		return Decision{
			Action:      ActionNone,
			TargetWidth: currentWidth,
			Reason:      "cooldown period active",
		}
	}

	if snap.Confidence < p.minConfidence {
		return Decision{
			Action:      ActionNone,
			TargetWidth: currentWidth,
			Reason: fmt.Sprintf("monitor confidence %.2f below %.2f",
				snap.Confidence, p.minConfidence),
		}
	}

	// High pressure: back off by half, never below the floor.
	if snap.Pressure >= p.highPressure && currentWidth > p.minWidth {
		target := currentWidth / 2
		if target < p.minWidth {
			target = p.minWidth
		}
		p.lastDecision = now
		return Decision{
			Action:      ActionScaleDown,
			TargetWidth: target,
			Reason: fmt.Sprintf("pressure %.2f at or above %.2f",
				snap.Pressure, p.highPressure),
		}
	}

	// A high error rate means wider parallelism only multiplies
	// failures; narrow by one instead.
	if errorRate >= p.highErrorRate && currentWidth > p.minWidth {
		p.lastDecision = now
		return Decision{
			Action:      ActionScaleDown,
			TargetWidth: currentWidth - 1,
			Reason: fmt.Sprintf("error rate %.2f at or above %.2f",
				errorRate, p.highErrorRate),
		}
	}

	// Low pressure and useful throughput: try one more worker.
	if snap.Pressure <= p.lowPressure && currentWidth < p.maxWidth {
		p.lastDecision = now
		return Decision{
			Action:      ActionScaleUp,
			TargetWidth: currentWidth + 1,
			Reason: fmt.Sprintf("pressure %.2f at or below %.2f, throughput %.2f/s",
				snap.Pressure, p.lowPressure, throughput),
		}
	}

	return Decision{
		Action:      ActionNone,
		TargetWidth: currentWidth,
		Reason:      "within operating band",
	}
}

// Bounds returns the policy's width limits.
func (p *Policy) Bounds() (min, max int) {
	return p.minWidth, p.maxWidth
}
