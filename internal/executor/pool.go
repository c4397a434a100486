package executor

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/quell-dev/quell/internal/errors"
	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/logging"
	"github.com/quell-dev/quell/internal/monitor"
)

const (
	// defaultQueueSize bounds pending submissions.
	defaultQueueSize = 64

	// defaultEvalInterval is how often the scaling policy is consulted.
	defaultEvalInterval = time.Second

	// defaultWindowSpan is the throughput/error-rate window.
	defaultWindowSpan = time.Minute
)

// Snapshotter is the monitor surface the pool reads.
type Snapshotter interface {
	Snapshot() monitor.Snapshot
}

// Options configure a Pool.
type Options struct {
	MinWidth        int
	MaxWidth        int
	FallbackWidth   int           // used while the monitor is unhealthy
	ScalingCooldown time.Duration // minimum time between width changes
	BreakerThreshold int
	BreakerCooldown time.Duration
	EvalInterval    time.Duration // policy evaluation cadence (default 1s)
	QueueSize       int           // pending submission bound (default 64)
}

// Pool is the adaptive worker pool. Submit queues a task; workers
// execute up to the current width concurrently. The width tracks the
// scaling policy's decisions while the pool runs.
type Pool struct {
	opts    Options
	policy  *Policy
	breaker *Breaker
	window  *Window
	mon     Snapshotter
	bus     *event.Bus
	logger  *logging.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	width   int
	running int
	stopped bool
	history []WidthChange

	queue  chan *submission
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

type submission struct {
	task Task
	fut  *Future
}

// NewPool creates a Pool. The initial width is the configured maximum;
// the policy narrows it as pressure appears.
func NewPool(opts Options, mon Snapshotter, bus *event.Bus, logger *logging.Logger) *Pool {
	if opts.EvalInterval <= 0 {
		opts.EvalInterval = defaultEvalInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	p := &Pool{
		opts:    opts,
		policy:  NewPolicy(opts.MinWidth, opts.MaxWidth, opts.ScalingCooldown),
		breaker: NewBreaker(opts.BreakerThreshold, opts.BreakerCooldown, WithBreakerBus(bus)),
		window:  NewWindow(defaultWindowSpan),
		mon:     mon,
		bus:     bus,
		logger:  logger.WithComponent("executor"),
		width:   opts.MaxWidth,
		queue:   make(chan *submission, opts.QueueSize),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the dispatcher and the scaling loop.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	// On shutdown: reject further submissions, wake slot waiters, and
	// fail anything still queued so no accepted future is left pending.
	p.wg.Go(func() {
		<-ctx.Done()
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cond.Broadcast()
		p.drain()
	})
	p.wg.Go(func() { p.dispatch(ctx) })
	p.wg.Go(func() { p.scaleLoop(ctx) })
}

// Stop rejects new submissions, cancels in-flight context, and waits
// for workers to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Submit queues a task for execution. Returns ErrExecutorStopped once
// the pool is stopped or its context cancelled, ErrBreakerOpen when the
// task's class is open, and ErrQueueFull when the submission queue is at
// capacity. Every accepted future resolves, including across shutdown.
func (p *Pool) Submit(task Task) (*Future, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, errors.ErrExecutorStopped
	}
	p.mu.Unlock()

	if !p.breaker.Allow(task.Class) {
		return nil, errors.ErrBreakerOpen
	}

	fut := newFuture()
	// The stopped check and the enqueue share the mutex so the shutdown
	// drain, which sets stopped before draining, cannot miss a
	// submission enqueued here.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, errors.ErrExecutorStopped
	}
	select {
	case p.queue <- &submission{task: task, fut: fut}:
		return fut, nil
	default:
		return nil, errors.ErrQueueFull
	}
}

// dispatch pulls submissions and hands them to workers, honoring the
// current width.
func (p *Pool) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case sub := <-p.queue:
			if !p.acquireSlot(ctx) {
				sub.fut.resolve(ctx.Err())
				p.drain()
				return
			}
			p.wg.Go(func() { p.runTask(ctx, sub) })
		}
	}
}

// drain fails any queued submissions after shutdown.
func (p *Pool) drain() {
	for {
		select {
		case sub := <-p.queue:
			sub.fut.resolve(errors.ErrExecutorStopped)
		default:
			return
		}
	}
}

// acquireSlot blocks until a worker slot is free or ctx is cancelled.
// Returns false on cancellation.
func (p *Pool) acquireSlot(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.running >= p.width {
		if ctx.Err() != nil {
			return false
		}
		p.cond.Wait()
	}
	if ctx.Err() != nil {
		return false
	}
	p.running++
	return true
}

// releaseSlot frees a worker slot and wakes the dispatcher.
func (p *Pool) releaseSlot() {
	p.mu.Lock()
	p.running--
	p.mu.Unlock()
	p.cond.Broadcast()
}

// runTask executes one task, feeding the breaker and the metrics
// window. Task panics are contained and surfaced as errors.
func (p *Pool) runTask(ctx context.Context, sub *submission) {
	defer p.releaseSlot()

	var err error
	if recovered := panics.Try(func() { err = sub.task.Run(ctx) }); recovered != nil {
		err = recovered.AsError()
		p.logger.Error("task panicked", "unit_id", sub.task.UnitID, "panic", recovered.Value)
	}

	if err != nil {
		p.breaker.RecordFailure(sub.task.Class)
	} else {
		p.breaker.RecordSuccess(sub.task.Class)
	}
	p.window.Observe(err != nil)
	sub.fut.resolve(err)
}

// scaleLoop periodically evaluates the scaling policy.
func (p *Pool) scaleLoop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evaluate()
		}
	}
}

// evaluate applies one scaling decision, falling back to the fixed
// conservative width while the monitor is unhealthy.
func (p *Pool) evaluate() {
	snap := p.mon.Snapshot()

	if !snap.Healthy {
		p.setWidth(p.opts.FallbackWidth, snap.Pressure, "resource monitor unhealthy, fixed fallback width")
		return
	}

	throughput, errorRate := p.window.Stats()
	p.mu.Lock()
	current := p.width
	p.mu.Unlock()

	decision := p.policy.Evaluate(snap, throughput, errorRate, current)
	if decision.Action == ActionNone {
		return
	}
	p.setWidth(decision.TargetWidth, snap.Pressure, decision.Reason)
}

// setWidth applies a width change, recording and publishing it.
func (p *Pool) setWidth(target int, pressure float64, reason string) {
	p.mu.Lock()
	if target == p.width {
		p.mu.Unlock()
		return
	}
	from := p.width
	p.width = target
	p.history = append(p.history, WidthChange{
		At:       time.Now(),
		From:     from,
		To:       target,
		Pressure: pressure,
		Reason:   reason,
	})
	p.mu.Unlock()

	p.cond.Broadcast()
	p.logger.Info("pool width changed", "from", from, "to", target, "reason", reason)
	if p.bus != nil {
		p.bus.Publish(event.NewWidthChangedEvent(from, target, pressure, reason))
	}
}

// Width returns the current target width.
func (p *Pool) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

// History returns a copy of all recorded width changes.
func (p *Pool) History() []WidthChange {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]WidthChange, len(p.history))
	copy(out, p.history)
	return out
}

// Breaker exposes the pool's circuit breaker for inspection.
func (p *Pool) Breaker() *Breaker {
	return p.breaker
}
