// Package executor provides the adaptive parallel executor: a bounded
// worker pool whose width is recomputed from resource pressure, trailing
// throughput, and trailing error rate, with a per-work-class circuit
// breaker in front of dispatch.
//
// # Architecture
//
// The [Pool] owns the workers. A scaling [Policy] is evaluated on a
// fixed cadence against the resource monitor's snapshot and the pool's
// sliding [Window] of completions; decisions respect a cooldown and a
// minimum monitor confidence so the pool does not oscillate. When the
// monitor is unhealthy the pool pins itself to a fixed conservative
// fallback width instead of crashing or guessing.
//
// Every width change and breaker transition is recorded with timestamp
// and trigger reason, and published on the event bus for audit.
//
// # Basic Usage
//
//	pool := executor.NewPool(cfg, mon, bus, logger)
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	fut, err := pool.Submit(executor.Task{
//	    UnitID: "42",
//	    Class:  "tests",
//	    Run:    func(ctx context.Context) error { ... },
//	})
//	if err == nil {
//	    err = fut.Wait(ctx)
//	}
package executor
