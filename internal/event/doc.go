// Package event defines the synchronous pub-sub bus and event types used
// to decouple quell's components. The processor, executor, and lock
// backends publish lifecycle events; the notifier and audit trail
// subscribe without any direct dependency on the publishers.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	id := bus.Subscribe("unit.resolved", func(e event.Event) { ... })
//	bus.Publish(event.NewUnitResolvedEvent("42", prURL))
//	bus.Unsubscribe(id)
//
// Handlers run synchronously on the publishing goroutine. A panicking
// handler is recovered and logged; remaining handlers still run.
package event
