package event

import (
	"sync"
	"testing"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var received Event
	bus.Subscribe("unit.resolved", func(e Event) {
		received = e
	})

	bus.Publish(NewUnitResolvedEvent("42", "https://example.com/pr/1"))

	if received == nil {
		t.Fatal("handler should have received the event")
	}
	if received.EventType() != "unit.resolved" {
		t.Errorf("expected event type 'unit.resolved', got %q", received.EventType())
	}
	resolved := received.(UnitResolvedEvent)
	if resolved.UnitID != "42" {
		t.Errorf("expected unit id 42, got %q", resolved.UnitID)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe("unit.failed", func(e Event) { calls++ })

	bus.Publish(NewUnitFailedEvent("7", "cap reached"))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should report success for a live subscription")
	}
	bus.Publish(NewUnitFailedEvent("7", "cap reached"))

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should report false for a removed subscription")
	}
}

func TestBus_WildcardReceivesAll(t *testing.T) {
	bus := NewBus()

	var types []string
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewUnitSkippedEvent("1", "duplicate"))
	bus.Publish(NewWidthChangedEvent(4, 2, 0.93, "pressure"))

	if len(types) != 2 {
		t.Fatalf("expected 2 events, got %d", len(types))
	}
	if types[0] != "unit.skipped" || types[1] != "executor.width_changed" {
		t.Errorf("unexpected event order: %v", types)
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("breaker.state_changed", func(e Event) {
		panic("boom")
	})

	called := false
	bus.Subscribe("breaker.state_changed", func(e Event) {
		called = true
	})

	bus.Publish(NewBreakerStateChangedEvent("tests", "closed", "open", "5 consecutive failures"))

	if !called {
		t.Error("second handler should run despite first handler panicking")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe("lock.released", func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewLockReleasedEvent("unit-1", "worker-a"))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("expected 50 deliveries, got %d", count)
	}
}
