package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/logging"
)

// collectServer records webhook payloads.
type collectServer struct {
	mu       sync.Mutex
	messages []Message
	status   int
	received chan struct{}
}

func newCollectServer(status int) (*collectServer, *httptest.Server) {
	cs := &collectServer{status: status, received: make(chan struct{}, 16)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg Message
		_ = json.Unmarshal(body, &msg)
		cs.mu.Lock()
		cs.messages = append(cs.messages, msg)
		cs.mu.Unlock()
		w.WriteHeader(cs.status)
		cs.received <- struct{}{}
	}))
	return cs, srv
}

func (cs *collectServer) wait(t *testing.T, n int) []Message {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-cs.received:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d of %d", i+1, n)
		}
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]Message, len(cs.messages))
	copy(out, cs.messages)
	return out
}

func TestNotifierDeliversOutcomes(t *testing.T) {
	cs, srv := newCollectServer(http.StatusOK)
	defer srv.Close()

	bus := event.NewBus()
	n := New(srv.URL, logging.NopLogger())
	n.SubscribeTo(bus)

	bus.Publish(event.NewUnitResolvedEvent("42", "https://example.com/pull/7"))
	bus.Publish(event.NewUnitFailedEvent("43", "iteration cap reached"))
	bus.Publish(event.NewUnitSkippedEvent("44", "existing change-request #5"))

	messages := cs.wait(t, 3)

	byUnit := make(map[string]Message)
	for _, m := range messages {
		byUnit[m.UnitID] = m
	}
	if byUnit["42"].Outcome != "resolved" || byUnit["42"].Detail != "https://example.com/pull/7" {
		t.Errorf("resolved message = %+v", byUnit["42"])
	}
	if byUnit["43"].Outcome != "failed" {
		t.Errorf("failed message = %+v", byUnit["43"])
	}
	if byUnit["44"].Outcome != "skipped" {
		t.Errorf("skipped message = %+v", byUnit["44"])
	}
}

func TestNotifierIgnoresDeliveryFailure(t *testing.T) {
	cs, srv := newCollectServer(http.StatusInternalServerError)
	defer srv.Close()

	bus := event.NewBus()
	n := New(srv.URL, logging.NopLogger())
	n.SubscribeTo(bus)

	// Publish must not panic or block even though the server rejects.
	bus.Publish(event.NewUnitFailedEvent("43", "boom"))
	cs.wait(t, 1)
}

func TestNotifierDisabledWithoutURL(t *testing.T) {
	bus := event.NewBus()
	n := New("", logging.NopLogger())
	n.SubscribeTo(bus)

	// No URL configured: publishing is a no-op, not an error.
	bus.Publish(event.NewUnitResolvedEvent("42", ""))
}
