package executor

import (
	"sync"
	"time"
)

// Window tracks recent task completions for throughput and error-rate
// calculations. Entries older than the span are dropped lazily.
// Safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	span    time.Duration
	entries []windowEntry

	// now is replaceable in tests.
	now func() time.Time
}

type windowEntry struct {
	at     time.Time
	failed bool
}

// NewWindow creates a Window covering the given span.
func NewWindow(span time.Duration) *Window {
	return &Window{
		span: span,
		now:  time.Now,
	}
}

// Observe records one finished task.
func (w *Window) Observe(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, windowEntry{at: w.now(), failed: failed})
	w.pruneLocked()
}

// Stats returns completions/second and the failure share over the span.
func (w *Window) Stats() (throughput, errorRate float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked()
	n := len(w.entries)
	if n == 0 {
		return 0, 0
	}

	failed := 0
	for _, e := range w.entries {
		if e.failed {
			failed++
		}
	}
	return float64(n) / w.span.Seconds(), float64(failed) / float64(n)
}

// pruneLocked drops entries older than the span. Caller holds the lock.
func (w *Window) pruneLocked() {
	cutoff := w.now().Add(-w.span)
	i := 0
	for ; i < len(w.entries); i++ {
		if w.entries[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		w.entries = w.entries[i:]
	}
}
