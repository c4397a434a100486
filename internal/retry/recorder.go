package retry

import (
	"sync"
	"time"
)

// UnitState tracks retry attempts for one work unit.
type UnitState struct {
	UnitID    string    `json:"unit_id"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	LastTried time.Time `json:"last_tried,omitempty"`
	Succeeded bool      `json:"succeeded,omitempty"`
}

// Recorder keeps per-unit attempt history for diagnostics.
// Safe for concurrent use.
type Recorder struct {
	mu     sync.RWMutex
	states map[string]*UnitState

	// now is replaceable in tests.
	now func() time.Time
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		states: make(map[string]*UnitState),
		now:    time.Now,
	}
}

// RecordAttempt notes one attempt for a unit. A successful attempt
// marks the unit succeeded.
func (r *Recorder) RecordAttempt(unitID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[unitID]
	if !ok {
		state = &UnitState{UnitID: unitID}
		r.states[unitID] = state
	}

	state.Attempts++
	state.LastTried = r.now()
	if err != nil {
		state.LastError = err.Error()
	} else {
		state.Succeeded = true
		state.LastError = ""
	}
}

// State returns a copy of a unit's attempt state.
func (r *Recorder) State(unitID string) (UnitState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[unitID]
	if !ok {
		return UnitState{}, false
	}
	return *state, true
}

// Exhausted returns the IDs of units with at least maxAttempts failed
// attempts and no success.
func (r *Recorder) Exhausted(maxAttempts int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, state := range r.states {
		if !state.Succeeded && state.Attempts >= maxAttempts {
			out = append(out, id)
		}
	}
	return out
}
