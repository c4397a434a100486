// Package ledger persists the terminal outcome of every processed work
// unit. The scheduler consults it to avoid reprocessing units across
// restarts. Storage is an append-only JSONL file protected by flock(2)
// so concurrent quell processes sharing a data directory do not
// interleave writes.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const ledgerFileName = "ledger.jsonl"

// Outcome is a terminal processing outcome.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one recorded terminal outcome.
type Entry struct {
	UnitID     string    `json:"unit_id"`
	Outcome    Outcome   `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Ledger is the durable processed-unit record. Safe for concurrent use
// in-process; cross-process appends are serialized by flock.
type Ledger struct {
	mu   sync.RWMutex
	path string
	lock *fileLock
	seen map[string]Entry

	// now is replaceable in tests.
	now func() time.Time
}

// Open loads (or creates) the ledger in the given directory.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	l := &Ledger{
		path: filepath.Join(dir, ledgerFileName),
		lock: newFileLock(dir),
		seen: make(map[string]Entry),
		now:  time.Now,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// load reads the existing ledger file into the seen set. Corrupt lines
// (e.g. from a crash mid-append) are skipped, not fatal.
func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		l.seen[e.UnitID] = e
	}
	return scanner.Err()
}

// Has reports whether the unit already has a recorded terminal outcome.
func (l *Ledger) Has(unitID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[unitID]
	return ok
}

// Get returns the recorded entry for a unit, if any.
func (l *Ledger) Get(unitID string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.seen[unitID]
	return e, ok
}

// Len returns the number of recorded units.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.seen)
}

// Append durably records a terminal outcome for a unit. The write is
// a single appended line under an exclusive flock.
func (l *Ledger) Append(unitID string, outcome Outcome, detail string) error {
	entry := Entry{
		UnitID:     unitID,
		Outcome:    outcome,
		Detail:     detail,
		RecordedAt: l.now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding ledger entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = l.lock.Unlock() }()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("appending ledger entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing ledger: %w", err)
	}

	l.seen[unitID] = entry
	return nil
}

// Entries returns all recorded entries, in no particular order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.seen))
	for _, e := range l.seen {
		out = append(out, e)
	}
	return out
}
