package ledger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestAppendAndHas(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if l.Has("42") {
		t.Error("Has(42) on empty ledger")
	}

	if err := l.Append("42", OutcomeResolved, "change-request #7"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if !l.Has("42") {
		t.Error("Has(42) after append = false")
	}
	e, ok := l.Get("42")
	if !ok {
		t.Fatal("Get(42) not found")
	}
	if e.Outcome != OutcomeResolved || e.Detail != "change-request #7" {
		t.Errorf("entry = %+v", e)
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Append("42", OutcomeResolved, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append("43", OutcomeFailed, "iteration cap"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A fresh open simulates a scheduler restart.
	l2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !l2.Has("42") || !l2.Has("43") {
		t.Error("entries lost across reopen")
	}
	if l2.Len() != 2 {
		t.Errorf("Len = %d, want 2", l2.Len())
	}
	e, _ := l2.Get("43")
	if e.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %v, want %v", e.Outcome, OutcomeFailed)
	}
}

func TestSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ledgerFileName)
	content := `{"unit_id":"42","outcome":"resolved","recorded_at":"2026-08-01T10:00:00Z"}
this line is garbage
{"unit_id":"43","outcome":"skipped","recorded_at":"2026-08-01T11:00:00Z"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seeding ledger: %v", err)
	}

	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !l.Has("42") || !l.Has("43") {
		t.Error("valid entries not loaded around corrupt line")
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
}

func TestConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			if err := l.Append(id, OutcomeResolved, ""); err != nil {
				t.Errorf("Append %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if l.Len() != n {
		t.Errorf("Len = %d, want %d", l.Len(), n)
	}

	// Every entry must be durably readable by a fresh open.
	l2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if l2.Len() != n {
		t.Errorf("reopened Len = %d, want %d", l2.Len(), n)
	}
}

func TestLatestOutcomeWins(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := l.Append("42", OutcomeFailed, "first try"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append("42", OutcomeResolved, "second try"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	e, _ := l.Get("42")
	if e.Outcome != OutcomeResolved {
		t.Errorf("Outcome = %v, want %v (append-only file, latest wins in memory)", e.Outcome, OutcomeResolved)
	}

	l2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	e, _ = l2.Get("42")
	if e.Outcome != OutcomeResolved {
		t.Errorf("reopened Outcome = %v, want %v", e.Outcome, OutcomeResolved)
	}
}
