package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestLockError_Formatting(t *testing.T) {
	err := NewLockError("acquire failed", ErrLockBackendUnavailable).WithKey("unit-42")

	want := "lock error [key=unit-42]: acquire failed: lock backend unavailable"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrLockBackendUnavailable) {
		t.Error("LockError should match its cause via errors.Is")
	}
}

func TestPipelineError_Context(t *testing.T) {
	err := NewPipelineError("engine timed out", ErrEngineFailed).
		WithUnit("17").
		WithIteration(3)

	got := err.Error()
	want := "pipeline error [unit=17, iteration=3]: engine timed out: engine execution failed"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	var pe *PipelineError
	if !As(err, &pe) {
		t.Fatal("errors.As should find PipelineError")
	}
	if pe.UnitID != "17" {
		t.Errorf("expected unit 17, got %q", pe.UnitID)
	}
}

func TestExternalError_RetryableByDefault(t *testing.T) {
	err := NewExternalError("changereq", "create failed", fmt.Errorf("connection reset"))
	if !IsRetryable(err) {
		t.Error("external errors should be retryable by default")
	}

	fatal := NewExternalError("tracker", "bad credentials", nil).WithRetryable(false)
	if IsRetryable(fatal) {
		t.Error("WithRetryable(false) should make the error non-retryable")
	}
}

func TestIsRetryable_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", New("boom"), false},
		{"timeout sentinel", ErrTimeout, true},
		{"timeout type", NewTimeoutError("engine run", 30*time.Second), true},
		{"wrapped timeout", fmt.Errorf("run: %w", ErrTimeout), true},
		{"lock contention", NewLockError("busy", ErrLockHeld), false},
		{"external", NewExternalError("tracker", "503", nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSeverityOf(t *testing.T) {
	if got := SeverityOf(NewLockError("busy", ErrLockHeld)); got != SeverityWarning {
		t.Errorf("lock errors should be warnings, got %v", got)
	}
	if got := SeverityOf(NewPipelineError("cap", ErrIterationCapReached)); got != SeverityError {
		t.Errorf("pipeline errors should be errors, got %v", got)
	}
	if got := SeverityOf(New("plain")); got != SeverityError {
		t.Errorf("unclassified errors default to error severity, got %v", got)
	}
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := NewValidationError("lock.ttl_seconds", "must be positive")
	if !Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}
