package tracker

import (
	"context"
	"strings"
	"testing"

	"github.com/quell-dev/quell/internal/errors"
)

func TestListOpen(t *testing.T) {
	payload := `[
		{"number": 42, "title": "Flaky test in parser", "body": "Details", "createdAt": "2026-08-01T10:00:00Z", "labels": [{"name": "bug"}, {"name": "tests"}]},
		{"number": 43, "title": "Docs typo", "body": "", "createdAt": "2026-08-02T10:00:00Z", "labels": []}
	]`
	var gotArgs []string
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(payload), nil
	})

	units, err := c.ListOpen(context.Background())
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].ID != "42" || units[0].Title != "Flaky test in parser" {
		t.Errorf("unit[0] = %+v", units[0])
	}
	if len(units[0].Labels) != 2 || units[0].Labels[0] != "bug" {
		t.Errorf("unit[0].Labels = %v", units[0].Labels)
	}
	if units[0].State != StateDiscovered {
		t.Errorf("unit[0].State = %v, want %v", units[0].State, StateDiscovered)
	}
	if gotArgs[0] != "gh" || gotArgs[1] != "issue" || gotArgs[2] != "list" {
		t.Errorf("command = %v", gotArgs)
	}
}

func TestListOpenUnparseable(t *testing.T) {
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("not json"), nil
	})

	if _, err := c.ListOpen(context.Background()); err == nil {
		t.Fatal("expected error for unparseable output")
	} else if errors.IsRetryable(err) {
		t.Error("parse failure should not be retryable")
	}
}

func TestAnnotate(t *testing.T) {
	var gotArgs []string
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return nil, nil
	})

	if err := c.Annotate(context.Background(), "42", "resolved by change request #7"); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "issue comment 42") {
		t.Errorf("command = %q", joined)
	}
}

func TestAnnotateEmptyID(t *testing.T) {
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("executor should not run")
		return nil, nil
	})

	if err := c.Annotate(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestClassifyAuthError(t *testing.T) {
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("To get started with GitHub CLI, please run: gh auth login"), errors.New("exit status 4")
	})

	_, err := c.ListOpen(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.IsRetryable(err) {
		t.Error("auth failure should not be retryable")
	}
}

func TestTransientFailureIsRetryable(t *testing.T) {
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("error connecting to api.github.com"), errors.New("exit status 1")
	})

	_, err := c.ListOpen(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsRetryable(err) {
		t.Error("network failure should be retryable")
	}
}

func TestUnitStateTerminal(t *testing.T) {
	tests := []struct {
		state UnitState
		want  bool
	}{
		{StateDiscovered, false},
		{StateLocked, false},
		{StateProcessing, false},
		{StateJudging, false},
		{StateResolved, true},
		{StateSkipped, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%v.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
