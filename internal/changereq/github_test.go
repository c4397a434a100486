package changereq

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/quell-dev/quell/internal/errors"
)

func TestBranchName(t *testing.T) {
	at := time.Date(2026, 8, 31, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name        string
		timestamped bool
		want        string
	}{
		{"plain", false, "quell/unit-42"},
		{"timestamped", true, "quell/unit-42-20260831-123045"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BranchName("quell", "42", tt.timestamped, at); got != tt.want {
				t.Errorf("BranchName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBodyEmbedsRefMarker(t *testing.T) {
	body, err := RenderBody(CreateOptions{
		UnitID:    "42",
		Summary:   "Adds three tests for the parser.",
		Rationale: "coverage 97.0 meets threshold 95.0",
	})
	if err != nil {
		t.Fatalf("RenderBody: %v", err)
	}
	if !strings.Contains(body, "Refs: 42") {
		t.Errorf("body missing reference marker:\n%s", body)
	}
	if !strings.Contains(body, "coverage 97.0") {
		t.Errorf("body missing rationale:\n%s", body)
	}
}

func TestCreate(t *testing.T) {
	var gotArgs []string
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("https://github.com/acme/repo/pull/7\n"), nil
	})

	cr, err := c.Create(context.Background(), CreateOptions{
		UnitID:       "42",
		Title:        "Fix flaky parser test",
		Summary:      "Stabilizes the parser test.",
		Rationale:    "approved",
		SourceBranch: "quell/unit-42",
		TargetBranch: "main",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cr.Number != 7 {
		t.Errorf("Number = %d, want 7", cr.Number)
	}
	if cr.State != "OPEN" {
		t.Errorf("State = %q, want OPEN", cr.State)
	}
	if !strings.Contains(cr.Body, "Refs: 42") {
		t.Errorf("created body missing reference marker:\n%s", cr.Body)
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "pr create") || !strings.Contains(joined, "--base main") {
		t.Errorf("command = %q", joined)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("executor should not run")
		return nil, nil
	})

	if _, err := c.Create(context.Background(), CreateOptions{SourceBranch: "b"}); err == nil {
		t.Error("expected error for empty unit id")
	}
	if _, err := c.Create(context.Background(), CreateOptions{UnitID: "42"}); err == nil {
		t.Error("expected error for empty source branch")
	}
}

func TestList(t *testing.T) {
	payload := `[
		{"number": 7, "title": "Fix parser", "body": "Refs: 42", "state": "MERGED", "url": "u", "headRefName": "quell/unit-42"},
		{"number": 8, "title": "Docs", "body": "Refs: 43", "state": "OPEN", "url": "u", "headRefName": "quell/unit-43"}
	]`
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "--state all") {
			t.Errorf("List must query all states, got %q", joined)
		}
		return []byte(payload), nil
	})

	crs, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(crs) != 2 {
		t.Fatalf("got %d change-requests, want 2", len(crs))
	}
	if crs[0].State != "MERGED" || crs[0].Number != 7 {
		t.Errorf("crs[0] = %+v", crs[0])
	}
}

func TestCreateUnparseableURL(t *testing.T) {
	c := NewGitHubClientWithExecutor(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("something unexpected"), nil
	})

	_, err := c.Create(context.Background(), CreateOptions{
		UnitID: "42", Title: "t", SourceBranch: "b",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.IsRetryable(err) {
		t.Error("parse failure should not be retryable")
	}
}
