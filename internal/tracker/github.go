package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/quell-dev/quell/internal/errors"
)

// CommandExecutor runs a command and returns its combined output.
// Injectable for tests.
type CommandExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)

var defaultExecutor CommandExecutor = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// GitHubClient implements Client over the gh CLI.
type GitHubClient struct {
	executor CommandExecutor
}

// NewGitHubClient creates a GitHubClient using the default executor.
func NewGitHubClient() *GitHubClient {
	return &GitHubClient{executor: defaultExecutor}
}

// NewGitHubClientWithExecutor creates a GitHubClient with a custom
// command executor for testing.
func NewGitHubClientWithExecutor(executor CommandExecutor) *GitHubClient {
	return &GitHubClient{executor: executor}
}

// ghIssue is the gh CLI's JSON shape for one issue.
type ghIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// ListOpen enumerates open issues as work units.
func (g *GitHubClient) ListOpen(ctx context.Context) ([]WorkUnit, error) {
	output, err := g.executor(ctx, "gh", "issue", "list",
		"--state", "open",
		"--json", "number,title,body,labels,createdAt",
	)
	if err != nil {
		return nil, g.classifyError("list issues", err, output)
	}

	var issues []ghIssue
	if err := json.Unmarshal(output, &issues); err != nil {
		return nil, errors.NewExternalError("tracker", "unparseable issue list", err).WithRetryable(false)
	}

	units := make([]WorkUnit, 0, len(issues))
	for _, is := range issues {
		labels := make([]string, 0, len(is.Labels))
		for _, l := range is.Labels {
			labels = append(labels, l.Name)
		}
		units = append(units, WorkUnit{
			ID:        strconv.Itoa(is.Number),
			Title:     is.Title,
			Body:      is.Body,
			Labels:    labels,
			CreatedAt: is.CreatedAt,
			State:     StateDiscovered,
		})
	}
	return units, nil
}

// Annotate posts a comment on the issue.
func (g *GitHubClient) Annotate(ctx context.Context, unitID, message string) error {
	if unitID == "" {
		return errors.NewValidationError("unitID", "must not be empty")
	}

	output, err := g.executor(ctx, "gh", "issue", "comment", unitID, "--body", message)
	if err != nil {
		return g.classifyError("comment on issue "+unitID, err, output)
	}
	return nil
}

// classifyError maps gh CLI failures onto the error taxonomy. A missing
// gh binary or auth failure is not retryable; everything else is
// treated as transient.
func (g *GitHubClient) classifyError(op string, err error, output []byte) error {
	outStr := strings.ToLower(string(output))

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errors.NewExternalError("tracker", "gh CLI not available", execErr).WithRetryable(false)
	}

	if strings.Contains(outStr, "not logged in") ||
		strings.Contains(outStr, "authentication required") ||
		strings.Contains(outStr, "gh auth login") {
		return errors.NewExternalError("tracker", "gh authentication required", err).WithRetryable(false)
	}

	msg := fmt.Sprintf("%s failed: %s", op, strings.TrimSpace(string(output)))
	return errors.NewExternalError("tracker", msg, err)
}
