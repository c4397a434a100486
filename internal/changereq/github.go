package changereq

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

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

// Create opens a pull request for the unit.
func (g *GitHubClient) Create(ctx context.Context, opts CreateOptions) (*ChangeRequest, error) {
	if opts.UnitID == "" {
		return nil, errors.NewValidationError("unitID", "must not be empty")
	}
	if opts.SourceBranch == "" {
		return nil, errors.NewValidationError("sourceBranch", "must not be empty")
	}

	body, err := RenderBody(opts)
	if err != nil {
		return nil, errors.NewExternalError("changereq", "building request body", err).WithRetryable(false)
	}

	args := []string{"pr", "create",
		"--title", opts.Title,
		"--body", body,
		"--head", opts.SourceBranch,
	}
	if opts.TargetBranch != "" {
		args = append(args, "--base", opts.TargetBranch)
	}
	if opts.Draft {
		args = append(args, "--draft")
	}
	for _, label := range opts.Labels {
		args = append(args, "--label", label)
	}

	output, err := g.executor(ctx, "gh", args...)
	if err != nil {
		return nil, g.classifyError("create change-request", err, output)
	}

	url := strings.TrimSpace(string(output))
	number, err := parseNumber(url)
	if err != nil {
		return nil, errors.NewExternalError("changereq", "unparseable pr url: "+url, err).WithRetryable(false)
	}

	return &ChangeRequest{
		Number:     number,
		Title:      opts.Title,
		Body:       body,
		State:      "OPEN",
		URL:        url,
		HeadBranch: opts.SourceBranch,
	}, nil
}

// ghPull is the gh CLI's JSON shape for one pull request.
type ghPull struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	State       string `json:"state"`
	URL         string `json:"url"`
	HeadRefName string `json:"headRefName"`
}

// List returns pull requests in all states.
func (g *GitHubClient) List(ctx context.Context) ([]ChangeRequest, error) {
	output, err := g.executor(ctx, "gh", "pr", "list",
		"--state", "all",
		"--limit", "200",
		"--json", "number,title,body,state,url,headRefName",
	)
	if err != nil {
		return nil, g.classifyError("list change-requests", err, output)
	}

	var pulls []ghPull
	if err := json.Unmarshal(output, &pulls); err != nil {
		return nil, errors.NewExternalError("changereq", "unparseable pr list", err).WithRetryable(false)
	}

	out := make([]ChangeRequest, 0, len(pulls))
	for _, p := range pulls {
		out = append(out, ChangeRequest{
			Number:     p.Number,
			Title:      p.Title,
			Body:       p.Body,
			State:      p.State,
			URL:        p.URL,
			HeadBranch: p.HeadRefName,
		})
	}
	return out, nil
}

// classifyError maps gh CLI failures onto the error taxonomy.
func (g *GitHubClient) classifyError(op string, err error, output []byte) error {
	outStr := strings.ToLower(string(output))

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errors.NewExternalError("changereq", "gh CLI not available", execErr).WithRetryable(false)
	}

	if strings.Contains(outStr, "not logged in") ||
		strings.Contains(outStr, "authentication required") ||
		strings.Contains(outStr, "gh auth login") {
		return errors.NewExternalError("changereq", "gh authentication required", err).WithRetryable(false)
	}

	if strings.Contains(outStr, "already exists") {
		return errors.NewExternalError("changereq", "change-request already exists", err).WithRetryable(false)
	}

	msg := fmt.Sprintf("%s failed: %s", op, strings.TrimSpace(string(output)))
	return errors.NewExternalError("changereq", msg, err)
}

var pullURLPattern = regexp.MustCompile(`/pull/(\d+)`)

// parseNumber extracts the pull request number from a gh output URL,
// e.g. https://github.com/owner/repo/pull/123.
func parseNumber(url string) (int, error) {
	m := pullURLPattern.FindStringSubmatch(url)
	if m == nil {
		return 0, fmt.Errorf("no pull request number in %q", url)
	}
	return strconv.Atoi(m[1])
}
