// Package changereq creates and lists change-requests (pull requests)
// through the gh CLI. Change-request bodies embed the work unit id as a
// "Refs: <id>" marker so the duplicate guard can find prior resolutions
// without relying on branch names.
package changereq

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// RefMarker formats the reference marker embedded in change-request
// bodies for a unit id.
func RefMarker(unitID string) string {
	return "Refs: " + unitID
}

// ChangeRequest is one change-request as seen through the client.
type ChangeRequest struct {
	Number     int
	Title      string
	Body       string
	State      string // OPEN, MERGED, or CLOSED
	URL        string
	HeadBranch string
}

// CreateOptions describe a change-request to open.
type CreateOptions struct {
	UnitID       string
	Title        string
	Summary      string // what the change does
	Rationale    string // the approving judgment's rationale
	SourceBranch string
	TargetBranch string
	Draft        bool
	Labels       []string
}

// Client is the change-request system surface.
type Client interface {
	// Create opens a change-request.
	Create(ctx context.Context, opts CreateOptions) (*ChangeRequest, error)

	// List returns change-requests in all states, open and closed.
	List(ctx context.Context) ([]ChangeRequest, error)
}

// BranchName builds the source branch name for a unit. With timestamps
// enabled the suffix avoids collisions when a branch name is reused
// across passes.
func BranchName(prefix, unitID string, timestamped bool, now time.Time) string {
	name := fmt.Sprintf("%s/unit-%s", prefix, unitID)
	if timestamped {
		name += "-" + now.UTC().Format("20060102-150405")
	}
	return name
}

var bodyTemplate = template.Must(template.New("body").Parse(`## Summary

{{.Summary}}

## Judgment

{{.Rationale}}

---
Refs: {{.UnitID}}
`))

// RenderBody builds the change-request body, embedding the unit id
// verbatim as a reference marker.
func RenderBody(opts CreateOptions) (string, error) {
	var sb strings.Builder
	if err := bodyTemplate.Execute(&sb, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}
