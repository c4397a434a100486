// Package guard detects work units that already have a resolution
// artifact. It scans open and closed change-requests for the embedded
// "Refs: <id>" marker in title or body; branch names are never trusted
// alone because they may collide or be reused.
package guard

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/sync/singleflight"

	"github.com/quell-dev/quell/internal/changereq"
	"github.com/quell-dev/quell/internal/logging"
)

// Guard answers whether a unit already has an existing resolution.
// Concurrent lookups for the same unit share one change-request scan.
type Guard struct {
	client changereq.Client
	logger *logging.Logger
	group  singleflight.Group
}

// New creates a Guard over the given change-request client.
func New(client changereq.Client, logger *logging.Logger) *Guard {
	return &Guard{
		client: client,
		logger: logger.WithComponent("guard"),
	}
}

// HasExistingResolution reports whether any change-request, open or
// closed, references the unit. Called once per unit per scheduler pass,
// after lock acquisition and before engine execution.
func (g *Guard) HasExistingResolution(ctx context.Context, unitID string) (bool, error) {
	v, err, _ := g.group.Do(unitID, func() (any, error) {
		return g.scan(ctx, unitID)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (g *Guard) scan(ctx context.Context, unitID string) (bool, error) {
	crs, err := g.client.List(ctx)
	if err != nil {
		return false, err
	}

	marker := markerPattern(unitID)
	for _, cr := range crs {
		if marker.MatchString(cr.Title) || marker.MatchString(cr.Body) {
			g.logger.Info("existing resolution found",
				"unit_id", unitID, "cr_number", cr.Number, "cr_state", cr.State)
			return true, nil
		}
	}
	return false, nil
}

// markerPattern matches "Refs: <id>" as a whole token, so unit "4"
// does not match "Refs: 42".
func markerPattern(unitID string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`Refs:\s*%s\b`, regexp.QuoteMeta(unitID)))
}
