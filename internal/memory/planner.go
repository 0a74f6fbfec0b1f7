package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"graphmem/internal/store"
)

// planDeletions asks the deletion-proposal service which existing
// relationships the new text supersedes. Failures are soft: a broken proposal
// round never blocks ingestion, it just deletes nothing.
func (m *Memory) planDeletions(ctx context.Context, neighborhood []store.RelationHit, text string, filters store.Filters) []store.Triple {
	if len(neighborhood) == 0 {
		return nil
	}

	proposals, err := m.extractor.ProposeDeletions(ctx, serializeNeighborhood(neighborhood), text, filters.UserID)
	if err != nil {
		m.logger.Warn("Deletion planning failed", zap.Error(err))
		return nil
	}
	return proposals
}

// serializeNeighborhood renders existing edges one per line in the
// "source -- relationship -- destination" format the proposal service expects.
func serializeNeighborhood(hits []store.RelationHit) string {
	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s -- %s -- %s", hit.Source, hit.Relationship, hit.Destination)
	}
	return b.String()
}
