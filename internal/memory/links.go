package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/server/graph"
)

// resolveLinks turns requested ids into the link set of node self. The node's
// own id is dropped silently; ids with no node behind them are dropped with a
// warning.
func (s *Store) resolveLinks(ctx context.Context, tx graph.Tx, self string, requested []string) (graph.LinkSet, error) {
	var links graph.LinkSet
	for _, id := range requested {
		if id == self || links.Contains(id) {
			continue
		}

		node, err := tx.Get(ctx, id)
		if err != nil {
			return graph.LinkSet{}, err
		}
		if node == nil {
			s.logger.Warn("skipping link to nonexistent node",
				zap.String("node_id", self),
				zap.String("link_id", id))
			continue
		}
		links.Add(id)
	}
	return links, nil
}

// addBackLink records id in the links of neighbor. It reports whether the
// neighbor changed; a missing neighbor is not an error.
func addBackLink(ctx context.Context, tx graph.Tx, neighbor, id string) (bool, error) {
	node, err := tx.Get(ctx, neighbor)
	if err != nil || node == nil {
		return false, err
	}
	if !node.Links.Add(id) {
		return false, nil
	}
	return true, tx.Replace(ctx, neighbor, graph.Patch{Links: &node.Links})
}

// removeBackLink drops id from the links of neighbor.
func removeBackLink(ctx context.Context, tx graph.Tx, neighbor, id string) (bool, error) {
	node, err := tx.Get(ctx, neighbor)
	if err != nil || node == nil {
		return false, err
	}
	if !node.Links.Remove(id) {
		return false, nil
	}
	return true, tx.Replace(ctx, neighbor, graph.Patch{Links: &node.Links})
}
