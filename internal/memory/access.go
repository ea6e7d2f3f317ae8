package memory

import (
	"context"

	"github.com/flood-ai/flood-memory/internal/server/graph"
)

// touch records one access for each node and returns the nodes as stored
// afterwards, in the same order.
func (s *Store) touch(ctx context.Context, tx graph.Tx, nodes []*graph.Node) ([]*graph.Node, error) {
	if len(nodes) == 0 {
		return []*graph.Node{}, nil
	}

	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}

	if err := tx.Touch(ctx, ids, s.now().UTC()); err != nil {
		return nil, err
	}

	out := make([]*graph.Node, 0, len(ids))
	for _, id := range ids {
		n, err := tx.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}
