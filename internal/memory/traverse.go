package memory

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flood-ai/flood-memory/internal/server/graph"
)

// DefaultDepth is the traversal depth used when callers give none.
const DefaultDepth = 1

// Connection is a node reached by traversal and its hop distance from the
// start node.
type Connection struct {
	*graph.Node
	Distance int `json:"distance"`
}

// Connections walks the link graph breadth-first from id, up to depth hops.
// The start node comes first with distance 0; each node appears once, at the
// distance where it was first reached. Every returned node is counted as
// accessed. Negative depth is treated as 0.
func (s *Store) Connections(ctx context.Context, id string, depth int) ([]*Connection, error) {
	ctx, span := s.tracer.Start(ctx, "memory.Connections", trace.WithAttributes(
		attribute.String("node.id", id),
		attribute.Int("depth", depth),
	))
	defer span.End()

	if depth < 0 {
		depth = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*Connection
	err := s.repo.Update(ctx, func(tx graph.Tx) error {
		start, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if start == nil {
			return ErrNotFound
		}

		visited, distances, err := breadthFirst(ctx, tx, start, depth)
		if err != nil {
			return err
		}

		touched, err := s.touch(ctx, tx, visited)
		if err != nil {
			return err
		}

		result = make([]*Connection, len(touched))
		for i, n := range touched {
			result[i] = &Connection{Node: n, Distance: distances[n.ID]}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, wrapOp("traversing connections", err))
	}

	span.SetAttributes(attribute.Int("result.count", len(result)))
	return result, nil
}

// breadthFirst returns nodes in visit order and their distances from start.
// Nodes at depth are included but not expanded. Links to missing nodes are
// skipped.
func breadthFirst(ctx context.Context, tx graph.Tx, start *graph.Node, depth int) ([]*graph.Node, map[string]int, error) {
	distances := map[string]int{start.ID: 0}
	visited := []*graph.Node{start}

	for next := 0; next < len(visited); next++ {
		current := visited[next]
		d := distances[current.ID]
		if d >= depth {
			continue
		}

		for _, neighborID := range current.Links.IDs() {
			if _, seen := distances[neighborID]; seen {
				continue
			}
			neighbor, err := tx.Get(ctx, neighborID)
			if err != nil {
				return nil, nil, err
			}
			if neighbor == nil {
				continue
			}
			distances[neighborID] = d + 1
			visited = append(visited, neighbor)
		}
	}
	return visited, distances, nil
}
