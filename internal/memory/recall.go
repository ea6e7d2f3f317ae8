package memory

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flood-ai/flood-memory/internal/server/graph"
)

// DefaultLimit caps recall results when no limit is given.
const DefaultLimit = 10

// RecallQuery selects nodes by full-text query, tags, or both. A nil Limit
// means DefaultLimit; zero or less returns nothing.
type RecallQuery struct {
	Query string
	Tags  []string
	Limit *int
}

// Recall returns up to Limit nodes matching the query (best match first) that
// carry every tag in Tags. Without a query, candidates come in insertion
// order. Every returned node is counted as accessed. An empty query with no
// tags matches nothing.
func (s *Store) Recall(ctx context.Context, q RecallQuery) ([]*graph.Node, error) {
	ctx, span := s.tracer.Start(ctx, "memory.Recall")
	defer span.End()

	query := strings.TrimSpace(q.Query)
	if query == "" && len(q.Tags) == 0 {
		return []*graph.Node{}, nil
	}

	limit := DefaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit <= 0 {
		return []*graph.Node{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*graph.Node
	err := s.repo.Update(ctx, func(tx graph.Tx) error {
		var candidates []*graph.Node
		var err error
		if query != "" {
			candidates, err = tx.Search(ctx, query)
		} else {
			candidates, err = tx.All(ctx)
		}
		if err != nil {
			return err
		}

		// limit comes from the caller and may be far larger than the graph.
		var matched []*graph.Node
		for _, n := range candidates {
			if len(matched) == limit {
				break
			}
			if hasAllTags(n, q.Tags) {
				matched = append(matched, n)
			}
		}

		results, err = s.touch(ctx, tx, matched)
		return err
	})
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("recalling nodes: %w", err))
	}

	span.SetAttributes(attribute.Int("result.count", len(results)))
	return results, nil
}

func hasAllTags(n *graph.Node, want []string) bool {
	for _, tag := range want {
		found := false
		for _, have := range n.Tags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
