package graph

import (
	"context"
	"time"
)

// Tx is the set of primitive node operations available inside one
// transaction. Both SQLite and Neo4j implement it.
type Tx interface {
	// Insert stores a new node and indexes its content.
	Insert(ctx context.Context, node *Node) error

	// Get returns the node with the given id, or nil when it does not exist.
	Get(ctx context.Context, id string) (*Node, error)

	// Replace overwrites the fields set in patch. A content change is
	// reindexed in the same transaction.
	Replace(ctx context.Context, id string, patch Patch) error

	// Delete removes the node and its index entry.
	Delete(ctx context.Context, id string) error

	// Search returns the nodes whose content matches query, best match first.
	// Every whitespace-separated token of query is matched literally.
	Search(ctx context.Context, query string) ([]*Node, error)

	// All returns every node in insertion order.
	All(ctx context.Context) ([]*Node, error)

	// Touch increments access_count and sets last_accessed for each id.
	Touch(ctx context.Context, ids []string, at time.Time) error
}

// Repository defines the interface for node storage backends.
type Repository interface {
	// Update runs fn in a read-write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a transaction that is never committed.
	View(ctx context.Context, fn func(tx Tx) error) error

	Close(ctx context.Context) error
}
