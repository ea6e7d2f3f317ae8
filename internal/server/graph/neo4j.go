package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jRepository implements Repository on a Neo4j server. Nodes are
// :Memory vertices; tags and links are list properties and content is
// covered by the memory_content fulltext index.
type Neo4jRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

const fulltextIndex = "memory_content"

var neo4jSchema = []string{
	`CREATE CONSTRAINT memory_id IF NOT EXISTS FOR (n:Memory) REQUIRE n.id IS UNIQUE`,
	`CREATE FULLTEXT INDEX ` + fulltextIndex + ` IF NOT EXISTS FOR (n:Memory) ON EACH [n.content]`,
}

// NewNeo4j connects to Neo4j and ensures the constraint and fulltext index.
func NewNeo4j(ctx context.Context, cfg Neo4jConfig) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	for _, stmt := range neo4jSchema {
		_, err := neo4j.ExecuteQuery(ctx, driver, stmt, nil,
			neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(database))
		if err != nil {
			driver.Close(ctx)
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Neo4jRepository{driver: driver, database: database}, nil
}

// Close closes the Neo4j connection
func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Update runs fn in a managed write transaction. The driver may retry fn on
// transient errors, so fn must not have side effects outside tx.
func (r *Neo4jRepository) Update(ctx context.Context, fn func(tx Tx) error) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return err
}

// View runs fn in a managed read transaction.
func (r *Neo4jRepository) View(ctx context.Context, fn func(tx Tx) error) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return err
}

type neo4jTx struct {
	tx neo4j.ManagedTransaction
}

func (t *neo4jTx) Insert(ctx context.Context, node *Node) error {
	query := `
		MERGE (c:MemorySequence {name: 'nodes'})
		ON CREATE SET c.value = 0
		SET c.value = c.value + 1
		WITH c.value AS seq
		CREATE (n:Memory {
			id: $id,
			content: $content,
			tags: $tags,
			links: $links,
			source: $source,
			created_at: $created_at,
			last_accessed: $last_accessed,
			access_count: $access_count,
			seq: seq
		})
	`

	params := map[string]any{
		"id":            node.ID,
		"content":       node.Content,
		"tags":          nonNil(node.Tags),
		"links":         node.Links.IDs(),
		"source":        node.Source,
		"created_at":    formatTime(node.CreatedAt),
		"last_accessed": formatTime(node.LastAccessed),
		"access_count":  node.AccessCount,
	}

	if _, err := t.tx.Run(ctx, query, params); err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

func (t *neo4jTx) Get(ctx context.Context, id string) (*Node, error) {
	result, err := t.tx.Run(ctx, `MATCH (n:Memory {id: $id}) RETURN n`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("reading node %s: %w", id, err)
	}

	nodes, err := collectNodes(ctx, result, "n")
	if err != nil {
		return nil, fmt.Errorf("reading node %s: %w", id, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func (t *neo4jTx) Replace(ctx context.Context, id string, patch Patch) error {
	if patch.Empty() {
		return nil
	}

	var sets []string
	params := map[string]any{"id": id}

	if patch.Content != nil {
		sets = append(sets, "n.content = $content")
		params["content"] = *patch.Content
	}
	if patch.Tags != nil {
		sets = append(sets, "n.tags = $tags")
		params["tags"] = nonNil(*patch.Tags)
	}
	if patch.Links != nil {
		sets = append(sets, "n.links = $links")
		params["links"] = patch.Links.IDs()
	}

	query := `MATCH (n:Memory {id: $id}) SET ` + strings.Join(sets, ", ")
	if _, err := t.tx.Run(ctx, query, params); err != nil {
		return fmt.Errorf("updating node %s: %w", id, err)
	}
	return nil
}

func (t *neo4jTx) Delete(ctx context.Context, id string) error {
	if _, err := t.tx.Run(ctx, `MATCH (n:Memory {id: $id}) DELETE n`, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("deleting node %s: %w", id, err)
	}
	return nil
}

func (t *neo4jTx) Search(ctx context.Context, searchTerm string) ([]*Node, error) {
	luceneQuery := SanitizeLucene(searchTerm)
	if luceneQuery == "" {
		return []*Node{}, nil
	}

	query := `
		CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score
		RETURN node
		ORDER BY score DESC
	`

	result, err := t.tx.Run(ctx, query, map[string]any{"index": fulltextIndex, "query": luceneQuery})
	if err != nil {
		return nil, fmt.Errorf("searching nodes: %w", err)
	}
	return collectNodes(ctx, result, "node")
}

func (t *neo4jTx) All(ctx context.Context) ([]*Node, error) {
	result, err := t.tx.Run(ctx, `MATCH (n:Memory) RETURN n ORDER BY n.seq`, nil)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return collectNodes(ctx, result, "n")
}

func (t *neo4jTx) Touch(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UNWIND $ids AS id
		MATCH (n:Memory {id: id})
		SET n.last_accessed = $at, n.access_count = n.access_count + 1
	`

	if _, err := t.tx.Run(ctx, query, map[string]any{"ids": ids, "at": formatTime(at)}); err != nil {
		return fmt.Errorf("updating access: %w", err)
	}
	return nil
}

func collectNodes(ctx context.Context, result neo4j.ResultWithContext, key string) ([]*Node, error) {
	nodes := []*Node{}
	for result.Next(ctx) {
		value, ok := result.Record().Get(key)
		if !ok {
			return nil, fmt.Errorf("missing column %q", key)
		}
		n, ok := value.(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("column %q is %T, not a node", key, value)
		}
		node, err := nodeFromProps(n.Props)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func nodeFromProps(props map[string]any) (*Node, error) {
	node := &Node{
		ID:      stringProp(props, "id"),
		Content: stringProp(props, "content"),
		Tags:    stringsProp(props, "tags"),
		Links:   NewLinkSet(stringsProp(props, "links")...),
		Source:  stringProp(props, "source"),
	}
	if count, ok := props["access_count"].(int64); ok {
		node.AccessCount = count
	}

	var err error
	if node.CreatedAt, err = parseTime(stringProp(props, "created_at")); err != nil {
		return nil, err
	}
	if node.LastAccessed, err = parseTime(stringProp(props, "last_accessed")); err != nil {
		return nil, err
	}
	return node, nil
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func stringsProp(props map[string]any, key string) []string {
	out := []string{}
	values, _ := props[key].([]any)
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
