package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Repository using SQLite with an FTS5 index.
//
// The pool is capped at one connection, so the database behaves as a single
// shared session: transactions from concurrent callers run one after another.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and applies the schema.
// dbPath may be ":memory:".
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify connectivity
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, pragma := range connectionPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the SQLite connection
func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

// Update runs fn inside a read-write transaction.
func (r *SQLiteRepository) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (r *SQLiteRepository) View(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{tx: tx})
}

// sqliteTx implements Tx on a single *sql.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

const nodeColumns = `id, content, tags, links, source, created_at, last_accessed, access_count`

// Insert stores a new node. The insert trigger indexes its content.
func (t *sqliteTx) Insert(ctx context.Context, node *Node) error {
	tagsJSON, err := json.Marshal(nonNil(node.Tags))
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}
	linksJSON, err := json.Marshal(node.Links)
	if err != nil {
		return fmt.Errorf("marshaling links: %w", err)
	}

	query := `
		INSERT INTO nodes (` + nodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = t.tx.ExecContext(ctx, query,
		node.ID,
		node.Content,
		string(tagsJSON),
		string(linksJSON),
		node.Source,
		formatTime(node.CreatedAt),
		formatTime(node.LastAccessed),
		node.AccessCount,
	)
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

// Get retrieves a node by ID. A missing node yields nil, nil.
func (t *sqliteTx) Get(ctx context.Context, id string) (*Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`

	node, err := scanNode(t.tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading node %s: %w", id, err)
	}
	return node, nil
}

// Replace overwrites the fields present in patch.
func (t *sqliteTx) Replace(ctx context.Context, id string, patch Patch) error {
	if patch.Empty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Tags != nil {
		tagsJSON, err := json.Marshal(nonNil(*patch.Tags))
		if err != nil {
			return fmt.Errorf("marshaling tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, string(tagsJSON))
	}
	if patch.Links != nil {
		linksJSON, err := json.Marshal(*patch.Links)
		if err != nil {
			return fmt.Errorf("marshaling links: %w", err)
		}
		sets = append(sets, "links = ?")
		args = append(args, string(linksJSON))
	}

	query := `UPDATE nodes SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating node %s: %w", id, err)
	}
	return nil
}

// Delete removes a node. The delete trigger drops its index entry.
func (t *sqliteTx) Delete(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting node %s: %w", id, err)
	}
	return nil
}

// Search performs full-text search using FTS5, ordered by rank.
func (t *sqliteTx) Search(ctx context.Context, searchTerm string) ([]*Node, error) {
	ftsQuery := SanitizeFTS5(searchTerm)
	if ftsQuery == "" {
		return []*Node{}, nil
	}

	query := `
		SELECT n.id, n.content, n.tags, n.links, n.source, n.created_at, n.last_accessed, n.access_count
		FROM nodes_fts
		JOIN nodes n ON n.rowid = nodes_fts.rowid
		WHERE nodes_fts MATCH ?
		ORDER BY rank
	`

	rows, err := t.tx.QueryContext(ctx, query, ftsQuery)
	if err != nil {
		return nil, fmt.Errorf("searching nodes: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// All returns every node in insertion order.
func (t *sqliteTx) All(ctx context.Context) ([]*Node, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// Touch records one access for each id.
func (t *sqliteTx) Touch(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx,
		`UPDATE nodes SET last_accessed = ?, access_count = access_count + 1 WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing access update: %w", err)
	}
	defer stmt.Close()

	ts := formatTime(at)
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, ts, id); err != nil {
			return fmt.Errorf("updating access for %s: %w", id, err)
		}
	}
	return nil
}

// Helper functions

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*Node, error) {
	var node Node
	var tags, links, createdAt, lastAccessed string

	err := row.Scan(&node.ID, &node.Content, &tags, &links, &node.Source,
		&createdAt, &lastAccessed, &node.AccessCount)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &node.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	node.Tags = nonNil(node.Tags)
	if err := json.Unmarshal([]byte(links), &node.Links); err != nil {
		return nil, fmt.Errorf("decoding links: %w", err)
	}
	if node.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if node.LastAccessed, err = parseTime(lastAccessed); err != nil {
		return nil, err
	}

	return &node, nil
}

func scanNodes(rows *sql.Rows) ([]*Node, error) {
	nodes := []*Node{}
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
