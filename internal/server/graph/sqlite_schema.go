package graph

const schemaNodes = `
CREATE TABLE IF NOT EXISTS nodes (
    rowid INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    content TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    links TEXT NOT NULL DEFAULT '[]',
    source TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    last_accessed TEXT NOT NULL,
    access_count INTEGER NOT NULL DEFAULT 0
)`

// FTS5 virtual table for full-text search over content
const schemaNodesFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
    content,
    content='nodes',
    content_rowid='rowid',
    tokenize='porter'
)`

// The external-content index follows nodes through these triggers.
const triggerFTSInsert = `
CREATE TRIGGER IF NOT EXISTS nodes_fts_insert AFTER INSERT ON nodes BEGIN
    INSERT INTO nodes_fts(rowid, content) VALUES (NEW.rowid, NEW.content);
END`

const triggerFTSDelete = `
CREATE TRIGGER IF NOT EXISTS nodes_fts_delete AFTER DELETE ON nodes BEGIN
    INSERT INTO nodes_fts(nodes_fts, rowid, content) VALUES ('delete', OLD.rowid, OLD.content);
END`

// Only content changes are reindexed; links and access stats are not indexed.
const triggerFTSUpdate = `
CREATE TRIGGER IF NOT EXISTS nodes_fts_update AFTER UPDATE OF content ON nodes BEGIN
    INSERT INTO nodes_fts(nodes_fts, rowid, content) VALUES ('delete', OLD.rowid, OLD.content);
    INSERT INTO nodes_fts(rowid, content) VALUES (NEW.rowid, NEW.content);
END`

// schemaStatements are applied in order when a database is opened.
var schemaStatements = []string{
	schemaNodes,
	schemaNodesFTS,
	triggerFTSInsert,
	triggerFTSDelete,
	triggerFTSUpdate,
}

// connectionPragmas tune the single connection the repository holds.
var connectionPragmas = []string{
	`PRAGMA journal_mode=WAL`,
	`PRAGMA busy_timeout=5000`,
	`PRAGMA synchronous=NORMAL`,
}
