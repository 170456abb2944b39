package store

import (
	"database/sql"
	"fmt"
	"regexp"
)

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func entriesTable(name string) string { return name + "_entries" }
func vecTable(name string) string     { return "vec_" + name }

func entriesDDL(name string) string {
	t := entriesTable(name)
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id    TEXT NOT NULL UNIQUE,
    filename    TEXT NOT NULL,
    path        TEXT NOT NULL DEFAULT '',
    page_number INTEGER NOT NULL DEFAULT 0,
    topic       TEXT NOT NULL DEFAULT '',
    is_summary  INTEGER NOT NULL DEFAULT 0,
    document    TEXT NOT NULL DEFAULT '',
    indexed_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS %[1]s_filename ON %[1]s(filename);
`, t)
}

func vecDDL(name string, dims int) string {
	return fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
    entry_rowid INTEGER PRIMARY KEY,
    embedding float[%d]
);
`, vecTable(name), dims)
}

// Init creates the shared tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
