package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"docsift/internal/domain"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteStore is a SQLite database holding any number of vector collections.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Collection opens (creating if needed) the named collection with vectors
// of the given dimension.
func (s *SQLiteStore) Collection(ctx context.Context, name string, dims int) (*Collection, error) {
	if !collectionName.MatchString(name) {
		return nil, fmt.Errorf("%w: collection name %q", domain.ErrConfiguration, name)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: collection %s needs positive dimensions, got %d", domain.ErrConfiguration, name, dims)
	}
	if _, err := s.db.ExecContext(ctx, entriesDDL(name)); err != nil {
		return nil, fmt.Errorf("create %s entries: %w", name, err)
	}

	c := &Collection{db: s.db, name: name, dims: dims}
	stored, err := c.storedDims(ctx)
	if err != nil {
		return nil, err
	}
	// An existing vec table keeps its dimensions until EnsureModel rebuilds it.
	vecDims := dims
	if stored > 0 {
		vecDims = stored
	}
	if _, err := s.db.ExecContext(ctx, vecDDL(name, vecDims)); err != nil {
		return nil, fmt.Errorf("create %s vectors: %w", name, err)
	}
	return c, nil
}

// Collection is a keyed nearest-neighbour index: an entries table joined to
// a vec0 table by rowid. Distances are L2.
type Collection struct {
	db   *sql.DB
	name string
	dims int
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Dimensions returns the vector length the collection was opened with.
func (c *Collection) Dimensions() int { return c.dims }

func (c *Collection) modelKey() string { return c.name + ".embedding_model" }
func (c *Collection) dimsKey() string  { return c.name + ".dimensions" }

// Model returns the embedding model recorded for the collection, or "" when
// nothing has been written yet.
func (c *Collection) Model(ctx context.Context) (string, error) {
	return getMeta(ctx, c.db, c.modelKey())
}

func (c *Collection) storedDims(ctx context.Context) (int, error) {
	v, err := getMeta(ctx, c.db, c.dimsKey())
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", c.dimsKey(), err)
	}
	return n, nil
}

// EnsureModel records model as the producer of the collection's vectors.
// If a different model or dimension was recorded, every entry is deleted and
// the vector table rebuilt; wiped reports whether that happened.
func (c *Collection) EnsureModel(ctx context.Context, model string) (wiped bool, err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if wiped, err = c.ensureModel(ctx, tx, model); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return wiped, nil
}

func (c *Collection) ensureModel(ctx context.Context, tx *sql.Tx, model string) (bool, error) {
	storedModel, err := getMeta(ctx, tx, c.modelKey())
	if err != nil {
		return false, err
	}
	storedDims := 0
	if v, err := getMeta(ctx, tx, c.dimsKey()); err != nil {
		return false, err
	} else if v != "" {
		if storedDims, err = strconv.Atoi(v); err != nil {
			return false, fmt.Errorf("meta %s: %w", c.dimsKey(), err)
		}
	}
	if storedModel == model && storedDims == c.dims {
		return false, nil
	}

	wiped := false
	if storedModel != "" || storedDims != 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+entriesTable(c.name)); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+vecTable(c.name)); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, vecDDL(c.name, c.dims)); err != nil {
			return false, err
		}
		wiped = true
	}
	if err := setMeta(ctx, tx, c.modelKey(), model); err != nil {
		return false, err
	}
	if err := setMeta(ctx, tx, c.dimsKey(), strconv.Itoa(c.dims)); err != nil {
		return false, err
	}
	return wiped, nil
}

// CheckModel fails with ErrConfiguration when the collection holds vectors
// from a different model or dimension. An unwritten collection passes.
func (c *Collection) CheckModel(ctx context.Context, model string) error {
	storedModel, err := c.Model(ctx)
	if err != nil {
		return err
	}
	if storedModel == "" {
		return nil
	}
	storedDims, err := c.storedDims(ctx)
	if err != nil {
		return err
	}
	if storedModel != model || storedDims != c.dims {
		return fmt.Errorf("%w: collection %s was built with %s (%d dims), query uses %s (%d dims); re-ingest to switch models",
			domain.ErrConfiguration, c.name, storedModel, storedDims, model, c.dims)
	}
	return nil
}

// Add upserts entries by id in one transaction.
func (c *Collection) Add(ctx context.Context, entries []Entry) error {
	_, err := c.write(ctx, "", "", entries)
	return err
}

// Replace deletes every entry of filename and writes entries in their place,
// in one transaction.
func (c *Collection) Replace(ctx context.Context, filename string, entries []Entry) error {
	if filename == "" {
		return fmt.Errorf("%w: replace needs a filename", domain.ErrInvalidInput)
	}
	_, err := c.write(ctx, "", filename, entries)
	return err
}

// AddAs is Add preceded by EnsureModel in the same transaction, so a model
// change only clears the collection when the new entries are written too.
func (c *Collection) AddAs(ctx context.Context, model string, entries []Entry) (wiped bool, err error) {
	return c.write(ctx, model, "", entries)
}

// ReplaceAs is Replace preceded by EnsureModel in the same transaction.
func (c *Collection) ReplaceAs(ctx context.Context, model, filename string, entries []Entry) (wiped bool, err error) {
	if filename == "" {
		return false, fmt.Errorf("%w: replace needs a filename", domain.ErrInvalidInput)
	}
	return c.write(ctx, model, filename, entries)
}

// write runs one transaction: the model check when model is set, the
// removal of replace's entries when replace is set, then the upserts.
func (c *Collection) write(ctx context.Context, model, replace string, entries []Entry) (bool, error) {
	for _, e := range entries {
		if len(e.Embedding) != c.dims {
			return false, fmt.Errorf("%w: entry %s has %d dimensions, collection %s has %d",
				domain.ErrIndexWrite, e.ID, len(e.Embedding), c.name, c.dims)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin: %v", domain.ErrIndexWrite, err)
	}
	defer tx.Rollback()

	wiped := false
	if model != "" {
		if wiped, err = c.ensureModel(ctx, tx, model); err != nil {
			return false, fmt.Errorf("%w: record embedding model: %v", domain.ErrIndexWrite, err)
		}
	}
	if replace != "" {
		if err := c.deleteFile(ctx, tx, replace); err != nil {
			return false, fmt.Errorf("%w: delete %s: %v", domain.ErrIndexWrite, replace, err)
		}
	}
	for _, e := range entries {
		if err := c.upsert(ctx, tx, e); err != nil {
			return false, fmt.Errorf("%w: entry %s: %v", domain.ErrIndexWrite, e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit: %v", domain.ErrIndexWrite, err)
	}
	return wiped, nil
}

func (c *Collection) deleteFile(ctx context.Context, tx *sql.Tx, filename string) error {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM "+entriesTable(c.name)+" WHERE filename = ?", filename)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+vecTable(c.name)+" WHERE entry_rowid = ?", id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM "+entriesTable(c.name)+" WHERE filename = ?", filename)
	return err
}

func (c *Collection) upsert(ctx context.Context, tx *sql.Tx, e Entry) error {
	blob, err := sqlite_vec.SerializeFloat32(e.Embedding)
	if err != nil {
		return fmt.Errorf("serialize embedding: %w", err)
	}
	m := e.Metadata
	entries := entriesTable(c.name)

	var rowid int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM "+entries+" WHERE entry_id = ?", e.ID).Scan(&rowid)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx,
			"UPDATE "+entries+` SET filename = ?, path = ?, page_number = ?, topic = ?, is_summary = ?,
			document = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			m.Filename, m.Path, m.PageNumber, m.Topic, m.IsSummary, e.Document, rowid,
		)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+vecTable(c.name)+" WHERE entry_rowid = ?", rowid); err != nil {
			return err
		}
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			"INSERT INTO "+entries+` (entry_id, filename, path, page_number, topic, is_summary, document)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, m.Filename, m.Path, m.PageNumber, m.Topic, m.IsSummary, e.Document,
		)
		if err != nil {
			return err
		}
		if rowid, err = res.LastInsertId(); err != nil {
			return err
		}
	default:
		return err
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO "+vecTable(c.name)+" (entry_rowid, embedding) VALUES (?, ?)", rowid, blob)
	return err
}

// Query returns the n entries nearest to vec, nearest first.
func (c *Collection) Query(ctx context.Context, vec []float32, n int) ([]Hit, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(vec) != c.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s has %d",
			domain.ErrConfiguration, len(vec), c.name, c.dims)
	}
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	q := fmt.Sprintf(`
		WITH knn AS (
			SELECT entry_rowid, distance
			FROM %s
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT e.entry_id, e.document, e.filename, e.path, e.page_number, e.topic, e.is_summary, knn.distance
		FROM knn
		JOIN %s e ON e.id = knn.entry_rowid
		ORDER BY knn.distance
	`, vecTable(c.name), entriesTable(c.name))

	rows, err := c.db.QueryContext(ctx, q, blob, n)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		err := rows.Scan(
			&h.ID, &h.Document,
			&h.Metadata.Filename, &h.Metadata.Path, &h.Metadata.PageNumber,
			&h.Metadata.Topic, &h.Metadata.IsSummary, &h.Distance,
		)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Documents lists indexed files, optionally restricted to one topic.
func (c *Collection) Documents(ctx context.Context, topic string) ([]DocumentSummary, error) {
	q := `SELECT filename, MAX(path), MAX(topic), SUM(CASE WHEN is_summary = 0 THEN 1 ELSE 0 END)
		FROM ` + entriesTable(c.name)
	args := []any{}
	if topic != "" {
		q += " WHERE topic = ? COLLATE NOCASE"
		args = append(args, topic)
	}
	q += " GROUP BY filename ORDER BY filename"

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.Filename, &d.Path, &d.Topic, &d.Chunks); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Lookup returns the summary of one indexed file.
func (c *Collection) Lookup(ctx context.Context, filename string) (DocumentSummary, bool, error) {
	var d DocumentSummary
	err := c.db.QueryRowContext(ctx,
		`SELECT filename, MAX(path), MAX(topic), SUM(CASE WHEN is_summary = 0 THEN 1 ELSE 0 END)
		FROM `+entriesTable(c.name)+` WHERE filename = ? GROUP BY filename`, filename,
	).Scan(&d.Filename, &d.Path, &d.Topic, &d.Chunks)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentSummary{}, false, nil
	}
	if err != nil {
		return DocumentSummary{}, false, err
	}
	return d, true, nil
}

// Count returns the number of entries in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+entriesTable(c.name)).Scan(&n)
	return n, err
}

// Reset removes every entry but keeps the recorded model.
func (c *Collection) Reset(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+vecTable(c.name)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+entriesTable(c.name)); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getMeta(ctx context.Context, q queryRower, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func setMeta(ctx context.Context, e execer, key, value string) error {
	_, err := e.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
