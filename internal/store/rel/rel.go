// Package rel provides the authoritative relational store for quads.
//
// Each logical space is one SQLite database file (<dir>/<spaceID>.db) opened
// in embedded mode with WAL for concurrent reads. The schema is quad-shaped:
// a deduplicated terms table keyed by a surrogate id with a unique natural
// key, and a quads table of four term-id columns forming the composite
// primary key.
//
// The relational store is the single source of durability and atomicity:
// every update runs inside exactly one transaction here, and the graph store
// is synchronized only after a successful commit. Deleting an absent quad and
// inserting a duplicate quad are both no-ops, so replaying an update is safe.
package rel

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/vital-ai/vital-graph/internal/rdf"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrSpaceNotFound reports an operation against a space that has never been
// initialized.
var ErrSpaceNotFound = fmt.Errorf("space not found")

// spaceIDPattern constrains space identifiers to filesystem-safe names.
// Space IDs come from callers, so this is a security boundary, not a
// convenience check.
var spaceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateSpaceID rejects space identifiers that could escape the data
// directory or collide with reserved names.
func ValidateSpaceID(spaceID string) error {
	if !spaceIDPattern.MatchString(spaceID) {
		return fmt.Errorf("invalid space ID %q", spaceID)
	}
	return nil
}

// Store manages the per-space SQLite databases under one data directory.
// It is safe for concurrent use; SQLite row locking is the only concurrency
// control for the authoritative data.
type Store struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// Open creates a Store rooted at dir, creating the directory if needed.
//
// The caller MUST call Close() when done to checkpoint and release the
// per-space databases.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

// Close closes every open space database, checkpointing WAL first.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for spaceID, db := range s.dbs {
		if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL for space %s: %v\n", spaceID, err)
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close space %s: %w", spaceID, err)
		}
		delete(s.dbs, spaceID)
	}
	return firstErr
}

// Space returns the database handle for a space, opening and initializing it
// on first use.
func (s *Store) Space(spaceID string) (*sql.DB, error) {
	if err := ValidateSpaceID(spaceID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[spaceID]; ok {
		return db, nil
	}

	path := filepath.Join(s.dir, spaceID+".db")
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for space %s: %w", spaceID, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database for space %s: %w", spaceID, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s for space %s: %w", pragma, spaceID, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.dbs[spaceID] = db
	return db, nil
}

// initSchema creates the term and quad tables. Idempotent - safe to call
// multiple times.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS terms (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,             -- 'uri' or 'literal'
		value TEXT NOT NULL,
		datatype TEXT NOT NULL DEFAULT '',
		lang TEXT NOT NULL DEFAULT '',
		UNIQUE (kind, value, datatype, lang)
	);

	CREATE TABLE IF NOT EXISTS quads (
		subject_id INTEGER NOT NULL REFERENCES terms(id),
		predicate_id INTEGER NOT NULL REFERENCES terms(id),
		object_id INTEGER NOT NULL REFERENCES terms(id),
		graph_id INTEGER NOT NULL REFERENCES terms(id),
		PRIMARY KEY (subject_id, predicate_id, object_id, graph_id)
	) WITHOUT ROWID;

	CREATE INDEX IF NOT EXISTS idx_quads_graph ON quads(graph_id);
	CREATE INDEX IF NOT EXISTS idx_quads_predicate ON quads(predicate_id, graph_id);
	CREATE INDEX IF NOT EXISTS idx_quads_object ON quads(object_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// termRow is the flattened column form of a term.
type termRow struct {
	kind     string
	value    string
	datatype string
	lang     string
}

func termToRow(t rdf.Term) termRow {
	switch v := t.(type) {
	case rdf.IRI:
		return termRow{kind: "uri", value: string(v)}
	case rdf.Literal:
		return termRow{kind: "literal", value: v.Value, datatype: string(v.Datatype), lang: v.Lang}
	default:
		return termRow{}
	}
}

func rowToTerm(r termRow) (rdf.Term, error) {
	switch r.kind {
	case "uri":
		return rdf.IRI(r.value), nil
	case "literal":
		return rdf.Literal{Value: r.value, Datatype: rdf.IRI(r.datatype), Lang: r.lang}, nil
	default:
		return nil, fmt.Errorf("unknown term kind %q", r.kind)
	}
}

// Tx is a write transaction over one space. All quad mutations of an atomic
// replace go through a single Tx.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a write transaction for the space.
func (s *Store) Begin(ctx context.Context, spaceID string) (*Tx, error) {
	db, err := s.Space(spaceID)
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// termID resolves a term to its surrogate id, interning it if absent.
func (t *Tx) termID(ctx context.Context, term rdf.Term) (int64, error) {
	r := termToRow(term)
	if r.kind == "" {
		return 0, fmt.Errorf("cannot store term %v", term)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO terms (kind, value, datatype, lang) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, value, datatype, lang) DO NOTHING`,
		r.kind, r.value, r.datatype, r.lang)
	if err != nil {
		return 0, fmt.Errorf("failed to intern term %s: %w", term, err)
	}

	var id int64
	err = t.tx.QueryRowContext(ctx, `
		SELECT id FROM terms WHERE kind = ? AND value = ? AND datatype = ? AND lang = ?`,
		r.kind, r.value, r.datatype, r.lang).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve term %s: %w", term, err)
	}
	return id, nil
}

// lookupTermID resolves a term without interning it. Returns (0, false, nil)
// when the term has never been stored.
func (t *Tx) lookupTermID(ctx context.Context, term rdf.Term) (int64, bool, error) {
	r := termToRow(term)
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT id FROM terms WHERE kind = ? AND value = ? AND datatype = ? AND lang = ?`,
		r.kind, r.value, r.datatype, r.lang).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up term %s: %w", term, err)
	}
	return id, true, nil
}

// InsertQuad stores a quad, interning its terms. Inserting a quad that is
// already present is a no-op (insert-or-ignore on the composite key).
func (t *Tx) InsertQuad(ctx context.Context, q rdf.Quad) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid quad: %w", err)
	}

	sid, err := t.termID(ctx, q.Subject)
	if err != nil {
		return err
	}
	pid, err := t.termID(ctx, q.Predicate)
	if err != nil {
		return err
	}
	oid, err := t.termID(ctx, q.Object)
	if err != nil {
		return err
	}
	gid, err := t.termID(ctx, q.Graph)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO quads (subject_id, predicate_id, object_id, graph_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(subject_id, predicate_id, object_id, graph_id) DO NOTHING`,
		sid, pid, oid, gid)
	if err != nil {
		return fmt.Errorf("failed to insert quad %s: %w", q, err)
	}
	return nil
}

// DeleteQuad removes a quad. Deleting an absent quad is a no-op (idempotent).
func (t *Tx) DeleteQuad(ctx context.Context, q rdf.Quad) error {
	ids := make([]int64, 4)
	for i, term := range []rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		id, found, err := t.lookupTermID(ctx, term)
		if err != nil {
			return err
		}
		if !found {
			// An unknown term means the quad cannot exist.
			return nil
		}
		ids[i] = id
	}

	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM quads
		WHERE subject_id = ? AND predicate_id = ? AND object_id = ? AND graph_id = ?`,
		ids[0], ids[1], ids[2], ids[3])
	if err != nil {
		return fmt.Errorf("failed to delete quad %s: %w", q, err)
	}
	return nil
}

const quadSelect = `
	SELECT s.kind, s.value, s.datatype, s.lang,
	       p.kind, p.value, p.datatype, p.lang,
	       o.kind, o.value, o.datatype, o.lang,
	       g.value
	FROM quads q
	JOIN terms s ON s.id = q.subject_id
	JOIN terms p ON p.id = q.predicate_id
	JOIN terms o ON o.id = q.object_id
	JOIN terms g ON g.id = q.graph_id
`

// scanQuad reads one row of quadSelect.
func scanQuad(rows *sql.Rows) (rdf.Quad, error) {
	var s, p, o termRow
	var graph string
	err := rows.Scan(
		&s.kind, &s.value, &s.datatype, &s.lang,
		&p.kind, &p.value, &p.datatype, &p.lang,
		&o.kind, &o.value, &o.datatype, &o.lang,
		&graph,
	)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("failed to scan quad: %w", err)
	}
	st, err := rowToTerm(s)
	if err != nil {
		return rdf.Quad{}, err
	}
	pt, err := rowToTerm(p)
	if err != nil {
		return rdf.Quad{}, err
	}
	ot, err := rowToTerm(o)
	if err != nil {
		return rdf.Quad{}, err
	}
	return rdf.Quad{Subject: st, Predicate: pt, Object: ot, Graph: rdf.IRI(graph)}, nil
}

// AllQuads streams every quad of the space to fn in storage order. It is the
// read side of the graph-store rebuild: the relational store can always
// regenerate the graph store, never the reverse.
func (s *Store) AllQuads(ctx context.Context, spaceID string, fn func(rdf.Quad) error) error {
	db, err := s.Space(spaceID)
	if err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, quadSelect)
	if err != nil {
		return fmt.Errorf("failed to query quads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuad(rows)
		if err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating quads: %w", err)
	}
	return nil
}

// CountQuads returns the number of quads stored for the space.
func (s *Store) CountQuads(ctx context.Context, spaceID string) (int, error) {
	db, err := s.Space(spaceID)
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM quads").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count quads: %w", err)
	}
	return count, nil
}

// QuadExists reports whether the exact quad is stored.
func (s *Store) QuadExists(ctx context.Context, spaceID string, q rdf.Quad) (bool, error) {
	db, err := s.Space(spaceID)
	if err != nil {
		return false, err
	}

	lookup := func(term rdf.Term) (int64, bool, error) {
		r := termToRow(term)
		var id int64
		err := db.QueryRowContext(ctx, `
			SELECT id FROM terms WHERE kind = ? AND value = ? AND datatype = ? AND lang = ?`,
			r.kind, r.value, r.datatype, r.lang).Scan(&id)
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to look up term %s: %w", term, err)
		}
		return id, true, nil
	}

	ids := make([]int64, 4)
	for i, term := range []rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		id, found, err := lookup(term)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		ids[i] = id
	}

	var one int
	err = db.QueryRowContext(ctx, `
		SELECT 1 FROM quads
		WHERE subject_id = ? AND predicate_id = ? AND object_id = ? AND graph_id = ?`,
		ids[0], ids[1], ids[2], ids[3]).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe quad: %w", err)
	}
	return true, nil
}

// SpaceExists reports whether the space has a database file on disk, without
// creating one.
func (s *Store) SpaceExists(spaceID string) (bool, error) {
	if err := ValidateSpaceID(spaceID); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.dir, spaceID+".db"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat space %s: %w", spaceID, err)
	}
	return true, nil
}
