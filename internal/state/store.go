// Package state persists documents and their placeholder resolution history
// in SQLite, so a publishing run can be resumed or audited after the fact.
package state

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/notedown/internal/document"
	"git.home.luguber.info/inful/notedown/internal/errors"
)

// Store is a SQLite-backed document store.
// Use ":memory:" for ephemeral runs, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens the database at path and ensures the schema exists.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "open state database")
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryInternal, "initialize state schema")
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL DEFAULT '',
		markdown TEXT NOT NULL DEFAULT '',
		encoded TEXT NOT NULL DEFAULT '',
		final TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS placeholder_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		class TEXT NOT NULL,
		token TEXT NOT NULL,
		payload TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_document ON placeholder_results(document_id);
	CREATE INDEX IF NOT EXISTS idx_results_outcome ON placeholder_results(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDocument inserts or replaces a document by ID.
func (s *Store) SaveDocument(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, key, markdown, encoded, final, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   key = excluded.key,
		   markdown = excluded.markdown,
		   encoded = excluded.encoded,
		   final = excluded.final,
		   updated_at = excluded.updated_at`,
		doc.ID, doc.Key, doc.Markdown, doc.Encoded, doc.Final, time.Now().Unix(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "save document").WithContext("document_id", doc.ID)
	}
	return nil
}

// GetDocument loads a document by ID. A missing document is a not-found
// validation error, not an internal one.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc document.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, key, markdown, encoded, final FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.Key, &doc.Markdown, &doc.Encoded, &doc.Final)
	if err == sql.ErrNoRows {
		return nil, errors.ValidationError("document not found").WithContext("document_id", id)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "load document").WithContext("document_id", id)
	}
	return &doc, nil
}

// ListDocuments returns the IDs of all stored documents, most recent first.
func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM documents ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "list documents")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "scan document id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "iterate documents")
	}
	return ids, nil
}

// RecordSummary appends one row per placeholder result of a resolution run.
func (s *Store) RecordSummary(ctx context.Context, documentID string, sum document.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "begin summary transaction")
	}
	now := time.Now().Unix()
	for _, r := range sum.Results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO placeholder_results (document_id, class, token, payload, outcome, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			documentID, r.Class, r.Token, r.Payload, string(r.Outcome), errText, now,
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.WrapError(err, errors.CategoryInternal, "insert placeholder result").WithContext("document_id", documentID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "commit summary transaction")
	}
	return nil
}

// StoredResult is one persisted placeholder outcome.
type StoredResult struct {
	Class   string
	Token   string
	Payload string
	Outcome document.Outcome
	Error   string
}

// ResultsFor returns all recorded placeholder outcomes for a document in
// insertion order.
func (s *Store) ResultsFor(ctx context.Context, documentID string) ([]StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT class, token, payload, outcome, error FROM placeholder_results WHERE document_id = ? ORDER BY id",
		documentID,
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "query placeholder results")
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		var r StoredResult
		var outcome string
		if err := rows.Scan(&r.Class, &r.Token, &r.Payload, &outcome, &r.Error); err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "scan placeholder result")
		}
		r.Outcome = document.Outcome(outcome)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "iterate placeholder results")
	}
	return results, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
