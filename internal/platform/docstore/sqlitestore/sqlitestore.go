// Package sqlitestore is a single-node docstore backend on SQLite. Watches
// are served in-process, so only one process should open a database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bookcrew/internal/platform/docstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path       TEXT PRIMARY KEY,
    collection TEXT NOT NULL,
    doc_id     TEXT NOT NULL,
    data       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

type Store struct {
	db  *sql.DB
	hub *docstore.Hub
	now func() time.Time
}

// Open creates the database file and schema if needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &Store{db: db, hub: docstore.NewHub(), now: time.Now}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (docstore.Document, error) {
	var (
		d                docstore.Document
		raw              string
		created, updated string
	)
	if err := row.Scan(&d.Path, &d.ID, &raw, &created, &updated); err != nil {
		return docstore.Document{}, err
	}
	data, err := docstore.DecodeData([]byte(raw))
	if err != nil {
		return docstore.Document{}, err
	}
	d.Data = data
	d.CreateTime = parseTime(created)
	d.UpdateTime = parseTime(updated)
	return d, nil
}

func (s *Store) Get(ctx context.Context, p string) (docstore.Document, error) {
	if err := docstore.CheckDocPath(p); err != nil {
		return docstore.Document{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT path, doc_id, data, created_at, updated_at FROM documents WHERE path = ?`,
		docstore.Clean(p))
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s: %w", p, err)
	}
	return d, nil
}

func (s *Store) Set(ctx context.Context, p string, data map[string]any, opts ...docstore.SetOption) error {
	if err := docstore.CheckDocPath(p); err != nil {
		return err
	}
	p = docstore.Clean(p)
	collection, id := docstore.Split(p)
	now := s.now().UTC()
	patch := docstore.ResolveServerTimestamps(data, now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if docstore.ApplySetOptions(opts) {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, p).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read %s for merge: %w", p, err)
		default:
			base, err := docstore.DecodeData([]byte(raw))
			if err != nil {
				return err
			}
			patch = docstore.MergeData(base, patch)
		}
	}

	encoded, err := docstore.EncodeData(patch)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, collection, doc_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p, collection, id, string(encoded), formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.hub.Publish(p)
	return nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	if err := docstore.CheckDocPath(p); err != nil {
		return err
	}
	p = docstore.Clean(p)
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, p)
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.Publish(p)
	}
	return nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.CheckCollectionPath(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, doc_id, data, created_at, updated_at FROM documents WHERE collection = ? ORDER BY doc_id`,
		docstore.Clean(collection))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) WatchCollection(ctx context.Context, collection string, fn func(docstore.CollectionSnapshot)) (docstore.Unsubscribe, error) {
	if err := docstore.CheckCollectionPath(collection); err != nil {
		return nil, err
	}
	collection = docstore.Clean(collection)

	return s.hub.Watch(ctx, docstore.InCollection(collection), func() bool {
		docs, err := s.List(ctx, collection)
		if err != nil && ctx.Err() != nil {
			return false
		}
		fn(docstore.CollectionSnapshot{Collection: collection, Docs: docs, Err: err})
		return err == nil
	}), nil
}

func (s *Store) WatchDocument(ctx context.Context, p string, fn func(docstore.DocumentSnapshot)) (docstore.Unsubscribe, error) {
	if err := docstore.CheckDocPath(p); err != nil {
		return nil, err
	}
	p = docstore.Clean(p)

	return s.hub.Watch(ctx, docstore.IsPath(p), func() bool {
		doc, err := s.Get(ctx, p)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			fn(docstore.DocumentSnapshot{Path: p})
			return true
		case err != nil:
			if ctx.Err() != nil {
				return false
			}
			fn(docstore.DocumentSnapshot{Path: p, Err: err})
			return false
		}
		fn(docstore.DocumentSnapshot{Path: p, Exists: true, Doc: doc})
		return true
	}), nil
}

func (s *Store) Close() error {
	s.hub.Close()
	return s.db.Close()
}
