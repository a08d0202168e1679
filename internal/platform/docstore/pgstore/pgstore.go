// Package pgstore is a docstore backend on PostgreSQL. Documents live in a
// JSONB table; writes announce the changed path with NOTIFY so that watches
// in every process sharing the database see them.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookcrew/internal/platform/docstore"
)

// Channel is the NOTIFY channel carrying changed document paths.
const Channel = "docstore_changes"

const reconnectDelay = time.Second

type Store struct {
	db      *pgxpool.Pool
	timeout time.Duration
	hub     *docstore.Hub
	logger  *slog.Logger
	now     func() time.Time
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New starts the change listener on a connection taken from db. The pool
// is not closed by Close.
func New(db *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:      db,
		timeout: timeout,
		hub:     docstore.NewHub(),
		logger:  logger.With("component", "pgstore"),
		now:     time.Now,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go s.listen(ctx)
	return s
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) listen(ctx context.Context) {
	defer close(s.stopped)
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("change listener lost, reconnecting", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	// Changes made while disconnected were missed.
	s.hub.Resync()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.hub.Publish(n.Payload)
	}
}

func (s *Store) Get(ctx context.Context, p string) (docstore.Document, error) {
	if err := docstore.CheckDocPath(p); err != nil {
		return docstore.Document{}, err
	}
	const query = `
	SELECT path, doc_id, data, created_at, updated_at
	FROM documents
	WHERE path = $1
	`
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := scanDocument(s.db.QueryRow(timeoutCtx, query, docstore.Clean(p)))
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s: %w", p, err)
	}
	return d, nil
}

func scanDocument(row pgx.Row) (docstore.Document, error) {
	var (
		d   docstore.Document
		raw []byte
	)
	if err := row.Scan(&d.Path, &d.ID, &raw, &d.CreateTime, &d.UpdateTime); err != nil {
		return docstore.Document{}, err
	}
	data, err := docstore.DecodeData(raw)
	if err != nil {
		return docstore.Document{}, err
	}
	d.Data = data
	return d, nil
}

func (s *Store) Set(ctx context.Context, p string, data map[string]any, opts ...docstore.SetOption) error {
	if err := docstore.CheckDocPath(p); err != nil {
		return err
	}
	p = docstore.Clean(p)
	collection, id := docstore.Split(p)
	now := s.now().UTC()

	encoded, err := docstore.EncodeData(docstore.ResolveServerTimestamps(data, now))
	if err != nil {
		return err
	}

	query := `
	INSERT INTO documents (path, collection, doc_id, data, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if docstore.ApplySetOptions(opts) {
		query = `
	INSERT INTO documents (path, collection, doc_id, data, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (path) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	}

	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return pgx.BeginFunc(timeoutCtx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(timeoutCtx, query, p, collection, id, encoded, now); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		return notify(timeoutCtx, tx, p)
	})
}

func notify(ctx context.Context, tx pgx.Tx, p string) error {
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, p); err != nil {
		return fmt.Errorf("notify %s: %w", p, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	if err := docstore.CheckDocPath(p); err != nil {
		return err
	}
	p = docstore.Clean(p)

	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return pgx.BeginFunc(timeoutCtx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(timeoutCtx, "DELETE FROM documents WHERE path = $1", p)
		if err != nil {
			return fmt.Errorf("delete %s: %w", p, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return notify(timeoutCtx, tx, p)
	})
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.CheckCollectionPath(collection); err != nil {
		return nil, err
	}
	const query = `
	SELECT path, doc_id, data, created_at, updated_at
	FROM documents
	WHERE collection = $1
	ORDER BY doc_id
	`
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(timeoutCtx, query, docstore.Clean(collection))
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

// Close stops the listener and every watch.
func (s *Store) Close() error {
	s.cancel()
	<-s.stopped
	s.hub.Close()
	return nil
}
