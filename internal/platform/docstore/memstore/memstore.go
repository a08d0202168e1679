// Package memstore is an in-process docstore backend.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bookcrew/internal/platform/docstore"
)

type record struct {
	data    []byte
	created time.Time
	updated time.Time
}

type Store struct {
	mu     sync.RWMutex
	docs   map[string]record
	hub    *docstore.Hub
	now    func() time.Time
	closed bool
}

func New() *Store {
	return &Store{
		docs: make(map[string]record),
		hub:  docstore.NewHub(),
		now:  time.Now,
	}
}

// WithClock replaces the clock used for server timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func toDocument(p string, r record) (docstore.Document, error) {
	data, err := docstore.DecodeData(r.data)
	if err != nil {
		return docstore.Document{}, err
	}
	_, id := docstore.Split(p)
	return docstore.Document{
		Path:       p,
		ID:         id,
		Data:       data,
		CreateTime: r.created,
		UpdateTime: r.updated,
	}, nil
}

func (s *Store) Get(_ context.Context, p string) (docstore.Document, error) {
	if err := docstore.CheckDocPath(p); err != nil {
		return docstore.Document{}, err
	}
	p = docstore.Clean(p)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docstore.Document{}, docstore.ErrClosed
	}
	r, ok := s.docs[p]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return toDocument(p, r)
}

func (s *Store) Set(_ context.Context, p string, data map[string]any, opts ...docstore.SetOption) error {
	if err := docstore.CheckDocPath(p); err != nil {
		return err
	}
	p = docstore.Clean(p)
	now := s.now().UTC()
	patch := docstore.ResolveServerTimestamps(data, now)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	existing, exists := s.docs[p]
	if exists && docstore.ApplySetOptions(opts) {
		base, err := docstore.DecodeData(existing.data)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		patch = docstore.MergeData(base, patch)
	}
	encoded, err := docstore.EncodeData(patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	created := now
	if exists {
		created = existing.created
	}
	s.docs[p] = record{data: encoded, created: created, updated: now}
	s.mu.Unlock()

	s.hub.Publish(p)
	return nil
}

func (s *Store) Delete(_ context.Context, p string) error {
	if err := docstore.CheckDocPath(p); err != nil {
		return err
	}
	p = docstore.Clean(p)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	_, existed := s.docs[p]
	delete(s.docs, p)
	s.mu.Unlock()

	if existed {
		s.hub.Publish(p)
	}
	return nil
}

func (s *Store) List(_ context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.CheckCollectionPath(collection); err != nil {
		return nil, err
	}
	match := docstore.InCollection(collection)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	docs := []docstore.Document{}
	for p, r := range s.docs {
		if !match(p) {
			continue
		}
		d, err := toDocument(p, r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) WatchCollection(ctx context.Context, collection string, fn func(docstore.CollectionSnapshot)) (docstore.Unsubscribe, error) {
	if err := docstore.CheckCollectionPath(collection); err != nil {
		return nil, err
	}
	collection = docstore.Clean(collection)

	return s.hub.Watch(ctx, docstore.InCollection(collection), func() bool {
		docs, err := s.List(context.Background(), collection)
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
		doc, err := s.Get(context.Background(), p)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			fn(docstore.DocumentSnapshot{Path: p})
			return true
		case err != nil:
			fn(docstore.DocumentSnapshot{Path: p, Err: err})
			return false
		}
		fn(docstore.DocumentSnapshot{Path: p, Exists: true, Doc: doc})
		return true
	}), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}
