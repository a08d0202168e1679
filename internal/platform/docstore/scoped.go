package docstore

import (
	"context"
	"fmt"
	"strings"
)

// UserRoot is the document that owns all of a user's data.
func UserRoot(uid string) string {
	return Join("users", uid)
}

type scoped struct {
	Store
	root string
}

// Scoped limits a store to the subtree of users/{uid}. Every other path,
// and every path at all when uid is empty, fails with ErrPermissionDenied.
func Scoped(s Store, uid string) Store {
	return &scoped{Store: s, root: UserRoot(uid)}
}

func (s *scoped) allow(p string) error {
	p = Clean(p)
	if s.root == "users/" || strings.Contains(s.root[len("users/"):], "/") {
		return fmt.Errorf("%w: no signed-in user", ErrPermissionDenied)
	}
	if p == s.root || strings.HasPrefix(p, s.root+"/") {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPermissionDenied, p)
}

func (s *scoped) Get(ctx context.Context, p string) (Document, error) {
	if err := s.allow(p); err != nil {
		return Document{}, err
	}
	return s.Store.Get(ctx, p)
}

func (s *scoped) Set(ctx context.Context, p string, data map[string]any, opts ...SetOption) error {
	if err := s.allow(p); err != nil {
		return err
	}
	return s.Store.Set(ctx, p, data, opts...)
}

func (s *scoped) Delete(ctx context.Context, p string) error {
	if err := s.allow(p); err != nil {
		return err
	}
	return s.Store.Delete(ctx, p)
}

func (s *scoped) List(ctx context.Context, collection string) ([]Document, error) {
	if err := s.allow(collection); err != nil {
		return nil, err
	}
	return s.Store.List(ctx, collection)
}

// Denied watches report the error through the callback, the same way a
// backend rejects a listener after it has been attached.
func (s *scoped) WatchCollection(ctx context.Context, collection string, fn func(CollectionSnapshot)) (Unsubscribe, error) {
	if err := s.allow(collection); err != nil {
		fn(CollectionSnapshot{Collection: Clean(collection), Err: err})
		return func() {}, nil
	}
	return s.Store.WatchCollection(ctx, collection, fn)
}

func (s *scoped) WatchDocument(ctx context.Context, p string, fn func(DocumentSnapshot)) (Unsubscribe, error) {
	if err := s.allow(p); err != nil {
		fn(DocumentSnapshot{Path: Clean(p), Err: err})
		return func() {}, nil
	}
	return s.Store.WatchDocument(ctx, p, fn)
}

// Close is a no-op: the scoped view does not own the underlying store.
func (s *scoped) Close() error { return nil }
