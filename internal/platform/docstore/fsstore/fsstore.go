// Package fsstore is a docstore backend on Cloud Firestore.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bookcrew/internal/platform/docstore"
)

type Store struct {
	client *firestore.Client
}

// Open connects to the project's default database. Credentials come from
// the environment unless opts say otherwise.
func Open(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return New(client), nil
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// mapError translates gRPC status codes into docstore errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return docstore.ErrNotFound
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", docstore.ErrPermissionDenied, err)
	default:
		return err
	}
}

// relativePath strips the "projects/{p}/databases/{d}/documents/" prefix.
func relativePath(full string) string {
	const marker = "/documents/"
	if i := strings.Index(full, marker); i >= 0 {
		return full[i+len(marker):]
	}
	return full
}

// toFirestore swaps the docstore server timestamp sentinel for Firestore's.
func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v == docstore.ServerTimestamp {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

func toDocument(snap *firestore.DocumentSnapshot) docstore.Document {
	return docstore.Document{
		Path:       relativePath(snap.Ref.Path),
		ID:         snap.Ref.ID,
		Data:       snap.Data(),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

func (s *Store) doc(p string) (*firestore.DocumentRef, error) {
	if err := docstore.CheckDocPath(p); err != nil {
		return nil, err
	}
	ref := s.client.Doc(docstore.Clean(p))
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, p)
	}
	return ref, nil
}

func (s *Store) collection(p string) (*firestore.CollectionRef, error) {
	if err := docstore.CheckCollectionPath(p); err != nil {
		return nil, err
	}
	ref := s.client.Collection(docstore.Clean(p))
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, p)
	}
	return ref, nil
}

func (s *Store) Get(ctx context.Context, p string) (docstore.Document, error) {
	ref, err := s.doc(p)
	if err != nil {
		return docstore.Document{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return docstore.Document{}, mapError(err)
	}
	return toDocument(snap), nil
}

func (s *Store) Set(ctx context.Context, p string, data map[string]any, opts ...docstore.SetOption) error {
	ref, err := s.doc(p)
	if err != nil {
		return err
	}
	var setOpts []firestore.SetOption
	if docstore.ApplySetOptions(opts) {
		setOpts = append(setOpts, firestore.MergeAll)
	}
	_, err = ref.Set(ctx, toFirestore(data), setOpts...)
	return mapError(err)
}

func (s *Store) Delete(ctx context.Context, p string) error {
	ref, err := s.doc(p)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return mapError(err)
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	snaps, err := ref.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err)
	}
	docs := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, toDocument(snap))
	}
	return docs, nil
}

func stoppedByCaller(ctx context.Context, err error) bool {
	return ctx.Err() != nil || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled)
}

func (s *Store) WatchCollection(ctx context.Context, collection string, fn func(docstore.CollectionSnapshot)) (docstore.Unsubscribe, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	name := docstore.Clean(collection)
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if !stoppedByCaller(ctx, err) {
					fn(docstore.CollectionSnapshot{Collection: name, Err: mapError(err)})
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				if !stoppedByCaller(ctx, err) {
					fn(docstore.CollectionSnapshot{Collection: name, Err: mapError(err)})
				}
				return
			}
			docs := make([]docstore.Document, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, toDocument(snap))
			}
			fn(docstore.CollectionSnapshot{Collection: name, Docs: docs})
		}
	}()

	return docstore.Unsubscribe(cancel), nil
}

func (s *Store) WatchDocument(ctx context.Context, p string, fn func(docstore.DocumentSnapshot)) (docstore.Unsubscribe, error) {
	ref, err := s.doc(p)
	if err != nil {
		return nil, err
	}
	name := docstore.Clean(p)
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			switch {
			case status.Code(err) == codes.NotFound:
				fn(docstore.DocumentSnapshot{Path: name})
				continue
			case err != nil:
				if !stoppedByCaller(ctx, err) {
					fn(docstore.DocumentSnapshot{Path: name, Err: mapError(err)})
				}
				return
			case !snap.Exists():
				fn(docstore.DocumentSnapshot{Path: name})
			default:
				fn(docstore.DocumentSnapshot{Path: name, Exists: true, Doc: toDocument(snap)})
			}
		}
	}()

	return docstore.Unsubscribe(cancel), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
