// Package docstore is a path-addressed document store with merge writes and
// push-based watches. Paths alternate collection and document segments:
// "users/u1" is a document, "users/u1/books" is a collection.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("docstore: document not found")
	ErrPermissionDenied = errors.New("docstore: permission denied")
	ErrInvalidPath      = errors.New("docstore: invalid path")
	ErrClosed           = errors.New("docstore: store closed")
)

// Document is a stored document. Data holds JSON-compatible values; backends
// that round-trip through JSON return numbers as float64 and times as RFC 3339
// strings, so read fields through the helpers in values.go.
type Document struct {
	Path       string
	ID         string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

type DocumentSnapshot struct {
	Path   string
	Exists bool
	Doc    Document
	Err    error
}

type CollectionSnapshot struct {
	Collection string
	Docs       []Document
	Err        error
}

// Unsubscribe stops a watch. It is safe to call more than once.
type Unsubscribe func()

type setOptions struct {
	merge bool
}

type SetOption func(*setOptions)

// Merge makes Set update only the top-level fields present in data.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// ApplySetOptions is used by backends to resolve the options of a Set call.
func ApplySetOptions(opts []SetOption) (merge bool) {
	var o setOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o.merge
}

type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string) ([]Document, error)

	// Watches deliver the full current contents once on subscribe and again
	// after every change, until unsubscribed or ctx is done. A snapshot with
	// Err set is terminal.
	WatchCollection(ctx context.Context, collection string, fn func(CollectionSnapshot)) (Unsubscribe, error)
	WatchDocument(ctx context.Context, path string, fn func(DocumentSnapshot)) (Unsubscribe, error)

	Close() error
}
