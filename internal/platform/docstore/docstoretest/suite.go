// Package docstoretest holds the behavior every docstore backend must share.
package docstoretest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcrew/internal/platform/docstore"
)

const waitFor = 3 * time.Second

// Run exercises a backend. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) docstore.Store) {
	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(context.Background(), "users/u1")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users/u1/books/read/items/dune--1", map[string]any{
			"title":    "Dune",
			"favorite": true,
		}))

		doc, err := s.Get(ctx, "/users/u1/books/read/items/dune--1")
		require.NoError(t, err)
		assert.Equal(t, "dune--1", doc.ID)
		assert.Equal(t, "users/u1/books/read/items/dune--1", doc.Path)
		assert.Equal(t, "Dune", doc.Data["title"])
		assert.Equal(t, true, doc.Data["favorite"])
		assert.False(t, doc.CreateTime.IsZero())
	})

	t.Run("merge keeps other fields", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"displayName": "Ann", "themeId": "dune-sand"}))
		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"displayName": "Bea"}, docstore.Merge()))

		doc, err := s.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, "Bea", doc.Data["displayName"])
		assert.Equal(t, "dune-sand", doc.Data["themeId"])

		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"displayName": "Cy"}))
		doc, err = s.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.NotContains(t, doc.Data, "themeId")
	})

	t.Run("server timestamp", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"updatedAt": docstore.ServerTimestamp}))

		doc, err := s.Get(ctx, "users/u1")
		require.NoError(t, err)
		ts, ok := docstore.Time(doc.Data, "updatedAt")
		require.True(t, ok)
		assert.WithinDuration(t, time.Now(), ts, time.Minute)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Delete(ctx, "users/u1/books/want/items/missing"))

		require.NoError(t, s.Set(ctx, "users/u1/books/want/items/a", map[string]any{"title": "A"}))
		require.NoError(t, s.Delete(ctx, "users/u1/books/want/items/a"))
		_, err := s.Get(ctx, "users/u1/books/want/items/a")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("list direct children only", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users/u1/books/want/items/b", map[string]any{"title": "B"}))
		require.NoError(t, s.Set(ctx, "users/u1/books/want/items/a", map[string]any{"title": "A"}))
		require.NoError(t, s.Set(ctx, "users/u1/books/read/items/c", map[string]any{"title": "C"}))
		require.NoError(t, s.Set(ctx, "users/u2/books/want/items/d", map[string]any{"title": "D"}))

		docs, err := s.List(ctx, "users/u1/books/want/items")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "a", docs[0].ID)
		assert.Equal(t, "b", docs[1].ID)

		empty, err := s.List(ctx, "users/u9/books/want/items")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("invalid paths", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.Get(ctx, "users")
		assert.ErrorIs(t, err, docstore.ErrInvalidPath)
		assert.ErrorIs(t, s.Set(ctx, "users/u1/books", map[string]any{}), docstore.ErrInvalidPath)
		_, err = s.List(ctx, "users/u1")
		assert.ErrorIs(t, err, docstore.ErrInvalidPath)
		_, err = s.Get(ctx, "users//x")
		assert.ErrorIs(t, err, docstore.ErrInvalidPath)
	})

	t.Run("watch collection", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		const coll = "users/u1/books/reading/items"
		require.NoError(t, s.Set(ctx, coll+"/a", map[string]any{"title": "A"}))

		snaps := make(chan docstore.CollectionSnapshot, 16)
		unsub, err := s.WatchCollection(ctx, coll, func(snap docstore.CollectionSnapshot) { snaps <- snap })
		require.NoError(t, err)
		defer unsub()

		first := next(t, snaps)
		require.NoError(t, first.Err)
		assert.Len(t, first.Docs, 1)

		require.NoError(t, s.Set(ctx, coll+"/b", map[string]any{"title": "B"}))
		waitCollection(t, snaps, func(snap docstore.CollectionSnapshot) bool { return len(snap.Docs) == 2 })

		require.NoError(t, s.Delete(ctx, coll+"/a"))
		waitCollection(t, snaps, func(snap docstore.CollectionSnapshot) bool {
			return len(snap.Docs) == 1 && snap.Docs[0].ID == "b"
		})
	})

	t.Run("watch document", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		snaps := make(chan docstore.DocumentSnapshot, 16)
		unsub, err := s.WatchDocument(ctx, "users/u1", func(snap docstore.DocumentSnapshot) { snaps <- snap })
		require.NoError(t, err)
		defer unsub()

		first := next(t, snaps)
		require.NoError(t, first.Err)
		assert.False(t, first.Exists)

		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"displayName": "Ann"}))
		waitDocument(t, snaps, func(snap docstore.DocumentSnapshot) bool {
			return snap.Exists && snap.Doc.Data["displayName"] == "Ann"
		})

		require.NoError(t, s.Delete(ctx, "users/u1"))
		waitDocument(t, snaps, func(snap docstore.DocumentSnapshot) bool { return !snap.Exists })
	})

	t.Run("unsubscribe stops deliveries", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		const coll = "users/u1/books/favorites/items"

		snaps := make(chan docstore.CollectionSnapshot, 16)
		unsub, err := s.WatchCollection(ctx, coll, func(snap docstore.CollectionSnapshot) { snaps <- snap })
		require.NoError(t, err)
		next(t, snaps)

		unsub()
		unsub()
		require.NoError(t, s.Set(ctx, coll+"/a", map[string]any{"title": "A"}))

		select {
		case snap := <-snaps:
			t.Fatalf("unexpected snapshot after unsubscribe: %+v", snap)
		case <-time.After(150 * time.Millisecond):
		}
	})

	t.Run("canceled context ends watch", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		snaps := make(chan docstore.DocumentSnapshot, 16)
		_, err := s.WatchDocument(ctx, "users/u1", func(snap docstore.DocumentSnapshot) { snaps <- snap })
		require.NoError(t, err)
		next(t, snaps)

		cancel()
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, s.Set(context.Background(), "users/u1", map[string]any{"x": "y"}))

		select {
		case snap := <-snaps:
			t.Fatalf("unexpected snapshot after cancel: %+v", snap)
		case <-time.After(150 * time.Millisecond):
		}
	})
}

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func waitCollection(t *testing.T, ch <-chan docstore.CollectionSnapshot, ok func(docstore.CollectionSnapshot) bool) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case snap := <-ch:
			require.NoError(t, snap.Err)
			if ok(snap) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for collection snapshot")
		}
	}
}

func waitDocument(t *testing.T, ch <-chan docstore.DocumentSnapshot, ok func(docstore.DocumentSnapshot) bool) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case snap := <-ch:
			require.NoError(t, snap.Err)
			if ok(snap) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for document snapshot")
		}
	}
}
