package library

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/platform/docstore/memstore"
	"bookcrew/internal/profile"
	"bookcrew/internal/shelf"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func put(t *testing.T, st docstore.Store, p string, data map[string]any) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), p, data))
}

func seed(t *testing.T, st docstore.Store) {
	put(t, st, "users/u1", map[string]any{"displayName": "Ada", "themeId": "forest-mint"})
	put(t, st, "users/u1/books/want/items/dune--abc", map[string]any{"bookId": "abc", "title": "Dune", "statusId": "want"})
	put(t, st, "users/u1/status/want/books/dune--abc", map[string]any{"bookId": "abc", "title": "Dune (legacy)"})
	put(t, st, "users/u1/status/want/books/emma--e1", map[string]any{"bookId": "e1", "title": "Emma"})
	put(t, st, "users/u1/books/favorites/items/dune--abc", map[string]any{"bookId": "abc", "title": "Dune"})
}

func titles(books []shelf.StoredBook) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestMerge(t *testing.T) {
	current := []shelf.StoredBook{{DocID: "a--1", BookID: "1", Title: "current"}}
	legacy := []shelf.StoredBook{
		{DocID: "a--1", BookID: "1", Title: "legacy"},
		{DocID: "b--2", BookID: "", Title: "no book id"},
		{DocID: "b--2", BookID: "", Title: "dup doc id"},
	}

	assert.Equal(t, []string{"current", "no book id"}, titles(Merge(current, legacy)))
	assert.Empty(t, Merge())
	assert.NotNil(t, Merge(nil, nil))
}

func TestService_Load(t *testing.T) {
	st := memstore.New()
	seed(t, st)
	svc := NewService(st, discardLogger)

	state, err := svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, state.Profile)
	assert.Equal(t, "Ada", state.Profile.DisplayName)
	assert.Equal(t, "forest-mint", state.Profile.ThemeID)
	assert.ElementsMatch(t, []string{"Dune", "Emma"}, titles(state.Shelves[shelf.Want]))
	assert.Empty(t, state.Shelves[shelf.Reading])
	assert.Len(t, state.Favorites, 1)
	assert.False(t, state.ShelfPermissionDenied)
	assert.False(t, state.ProfilePermissionDenied)

	empty, err := svc.Load(context.Background(), "u2")
	require.NoError(t, err)
	assert.Nil(t, empty.Profile)
	assert.Len(t, empty.Shelves, len(shelf.Statuses))
}

func TestService_LoadWithoutIdentity(t *testing.T) {
	svc := NewService(memstore.New(), discardLogger)
	state, err := svc.Load(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, state.ProfilePermissionDenied)
	assert.True(t, state.ShelfPermissionDenied)
}

func waitFor(t *testing.T, v *View, cond func(State) bool) State {
	t.Helper()
	var last State
	require.Eventually(t, func() bool {
		last = v.State()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestView_FollowsChanges(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st)
	v := NewService(st, discardLogger).NewView()
	defer v.Close()

	require.NoError(t, v.SetIdentity(ctx, &profile.Identity{UID: "u1"}))
	state := waitFor(t, v, func(s State) bool {
		return s.Profile != nil && len(s.Shelves[shelf.Want]) == 2 && len(s.Favorites) == 1
	})
	assert.Contains(t, titles(state.Shelves[shelf.Want]), "Dune")
	assert.NotContains(t, titles(state.Shelves[shelf.Want]), "Dune (legacy)")

	put(t, st, "users/u1/books/read/items/emma--e1", map[string]any{"bookId": "e1", "title": "Emma"})
	waitFor(t, v, func(s State) bool { return len(s.Shelves[shelf.Read]) == 1 })

	require.NoError(t, st.Delete(ctx, "users/u1/status/want/books/emma--e1"))
	waitFor(t, v, func(s State) bool { return len(s.Shelves[shelf.Want]) == 1 })

	require.NoError(t, v.SetIdentity(ctx, nil))
	state = v.State()
	assert.Nil(t, state.Identity)
	assert.Nil(t, state.Profile)
	assert.Empty(t, state.Shelves[shelf.Want])
	assert.Empty(t, state.Favorites)

	put(t, st, "users/u1/books/paused/items/x--x", map[string]any{"bookId": "x"})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, v.State().Shelves[shelf.Paused])
}

func TestView_Updates(t *testing.T) {
	st := memstore.New()
	seed(t, st)
	v := NewService(st, discardLogger).NewView()

	require.NoError(t, v.SetIdentity(context.Background(), &profile.Identity{UID: "u1"}))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-v.Updates():
			if len(s.Favorites) == 1 {
				v.Close()
				_, ok := <-v.Updates()
				for ok {
					_, ok = <-v.Updates()
				}
				assert.ErrorIs(t, v.SetIdentity(context.Background(), nil), ErrViewClosed)
				return
			}
		case <-deadline:
			t.Fatal("no update with favorites")
		}
	}
}

// deniedStore rejects watches and reads for paths matching deny.
type deniedStore struct {
	docstore.Store
	deny func(string) bool
}

func (d deniedStore) WatchCollection(ctx context.Context, c string, fn func(docstore.CollectionSnapshot)) (docstore.Unsubscribe, error) {
	if d.deny(c) {
		fn(docstore.CollectionSnapshot{Collection: c, Err: docstore.ErrPermissionDenied})
		return func() {}, nil
	}
	return d.Store.WatchCollection(ctx, c, fn)
}

func (d deniedStore) WatchDocument(ctx context.Context, p string, fn func(docstore.DocumentSnapshot)) (docstore.Unsubscribe, error) {
	if d.deny(p) {
		fn(docstore.DocumentSnapshot{Path: p, Err: docstore.ErrPermissionDenied})
		return func() {}, nil
	}
	return d.Store.WatchDocument(ctx, p, fn)
}

func TestView_PermissionFlags(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	seed(t, mem)

	t.Run("shelves denied", func(t *testing.T) {
		st := deniedStore{Store: mem, deny: func(p string) bool { return strings.Contains(p, "/books") || strings.Contains(p, "/status/") }}
		v := NewService(st, discardLogger).NewView()
		defer v.Close()
		require.NoError(t, v.SetIdentity(ctx, &profile.Identity{UID: "u1"}))

		state := waitFor(t, v, func(s State) bool { return s.Profile != nil })
		assert.True(t, state.ShelfPermissionDenied)
		assert.False(t, state.ProfilePermissionDenied)
		assert.Empty(t, state.Shelves[shelf.Want])
	})

	t.Run("profile denied", func(t *testing.T) {
		st := deniedStore{Store: mem, deny: func(p string) bool { return p == "users/u1" }}
		v := NewService(st, discardLogger).NewView()
		defer v.Close()
		require.NoError(t, v.SetIdentity(ctx, &profile.Identity{UID: "u1"}))

		state := waitFor(t, v, func(s State) bool { return len(s.Favorites) == 1 && len(s.Shelves[shelf.Want]) == 2 })
		assert.True(t, state.ProfilePermissionDenied)
		assert.False(t, state.ShelfPermissionDenied)
		assert.Nil(t, state.Profile)
	})
}
