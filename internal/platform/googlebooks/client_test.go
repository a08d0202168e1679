package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SearchURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test/volumes", APIKey: "k"})

	t.Run("defaults and clamping", func(t *testing.T) {
		u, err := url.Parse(c.SearchURL("dune", 99, QueryOptions{}))
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "dune", q.Get("q"))
		assert.Equal(t, "40", q.Get("maxResults"))
		assert.Equal(t, "books", q.Get("printType"))
		assert.Equal(t, "relevance", q.Get("orderBy"))
		assert.Equal(t, "k", q.Get("key"))
		assert.False(t, q.Has("filter"))
		assert.False(t, q.Has("langRestrict"))
		assert.False(t, q.Has("startIndex"))
	})

	t.Run("lower clamp", func(t *testing.T) {
		u, _ := url.Parse(c.SearchURL("dune", 0, QueryOptions{}))
		assert.Equal(t, "1", u.Query().Get("maxResults"))
	})

	t.Run("options", func(t *testing.T) {
		u, _ := url.Parse(c.SearchURL("subject:fiction", 12, QueryOptions{
			OrderBy:      OrderNewest,
			Filter:       FilterFreeEbooks,
			LangRestrict: "en",
			PrintType:    PrintTypeAll,
			StartIndex:   40,
		}))
		q := u.Query()
		assert.Equal(t, "newest", q.Get("orderBy"))
		assert.Equal(t, "free-ebooks", q.Get("filter"))
		assert.Equal(t, "en", q.Get("langRestrict"))
		assert.Equal(t, "all", q.Get("printType"))
		assert.Equal(t, "40", q.Get("startIndex"))
	})

	t.Run("no key", func(t *testing.T) {
		noKey := NewClient(Config{BaseURL: "https://example.test/volumes"})
		u, _ := url.Parse(noKey.SearchURL("dune", 5, QueryOptions{}))
		assert.False(t, u.Query().Has("key"))
		assert.Equal(t, "https://example.test/volumes/a%2Fb", noKey.VolumeURL("a/b"))
	})
}

func TestClient_Volumes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"a1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	items, err := c.Volumes(context.Background(), "dune", 10, QueryOptions{})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, "Dune", items[0].VolumeInfo.Title)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, MaxRetries: 2})
	c.backoff = time.Millisecond

	items, err := c.Volumes(context.Background(), "dune", 10, QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, MaxRetries: 3})
	c.backoff = time.Millisecond

	_, err := c.Volumes(context.Background(), "dune", 10, QueryOptions{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Volume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"a1","volumeInfo":{"title":"Dune","pageCount":412}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	v, err := c.Volume(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, v.VolumeInfo.PageCount)
	assert.Equal(t, 412, *v.VolumeInfo.PageCount)

	_, err = c.Volume(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_CachesResponses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"items":[{"id":"a1","volumeInfo":{"title":"Dune"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := c.Volumes(ctx, "dune", 10, QueryOptions{})
		require.NoError(t, err)
		require.Len(t, items, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"items":[{"id":"a1","volumeInfo":{"title":"Dune"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute})

	first, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Volumes(first, "dune", 10, QueryOptions{})
		firstErr <- err
	}()

	// Join the in-flight request started by the first caller.
	time.Sleep(20 * time.Millisecond)
	items, err := c.Volumes(context.Background(), "dune", 10, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune", items[0].VolumeInfo.Title)

	assert.ErrorIs(t, <-firstErr, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
