package library

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcrew/internal/httpx"
	"bookcrew/internal/platform/docstore/memstore"
	"bookcrew/internal/shelf"
)

func asUser(uid string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(httpx.ContextWithUser(r.Context(), uid)))
		})
	}
}

func TestHTTPHandler_Snapshot(t *testing.T) {
	st := memstore.New()
	seed(t, st)
	mux := http.NewServeMux()
	NewHTTPHandler(NewService(st, discardLogger), nil).Register(mux, asUser("u1"))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/me/library", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool  `json:"success"`
		Data    State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data.Shelves[shelf.Want], 2)
	assert.Len(t, body.Data.Favorites, 1)
	require.NotNil(t, body.Data.Profile)
	assert.Equal(t, "Ada", body.Data.Profile.DisplayName)
}

func TestHTTPHandler_Stream(t *testing.T) {
	st := memstore.New()
	seed(t, st)
	mux := http.NewServeMux()
	NewHTTPHandler(NewService(st, discardLogger), []string{"https://app.example"}).Register(mux, asUser("u1"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/me/library/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://app.example"}})
	require.NoError(t, err)
	defer conn.Close()

	readUntil := func(cond func(State) bool) State {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		for {
			var s State
			require.NoError(t, conn.ReadJSON(&s))
			if cond(s) {
				return s
			}
		}
	}

	readUntil(func(s State) bool { return len(s.Favorites) == 1 && len(s.Shelves[shelf.Want]) == 2 })

	put(t, st, "users/u1/books/dropped/items/odd--o", map[string]any{"bookId": "o", "title": "Odd"})
	s := readUntil(func(s State) bool { return len(s.Shelves[shelf.Dropped]) == 1 })
	assert.Equal(t, "Odd", s.Shelves[shelf.Dropped][0].Title)
}
