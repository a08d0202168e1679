package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcrew/internal/auth"
	"bookcrew/internal/catalog"
	"bookcrew/internal/config"
	"bookcrew/internal/platform/docstore/memstore"
	"bookcrew/internal/platform/googlebooks"
	"bookcrew/internal/platform/mail"
	"bookcrew/internal/session"
	"bookcrew/internal/testutil"
	"bookcrew/internal/user"
)

const testSecret = "routing-secret"

type noBlacklist struct{}

func (noBlacklist) AddToken(context.Context, string, string, time.Time) error { return nil }
func (noBlacklist) IsBlacklisted(context.Context, string) (bool, error)       { return false, nil }
func (noBlacklist) CleanupExpired(context.Context) (int64, error)             { return 0, nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"id":"d1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"],"publishedDate":"1965-08-01"}}]}`)
	}))
	t.Cleanup(provider.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	store := memstore.New()

	client := googlebooks.NewClient(googlebooks.Config{BaseURL: provider.URL, Registerer: registry})
	users := user.NewService(nil)
	sessions := session.NewService(nil, noBlacklist{})

	return newRouter(deps{
		cfg: config.Config{
			JWTSecret:          testSecret,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			RateLimitRPS:       1000,
			RateLimitBurst:     1000,
			MaxBodyBytes:       1 << 20,
		},
		logger:   logger,
		registry: registry,
		store:    store,
		catalog:  catalog.NewService(client, catalog.DefaultConfig(), logger),
		users:    users,
		sessions: sessions,
		auth:     auth.NewService(auth.DefaultConfig(testSecret), users, sessions, nil, nil, mail.NewLogSender(logger), logger),
	})
}

func TestV1Routing(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		auth   bool
		status int
	}{
		{"health", http.MethodGet, "/healthz", "", false, http.StatusOK},
		{"ready", http.MethodGet, "/readyz", "", false, http.StatusOK},
		{"themes", http.MethodGet, "/v1/themes", "", false, http.StatusOK},
		{"catalog search", http.MethodGet, "/v1/catalog/search?q=dune", "", false, http.StatusOK},
		{"unversioned path", http.MethodGet, "/themes", "", false, http.StatusNotFound},
		{"wrong method", http.MethodPost, "/v1/themes", "", false, http.StatusMethodNotAllowed},
		{"profile needs auth", http.MethodGet, "/v1/me/profile", "", false, http.StatusUnauthorized},
		{"library needs auth", http.MethodGet, "/v1/me/library", "", false, http.StatusUnauthorized},
		{"missing profile", http.MethodGet, "/v1/me/profile", "", true, http.StatusNotFound},
		{"library snapshot", http.MethodGet, "/v1/me/library", "", true, http.StatusOK},
		{"set status", http.MethodPut, "/v1/me/shelf/status", `{"book":{"id":"d1","title":"Dune"},"status":"reading"}`, true, http.StatusOK},
	}
	token := testutil.AccessToken(t, testSecret, "u1")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.body != "" {
				body = tt.body
			}
			var bearer string
			if tt.auth {
				bearer = token
			}
			req := testutil.NewRequestWithAuth(tt.method, tt.path, body, bearer)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		})
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	router := newTestRouter(t)
	expired := testutil.ExpiredAccessToken(t, testSecret, "u1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequestWithAuth(http.MethodGet, "/v1/me/library", nil, expired))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := testutil.DecodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestThemesEnvelope(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/v1/themes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env := testutil.DecodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Meta["default"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/themes", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bookcrew_http_requests_total{code="200",route="GET /v1/themes"} 1`)
}
