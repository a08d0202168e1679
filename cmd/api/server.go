package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookcrew/internal/auth"
	"bookcrew/internal/catalog"
	"bookcrew/internal/config"
	"bookcrew/internal/httpx"
	"bookcrew/internal/library"
	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/profile"
	"bookcrew/internal/session"
	"bookcrew/internal/shelf"
	"bookcrew/internal/theme"
	"bookcrew/internal/user"
)

// deps are the long-lived services the router is built from.
type deps struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	// ready reports whether backing stores answer.
	ready    func(ctx context.Context) error
	store    docstore.Store
	catalog  *catalog.Service
	users    *user.Service
	sessions *session.Service
	auth     *auth.Service
}

func newRouter(d deps) http.Handler {
	requireAuth := httpx.AuthMiddleware(d.cfg.JWTSecret, d.sessions)
	profiles := profile.NewService(d.store, d.logger)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if d.ready != nil {
			if err := d.ready(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.Handle("GET /metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))

	catalog.NewHTTPHandler(d.catalog).Register(router)
	theme.NewHTTPHandler().Register(router)
	auth.NewHTTPHandler(d.auth).Register(router, requireAuth)
	user.NewHTTPHandler(d.users).Register(router, requireAuth)
	session.NewHTTPHandler(d.sessions).Register(router, requireAuth)
	profile.NewHTTPHandler(profiles).Register(router, requireAuth)
	shelf.NewHTTPHandler(shelf.NewService(d.store, d.logger)).Register(router, requireAuth)
	library.NewHTTPHandler(library.NewService(d.store, d.logger), d.cfg.CORSAllowedOrigins).Register(router, requireAuth)

	var handler http.Handler = router
	handler = httpx.MetricsMiddleware(d.registry)(handler)
	handler = httpx.NewRateLimitMiddleware(d.cfg.RateLimitRPS, d.cfg.RateLimitBurst).Middleware(handler)
	handler = httpx.RequestSizeLimitMiddleware(d.cfg.MaxBodyBytes)(handler)
	handler = httpx.CORSMiddleware(d.cfg.CORSAllowedOrigins)(handler)
	handler = httpx.SecurityHeadersMiddleware(d.cfg.EnableHSTS)(handler)
	handler = httpx.RecoveryMiddleware(d.logger)(handler)
	handler = httpx.AccessLogMiddleware(d.logger)(handler)
	handler = httpx.RequestIDMiddleware(handler)
	return handler
}
