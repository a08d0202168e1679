package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bookcrew/internal/auth"
	"bookcrew/internal/catalog"
	"bookcrew/internal/config"
	"bookcrew/internal/platform/docstore/backend"
	"bookcrew/internal/platform/googlebooks"
	"bookcrew/internal/platform/mail"
	"bookcrew/internal/profile"
	"bookcrew/internal/session"
	"bookcrew/internal/user"
)

const cleanupInterval = time.Hour

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := openDB(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	store, err := backend.Open(ctx, cfg, dbPool, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	catalogService, err := newCatalog(cfg, registry, logger)
	if err != nil {
		return err
	}

	userService := user.NewService(user.NewPostgresRepo(dbPool, cfg.DBQueryTimeout))
	sessionService := session.NewService(
		session.NewPostgresRepo(dbPool, cfg.DBQueryTimeout),
		session.NewBlacklistPostgresRepo(dbPool, cfg.DBQueryTimeout),
	)
	tokenRepository := auth.NewTokenPostgresRepo(dbPool, cfg.DBQueryTimeout)

	authConfig := auth.DefaultConfig(cfg.JWTSecret)
	authConfig.BaseURL = cfg.AppBaseURL
	authService := auth.NewService(
		authConfig,
		userService,
		sessionService,
		tokenRepository,
		profile.NewService(store, logger),
		newMailer(cfg, logger),
		logger,
	)

	go sessionService.RunJanitor(ctx, cleanupInterval, logger, tokenRepository)

	handler := newRouter(deps{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		ready:    dbPool.Ping,
		store:    store,
		catalog:  catalogService,
		users:    userService,
		sessions: sessionService,
		auth:     authService,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "store_backend", cfg.StoreBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openDB(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", config.RedactDSN(dsn), err)
	}
	logger.Info("database connection OK")
	return pool, nil
}

// newCatalog builds the catalog service over a rate-limited, cached Google Books client.
func newCatalog(cfg config.Config, registry prometheus.Registerer, logger *slog.Logger) (*catalog.Service, error) {
	rails, err := catalog.LoadRails(cfg.CatalogRailsFile)
	if err != nil {
		return nil, err
	}

	client := googlebooks.NewClient(googlebooks.Config{
		APIKey:     cfg.GoogleBooksAPIKey,
		RPS:        cfg.GoogleBooksRPS,
		MaxRetries: cfg.GoogleBooksMaxRetries,
		CacheTTL:   cfg.CatalogCacheTTL,
		Registerer: registry,
	})

	catalogConfig := catalog.DefaultConfig()
	catalogConfig.Rails = rails
	catalogConfig.RecentReleaseYears = cfg.CatalogRecentYears
	catalogConfig.NewReleaseMinimum = cfg.CatalogNewReleaseMin
	return catalog.NewService(client, catalogConfig, logger), nil
}

func newMailer(cfg config.Config, logger *slog.Logger) mail.Sender {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set; account e-mails are logged instead of sent")
		return mail.NewLogSender(logger)
	}
	return mail.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom, "BookCrew")
}
