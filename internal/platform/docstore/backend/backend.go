// Package backend opens the document store selected by STORE_BACKEND.
package backend

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookcrew/internal/config"
	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/platform/docstore/fsstore"
	"bookcrew/internal/platform/docstore/memstore"
	"bookcrew/internal/platform/docstore/pgstore"
	"bookcrew/internal/platform/docstore/sqlitestore"
)

// NeedsPostgres reports whether Open will use pool.
func NeedsPostgres(cfg config.Config) bool {
	return cfg.StoreBackend == config.BackendPostgres
}

// Open returns the configured store. pool may be nil unless NeedsPostgres.
func Open(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return sqlitestore.Open(ctx, cfg.SQLitePath)
	case config.BackendFirestore:
		return fsstore.Open(ctx, cfg.FirestoreProjectID)
	case config.BackendMemory:
		logger.Warn("using in-memory document store; data is lost on restart")
		return memstore.New(), nil
	default:
		return pgstore.New(pool, cfg.DBQueryTimeout, logger), nil
	}
}
