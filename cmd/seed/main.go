package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookcrew/internal/catalog"
	"bookcrew/internal/config"
	"bookcrew/internal/platform/docstore/backend"
	"bookcrew/internal/platform/googlebooks"
	"bookcrew/internal/shelf"
)

func main() {
	var (
		userID = flag.String("user", "", "User ID whose shelves are seeded (required)")
		count  = flag.Int("count", 12, "Number of books to place on shelves")
		query  = flag.String("query", "", "Catalog query to draw real books from; synthetic books when empty")
		every  = flag.Int("favorite-every", 3, "Mark every Nth seeded book as a favorite; 0 disables")
	)
	flag.Parse()
	if *userID == "" {
		log.Fatal("-user is required")
	}

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var pool *pgxpool.Pool
	if backend.NeedsPostgres(cfg) {
		pool, err = pgxpool.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
	}

	store, err := backend.Open(ctx, cfg, pool, logger)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer store.Close()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	books := syntheticBooks(rnd, *count)
	if *query != "" {
		client := googlebooks.NewClient(googlebooks.Config{
			APIKey: cfg.GoogleBooksAPIKey,
			RPS:    cfg.GoogleBooksRPS,
		})
		svc := catalog.NewService(client, catalog.DefaultConfig(), logger)
		found := svc.Search(ctx, *query, *count, catalog.SearchOptions{})
		if len(found) == 0 {
			log.Fatalf("No catalog results for %q", *query)
		}
		books = fromCatalog(found)
	}

	log.Printf("Seeding %d books for user %s into %s store...", len(books), *userID, cfg.StoreBackend)
	stats, err := seedShelves(ctx, shelf.NewService(store, logger), *userID, books, rnd, *every)
	if err != nil {
		log.Fatalf("Failed to seed shelves: %v", err)
	}
	for _, s := range shelf.Statuses {
		fmt.Printf("%-14s %d\n", s.Label(), stats.byStatus[s])
	}
	fmt.Printf("%-14s %d\n", "Favorites", stats.favorites)
}
