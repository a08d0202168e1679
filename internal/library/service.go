package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/profile"
	"bookcrew/internal/shelf"
)

type Service struct {
	store   docstore.Store
	sources []ShelfSource
	logger  *slog.Logger
}

func NewService(store docstore.Store, logger *slog.Logger, sources ...ShelfSource) *Service {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, sources: sources, logger: logger.With("component", "library")}
}

// Load reads the reader's state once. Permission failures set the matching
// flag instead of failing the whole read.
func (s *Service) Load(ctx context.Context, uid string) (State, error) {
	st := docstore.Scoped(s.store, uid)
	state := emptyState(&profile.Identity{UID: uid})

	var mu sync.Mutex
	raw := make(map[string]map[shelf.Status][]shelf.StoredBook, len(s.sources))
	for _, src := range s.sources {
		raw[src.Name()] = make(map[shelf.Status][]shelf.StoredBook)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := st.Get(gctx, profile.Path(uid))
		mu.Lock()
		defer mu.Unlock()
		switch {
		case errors.Is(err, docstore.ErrNotFound):
		case errors.Is(err, docstore.ErrPermissionDenied):
			state.ProfilePermissionDenied = true
		case err != nil:
			return fmt.Errorf("load profile: %w", err)
		default:
			p := profile.FromDocument(doc)
			state.Profile = &p
		}
		return nil
	})

	list := func(collection string, apply func([]shelf.StoredBook)) {
		g.Go(func() error {
			docs, err := st.List(gctx, collection)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, docstore.ErrPermissionDenied):
				state.ShelfPermissionDenied = true
			case err != nil:
				return fmt.Errorf("load %s: %w", collection, err)
			default:
				apply(shelf.FromDocuments(docs))
			}
			return nil
		})
	}
	for _, src := range s.sources {
		for _, status := range shelf.Statuses {
			list(src.Collection(uid, status), func(books []shelf.StoredBook) {
				raw[src.Name()][status] = books
			})
		}
	}
	list(shelf.FavoritesCollection(uid), func(books []shelf.StoredBook) {
		state.Favorites = books
	})

	if err := g.Wait(); err != nil {
		return State{}, err
	}

	for _, status := range shelf.Statuses {
		state.Shelves[status] = s.merge(raw, status)
	}
	return state, nil
}

func (s *Service) merge(raw map[string]map[shelf.Status][]shelf.StoredBook, status shelf.Status) []shelf.StoredBook {
	sets := make([][]shelf.StoredBook, 0, len(s.sources))
	for _, src := range s.sources {
		sets = append(sets, raw[src.Name()][status])
	}
	return Merge(sets...)
}
