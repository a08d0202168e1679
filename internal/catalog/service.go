package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bookcrew/internal/bookref"
	"bookcrew/internal/platform/googlebooks"
)

const (
	DefaultSearchResults  = 16
	DefaultUpcomingLimit  = 8
	DefaultRailPageLimit  = 28
	minSearchFetch        = 20
	railPageSize          = googlebooks.MaxResultsLimit
	maxConcurrentRailReqs = 6
)

//go:generate mockgen -source=service.go -destination=mock_fetcher_test.go -package=catalog

// VolumeFetcher is the subset of the provider client the catalog needs.
type VolumeFetcher interface {
	Volumes(ctx context.Context, query string, maxResults int, opts googlebooks.QueryOptions) ([]googlebooks.Volume, error)
	Volume(ctx context.Context, id string) (*googlebooks.Volume, error)
}

// Service runs catalog queries. Provider failures never reach callers: a
// failed sub-query contributes no results.
type Service struct {
	fetcher VolumeFetcher
	cfg     Config
	rails   map[string]Rail
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(fetcher VolumeFetcher, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.FeaturedLimit <= 0 {
		cfg.FeaturedLimit = defaults.FeaturedLimit
	}
	if cfg.RecentReleaseYears <= 0 {
		cfg.RecentReleaseYears = defaults.RecentReleaseYears
	}
	if cfg.NewReleaseMinimum <= 0 {
		cfg.NewReleaseMinimum = defaults.NewReleaseMinimum
	}
	if len(cfg.Rails) == 0 {
		cfg.Rails = defaults.Rails
	}
	if logger == nil {
		logger = slog.Default()
	}

	byID := make(map[string]Rail, len(cfg.Rails))
	for _, r := range cfg.Rails {
		byID[r.ID] = r
	}

	return &Service{
		fetcher: fetcher,
		cfg:     cfg,
		rails:   byID,
		logger:  logger.With("component", "catalog"),
		now:     time.Now,
	}
}

// WithClock replaces the time source used for release-date decisions.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type volumeQuery struct {
	query string
	max   int
	opts  googlebooks.QueryOptions
}

func (s *Service) fetch(ctx context.Context, q volumeQuery) []googlebooks.Volume {
	volumes, err := s.fetcher.Volumes(ctx, q.query, q.max, q.opts)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "catalog query failed",
				"query", q.query,
				"start_index", q.opts.StartIndex,
				"error", err,
			)
		}
		return nil
	}
	return volumes
}

// fetchAll runs queries concurrently and returns results in query order.
func (s *Service) fetchAll(ctx context.Context, queries ...volumeQuery) [][]googlebooks.Volume {
	results := make([][]googlebooks.Volume, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			results[i] = s.fetch(ctx, q)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func flatten(sets [][]googlebooks.Volume) []googlebooks.Volume {
	var n int
	for _, set := range sets {
		n += len(set)
	}
	out := make([]googlebooks.Volume, 0, n)
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}

// Search runs an exact-title query and a broad query, drops non-official
// editions and orders the rest by relevance to query.
func (s *Service) Search(ctx context.Context, query string, maxResults int, opts SearchOptions) []BookSummary {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []BookSummary{}
	}
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}

	fetchSize := max(maxResults*2, minSearchFetch)
	qopts := opts.queryOptions()
	safe := strings.ReplaceAll(trimmed, `"`, "")

	sets := s.fetchAll(ctx,
		volumeQuery{query: `intitle:"` + safe + `"`, max: fetchSize, opts: qopts},
		volumeQuery{query: trimmed, max: fetchSize, opts: qopts},
	)

	merged := mergeByID(mapSummaries(sets[0], nil), mapSummaries(sets[1], nil))

	type scored struct {
		book  BookSummary
		score int
	}
	candidates := make([]scored, 0, len(merged))
	for _, b := range merged {
		if looksLikeOfficialEdition(b, trimmed) {
			candidates = append(candidates, scored{book: b, score: scoreMatch(b, trimmed)})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]BookSummary, 0, min(len(candidates), maxResults))
	for _, c := range candidates {
		if len(out) == maxResults {
			break
		}
		out = append(out, c.book)
	}
	return out
}

func homeOptions(orderBy string) googlebooks.QueryOptions {
	return googlebooks.QueryOptions{
		OrderBy:      orderBy,
		LangRestrict: "en",
		PrintType:    googlebooks.PrintTypeBooks,
	}
}

// Featured returns the newest displayable books across the home subjects.
func (s *Service) Featured(ctx context.Context) []BookSummary {
	opts := homeOptions(googlebooks.OrderRelevance)
	sets := s.fetchAll(ctx,
		volumeQuery{query: "subject:fiction", max: 24, opts: opts},
		volumeQuery{query: "subject:young+adult+fiction", max: 20, opts: opts},
		volumeQuery{query: "subject:fantasy+subject:fiction", max: 20, opts: opts},
	)

	books := mergeByID(mapSummaries(flatten(sets), isDisplayable))
	sortNewestFirst(books)
	return truncate(books, s.cfg.FeaturedLimit)
}

// UpcomingReleases returns books dated strictly after now, soonest first.
func (s *Service) UpcomingReleases(ctx context.Context, limit int) []BookSummary {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	opts := homeOptions(googlebooks.OrderNewest)
	sets := s.fetchAll(ctx,
		volumeQuery{query: "subject:fiction", max: 40, opts: opts},
		volumeQuery{query: "subject:young+adult+fiction", max: 40, opts: opts},
	)

	now := s.now().UnixMilli()
	var future []BookSummary
	for _, b := range mergeByID(mapSummaries(flatten(sets), isDisplayable)) {
		if ts, ok := bookref.Timestamp(b.RawDate()); ok && ts > now {
			future = append(future, b)
		}
	}
	sort.SliceStable(future, func(i, j int) bool {
		return publishedMillis(future[i]) < publishedMillis(future[j])
	})
	return truncate(future, limit)
}

// ExploreRails fills every configured rail. Output follows configuration order.
func (s *Service) ExploreRails(ctx context.Context) []ExploreRail {
	out := make([]ExploreRail, len(s.cfg.Rails))

	var g errgroup.Group
	g.SetLimit(maxConcurrentRailReqs)
	for i, rail := range s.cfg.Rails {
		g.Go(func() error {
			out[i] = s.fillRail(ctx, rail)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) fillRail(ctx context.Context, rail Rail) ExploreRail {
	limit := rail.max()
	volumes := s.fetch(ctx, volumeQuery{query: rail.Query, max: limit, opts: rail.Options})
	if len(volumes) == 0 {
		volumes = s.fetch(ctx, volumeQuery{query: fallbackQuery, max: limit, opts: rail.fallbackOptions()})
	}

	books := mergeByID(mapSummaries(volumes, isExploreEligible))
	return ExploreRail{
		ID:          rail.ID,
		Title:       rail.Title,
		Description: rail.Description,
		Books:       s.railBooks(rail, books, limit),
	}
}

func (s *Service) railBooks(rail Rail, books []BookSummary, limit int) []BookSummary {
	if rail.ID == NewReleasesRailID {
		return s.pickNewReleases(books, limit)
	}
	return truncate(books, limit)
}

// ExploreRailByID returns a deeper page of one rail. The boolean is false
// for unknown rail IDs.
func (s *Service) ExploreRailByID(ctx context.Context, railID string, limit int) (*ExploreRailDetail, bool) {
	rail, ok := s.rails[railID]
	if !ok {
		return nil, false
	}
	limit = max(1, limit)

	second := rail.Options
	second.StartIndex = railPageSize
	pages := s.fetchAll(ctx,
		volumeQuery{query: rail.Query, max: railPageSize, opts: rail.Options},
		volumeQuery{query: rail.Query, max: railPageSize, opts: second},
	)
	volumes := flatten(pages)
	if len(volumes) == 0 {
		volumes = s.fetch(ctx, volumeQuery{query: fallbackQuery, max: railPageSize, opts: rail.fallbackOptions()})
	}

	books := mergeByID(mapSummaries(volumes, isExploreEligible))
	return &ExploreRailDetail{
		ExploreRail: ExploreRail{
			ID:          rail.ID,
			Title:       rail.Title,
			Description: rail.Description,
			Books:       s.railBooks(rail, books, limit),
		},
		TotalAvailable: len(books),
	}, true
}

// Rails lists the configured rails without fetching any books.
func (s *Service) Rails() []Rail {
	out := make([]Rail, len(s.cfg.Rails))
	copy(out, s.cfg.Rails)
	return out
}

// BookByID fetches one volume. The boolean is false for blank IDs, unknown
// volumes and provider failures alike.
func (s *Service) BookByID(ctx context.Context, id string) (*BookDetail, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}

	v, err := s.fetcher.Volume(ctx, id)
	if err != nil {
		if !errors.Is(err, googlebooks.ErrNotFound) {
			s.logger.WarnContext(ctx, "catalog volume lookup failed", "volume_id", id, "error", err)
		}
		return nil, false
	}
	if v == nil {
		return nil, false
	}

	detail, ok := mapDetail(*v)
	if !ok {
		return nil, false
	}
	return &detail, true
}

// pickNewReleases prefers books from the recent window, falling back to the
// plain newest-first list when the window is too sparse.
func (s *Service) pickNewReleases(books []BookSummary, limit int) []BookSummary {
	dated := make([]BookSummary, 0, len(books))
	for _, b := range books {
		if _, ok := bookref.Timestamp(b.RawDate()); ok {
			dated = append(dated, b)
		}
	}
	sortNewestFirst(dated)

	now := s.now().UTC()
	cutoff := time.Date(now.Year()-s.cfg.RecentReleaseYears, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	var recent []BookSummary
	for _, b := range dated {
		if publishedMillis(b) >= cutoff {
			recent = append(recent, b)
		}
	}

	if len(recent) >= min(s.cfg.NewReleaseMinimum, limit) {
		return truncate(recent, limit)
	}
	return truncate(dated, limit)
}

func sortNewestFirst(books []BookSummary) {
	sort.SliceStable(books, func(i, j int) bool {
		return publishedMillis(books[i]) > publishedMillis(books[j])
	})
}

func truncate(books []BookSummary, n int) []BookSummary {
	if books == nil {
		return []BookSummary{}
	}
	if len(books) > n {
		return books[:n]
	}
	return books
}
