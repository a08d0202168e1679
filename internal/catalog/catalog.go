package catalog

import (
	"bookcrew/internal/platform/googlebooks"
)

// BookSummary is a normalized snapshot of a catalog volume. It is never
// persisted on its own; every request re-fetches it.
type BookSummary struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Authors          string  `json:"authors"`
	PublishedDate    string  `json:"publishedDate"`
	PublishedDateRaw *string `json:"publishedDateRaw"`
	Category         string  `json:"category"`
	Thumbnail        *string `json:"thumbnail"`
}

// RawDate returns the provider date or "" when absent.
func (b BookSummary) RawDate() string {
	if b.PublishedDateRaw == nil {
		return ""
	}
	return *b.PublishedDateRaw
}

type BookDetail struct {
	BookSummary
	Description string  `json:"description"`
	PageCount   *int    `json:"pageCount"`
	Publisher   string  `json:"publisher"`
	PreviewLink *string `json:"previewLink"`
}

type ExploreRail struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Books       []BookSummary `json:"books"`
}

type ExploreRailDetail struct {
	ExploreRail
	TotalAvailable int `json:"totalAvailable"`
}

const (
	SortRelevance = "relevance"
	SortNewest    = "newest"

	FormatAll    = "all"
	FormatBooks  = "books"
	FormatEbooks = "ebooks"

	AvailabilityAll     = "all"
	AvailabilityFree    = "free"
	AvailabilityPreview = "preview"
	AvailabilityPaid    = "paid"
)

// SearchOptions narrows a user search. Zero values mean "no preference".
type SearchOptions struct {
	Lang         string
	Sort         string
	Format       string
	Availability string
}

func (o SearchOptions) queryOptions() googlebooks.QueryOptions {
	q := googlebooks.QueryOptions{
		OrderBy:   o.Sort,
		PrintType: googlebooks.PrintTypeBooks,
	}
	if q.OrderBy == "" {
		q.OrderBy = googlebooks.OrderRelevance
	}
	if o.Lang != "" && o.Lang != "all" {
		q.LangRestrict = o.Lang
	}
	if o.Format == FormatAll {
		q.PrintType = googlebooks.PrintTypeAll
	}

	switch {
	case o.Availability == AvailabilityFree:
		q.Filter = googlebooks.FilterFreeEbooks
	case o.Availability == AvailabilityPreview:
		q.Filter = googlebooks.FilterPartial
	case o.Availability == AvailabilityPaid:
		q.Filter = googlebooks.FilterPaidEbooks
	case o.Format == FormatEbooks:
		q.Filter = googlebooks.FilterEbooks
	}
	return q
}

// Config holds the tunable constants of the catalog heuristics.
type Config struct {
	FeaturedLimit int
	// RecentReleaseYears is how far back the new-releases rail looks before
	// falling back to plain newest-first ordering.
	RecentReleaseYears int
	// NewReleaseMinimum is how many recent books the new-releases rail needs
	// (capped by the requested limit) before it drops the recency window.
	NewReleaseMinimum int
	Rails             []Rail
}

func DefaultConfig() Config {
	return Config{
		FeaturedLimit:      8,
		RecentReleaseYears: 4,
		NewReleaseMinimum:  8,
		Rails:              DefaultRails(),
	}
}
