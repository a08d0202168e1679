package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookcrew/internal/platform/googlebooks"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Volumes(ctx context.Context, query string, maxResults int, opts googlebooks.QueryOptions) ([]googlebooks.Volume, error) {
	args := m.Called(ctx, query, maxResults, opts)
	vols, _ := args.Get(0).([]googlebooks.Volume)
	return vols, args.Error(1)
}

func (m *mockFetcher) Volume(ctx context.Context, id string) (*googlebooks.Volume, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*googlebooks.Volume)
	return v, args.Error(1)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 12, 0, 0, 0, time.UTC) }
}

func vol(id, title, date string) googlebooks.Volume {
	return googlebooks.Volume{
		ID: id,
		VolumeInfo: &googlebooks.VolumeInfo{
			Title:         title,
			Authors:       []string{"Some Author"},
			PublishedDate: date,
			Categories:    []string{"Fiction"},
			ImageLinks:    &googlebooks.ImageLinks{Thumbnail: "http://books.example/" + id + ".jpg"},
		},
	}
}

func withoutThumbnail(v googlebooks.Volume) googlebooks.Volume {
	v.VolumeInfo.ImageLinks = nil
	return v
}

func ids(books []BookSummary) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestService_Search(t *testing.T) {
	t.Run("exact title ranks first and study aids are dropped", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volumes", mock.Anything, `intitle:"Dune"`, 32, mock.Anything).Return([]googlebooks.Volume{
			vol("guide", "Dune Study Guide", "2010"),
			vol("messiah", "Dune Messiah", "1969"),
			vol("dune", "Dune", "1965-08-01"),
		}, nil)
		f.On("Volumes", mock.Anything, "Dune", 32, mock.Anything).Return([]googlebooks.Volume{
			vol("dune", "Dune", "1965-08-01"),
			vol("children", "Children of Dune", "1976"),
			vol("cook", "The Cook Book", "2001"),
		}, nil)

		svc := NewService(f, DefaultConfig(), discardLogger)
		books := svc.Search(context.Background(), "Dune", 16, SearchOptions{})

		assert.Equal(t, []string{"dune", "messiah", "children"}, ids(books))
		f.AssertExpectations(t)
	})

	t.Run("blank query makes no requests", func(t *testing.T) {
		f := new(mockFetcher)
		svc := NewService(f, DefaultConfig(), discardLogger)

		books := svc.Search(context.Background(), "   ", 16, SearchOptions{})

		assert.Empty(t, books)
		assert.NotNil(t, books)
		f.AssertNotCalled(t, "Volumes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("quotes are stripped from the exact title query", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volumes", mock.Anything, `intitle:"the hobbit"`, 20, mock.Anything).Return([]googlebooks.Volume{}, nil)
		f.On("Volumes", mock.Anything, `"the hobbit"`, 20, mock.Anything).Return([]googlebooks.Volume{}, nil)

		svc := NewService(f, DefaultConfig(), discardLogger)
		svc.Search(context.Background(), `"the hobbit"`, 5, SearchOptions{})

		f.AssertExpectations(t)
	})

	t.Run("a failed sub-query degrades to the other", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volumes", mock.Anything, `intitle:"Dune"`, 20, mock.Anything).Return(nil, errors.New("boom"))
		f.On("Volumes", mock.Anything, "Dune", 20, mock.Anything).Return([]googlebooks.Volume{
			vol("dune", "Dune", "1965"),
		}, nil)

		svc := NewService(f, DefaultConfig(), discardLogger)
		books := svc.Search(context.Background(), "Dune", 3, SearchOptions{})

		assert.Equal(t, []string{"dune"}, ids(books))
	})

	t.Run("results are truncated", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volumes", mock.Anything, mock.Anything, 20, mock.Anything).Return([]googlebooks.Volume{
			vol("a", "Dune", "1965"),
			vol("b", "Dune Messiah", "1969"),
			vol("c", "Children of Dune", "1976"),
		}, nil)

		svc := NewService(f, DefaultConfig(), discardLogger)
		books := svc.Search(context.Background(), "Dune", 2, SearchOptions{})

		assert.Len(t, books, 2)
		assert.Equal(t, "a", books[0].ID)
	})
}

func TestSearchOptions_QueryOptions(t *testing.T) {
	tests := []struct {
		name string
		in   SearchOptions
		want googlebooks.QueryOptions
	}{
		{"defaults", SearchOptions{}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "books"}},
		{"all languages", SearchOptions{Lang: "all", Sort: "newest"}, googlebooks.QueryOptions{OrderBy: "newest", PrintType: "books"}},
		{"language", SearchOptions{Lang: "fr"}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "books", LangRestrict: "fr"}},
		{"free", SearchOptions{Availability: "free", Format: "ebooks"}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "books", Filter: "free-ebooks"}},
		{"preview", SearchOptions{Availability: "preview"}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "books", Filter: "partial"}},
		{"paid", SearchOptions{Availability: "paid"}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "books", Filter: "paid-ebooks"}},
		{"ebooks", SearchOptions{Format: "ebooks"}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "books", Filter: "ebooks"}},
		{"all formats", SearchOptions{Format: "all"}, googlebooks.QueryOptions{OrderBy: "relevance", PrintType: "all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.queryOptions())
		})
	}
}

func TestService_Featured(t *testing.T) {
	f := new(mockFetcher)
	var fiction []googlebooks.Volume
	for i, year := range []string{"2010", "2011", "2012", "2013", "2014", "2015", "2016", "2017", "2018", "2019"} {
		fiction = append(fiction, vol("f"+string(rune('a'+i)), "Fiction "+year, year))
	}
	unknownAuthor := vol("anon", "Nobody Wrote This", "2030")
	unknownAuthor.VolumeInfo.Authors = nil

	f.On("Volumes", mock.Anything, "subject:fiction", 24, mock.Anything).Return(fiction, nil)
	f.On("Volumes", mock.Anything, "subject:young+adult+fiction", 20, mock.Anything).Return([]googlebooks.Volume{
		vol("ya", "Young Adult", "2020-03"),
		unknownAuthor,
	}, nil)
	f.On("Volumes", mock.Anything, "subject:fantasy+subject:fiction", 20, mock.Anything).Return([]googlebooks.Volume{
		withoutThumbnail(vol("bare", "No Cover", "2031")),
		vol("fa", "Fiction 2010", "2010"),
	}, nil)

	svc := NewService(f, DefaultConfig(), discardLogger)
	books := svc.Featured(context.Background())

	require.Len(t, books, 8)
	assert.Equal(t, "ya", books[0].ID)
	assert.Equal(t, "fj", books[1].ID)
	assert.NotContains(t, ids(books), "anon")
	assert.NotContains(t, ids(books), "bare")
	f.AssertExpectations(t)
}

func TestService_UpcomingReleases(t *testing.T) {
	f := new(mockFetcher)
	newest := googlebooks.QueryOptions{OrderBy: "newest", LangRestrict: "en", PrintType: "books"}
	f.On("Volumes", mock.Anything, "subject:fiction", 40, newest).Return([]googlebooks.Volume{
		vol("sept", "Autumn Book", "2026-09-10"),
		vol("past", "Old Book", "2024-01-01"),
		vol("next-year", "Next Year", "2027"),
		withoutThumbnail(vol("bare", "No Cover", "2026-07-01")),
	}, nil)
	f.On("Volumes", mock.Anything, "subject:young+adult+fiction", 40, newest).Return([]googlebooks.Volume{
		vol("sept", "Autumn Book", "2026-09-10"),
		vol("june", "Soon Book", "2026-06-15"),
		vol("today", "Out Now", "2026-06-01"),
	}, nil)

	svc := NewService(f, DefaultConfig(), discardLogger).WithClock(fixedClock(2026, time.June, 1))
	books := svc.UpcomingReleases(context.Background(), 8)

	assert.Equal(t, []string{"june", "sept", "next-year"}, ids(books))
	f.AssertExpectations(t)
}

func TestService_ExploreRails(t *testing.T) {
	relevanceEN := googlebooks.QueryOptions{OrderBy: "relevance", LangRestrict: "en"}
	cfg := DefaultConfig()
	cfg.Rails = []Rail{
		{ID: "romance", Title: "Romance", Query: "subject:romance", MaxResults: 2, Options: relevanceEN},
		{ID: "horror", Title: "Horror", Query: "subject:horror", MaxResults: 2, Options: relevanceEN},
	}

	badDate := vol("h-bad", "Undated", "someday")
	f := new(mockFetcher)
	f.On("Volumes", mock.Anything, "subject:romance", 2, relevanceEN).Return([]googlebooks.Volume{}, nil)
	f.On("Volumes", mock.Anything, "subject:fiction", 2,
		googlebooks.QueryOptions{OrderBy: "relevance", LangRestrict: "en", PrintType: "books"},
	).Return([]googlebooks.Volume{
		vol("fb-1", "Fallback One", "2001"),
		vol("fb-2", "Fallback Two", "2002"),
		vol("fb-3", "Fallback Three", "2003"),
	}, nil)
	f.On("Volumes", mock.Anything, "subject:horror", 2, relevanceEN).Return([]googlebooks.Volume{
		vol("h-1", "Horror One", "1990"),
		vol("h-1", "Horror One", "1990"),
		badDate,
	}, nil)

	svc := NewService(f, cfg, discardLogger)
	rails := svc.ExploreRails(context.Background())

	require.Len(t, rails, 2)
	assert.Equal(t, "romance", rails[0].ID)
	assert.Equal(t, []string{"fb-1", "fb-2"}, ids(rails[0].Books))
	assert.Equal(t, "horror", rails[1].ID)
	assert.Equal(t, []string{"h-1"}, ids(rails[1].Books))
	f.AssertExpectations(t)
}

func TestService_ExploreRailByID(t *testing.T) {
	newestEN := googlebooks.QueryOptions{OrderBy: "newest", LangRestrict: "en"}
	secondPage := newestEN
	secondPage.StartIndex = 40

	cfg := DefaultConfig()
	cfg.Rails = []Rail{{ID: NewReleasesRailID, Title: "New Releases", Query: "subject:fiction", MaxResults: 12, Options: newestEN}}

	t.Run("merges both pages", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volumes", mock.Anything, "subject:fiction", 40, newestEN).Return([]googlebooks.Volume{
			vol("a", "A", "2025-02-01"),
			vol("b", "B", "2023"),
		}, nil)
		f.On("Volumes", mock.Anything, "subject:fiction", 40, secondPage).Return([]googlebooks.Volume{
			vol("b", "B", "2023"),
			vol("c", "C", "2024-07"),
		}, nil)

		svc := NewService(f, cfg, discardLogger).WithClock(fixedClock(2026, time.March, 1))
		rail, ok := svc.ExploreRailByID(context.Background(), NewReleasesRailID, 2)

		require.True(t, ok)
		assert.Equal(t, 3, rail.TotalAvailable)
		assert.Equal(t, []string{"a", "c"}, ids(rail.Books))
	})

	t.Run("unknown rail", func(t *testing.T) {
		f := new(mockFetcher)
		svc := NewService(f, cfg, discardLogger)

		rail, ok := svc.ExploreRailByID(context.Background(), "poetry", 10)

		assert.False(t, ok)
		assert.Nil(t, rail)
		f.AssertNotCalled(t, "Volumes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_PickNewReleases(t *testing.T) {
	summaries := func(dates ...string) []BookSummary {
		var out []BookSummary
		for i, d := range dates {
			b, _ := mapSummary(vol(string(rune('a'+i)), "Book", d))
			out = append(out, b)
		}
		return out
	}
	svc := NewService(new(mockFetcher), DefaultConfig(), discardLogger).WithClock(fixedClock(2026, time.May, 5))

	t.Run("recent window is used when it has enough books", func(t *testing.T) {
		books := summaries("2019", "2025-01", "2023-05-02", "2024", "2010")

		got := svc.pickNewReleases(books, 3)

		assert.Equal(t, []string{"b", "d", "c"}, ids(got))
	})

	t.Run("sparse window falls back to newest first", func(t *testing.T) {
		books := summaries("2019", "2025-01", "2010", "2015")

		got := svc.pickNewReleases(books, 3)

		assert.Equal(t, []string{"b", "a", "d"}, ids(got))
	})

	t.Run("cutoff is january first", func(t *testing.T) {
		books := summaries("2022-01-01", "2021-12-31")

		got := svc.pickNewReleases(books, 1)

		assert.Equal(t, []string{"a"}, ids(got))
	})
}

func TestService_BookByID(t *testing.T) {
	t.Run("maps detail defaults", func(t *testing.T) {
		f := new(mockFetcher)
		v := vol("dune", "Dune", "1965-08-01")
		f.On("Volume", mock.Anything, "dune").Return(&v, nil)

		svc := NewService(f, DefaultConfig(), discardLogger)
		book, ok := svc.BookByID(context.Background(), "  dune ")

		require.True(t, ok)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, "August 1, 1965", book.PublishedDate)
		assert.Equal(t, "No description available.", book.Description)
		assert.Equal(t, "Unknown publisher", book.Publisher)
		assert.Nil(t, book.PageCount)
		assert.Nil(t, book.PreviewLink)
		require.NotNil(t, book.Thumbnail)
		assert.Equal(t, "https://books.example/dune.jpg", *book.Thumbnail)
	})

	t.Run("not found", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volume", mock.Anything, "nope").Return(nil, googlebooks.ErrNotFound)

		svc := NewService(f, DefaultConfig(), discardLogger)
		book, ok := svc.BookByID(context.Background(), "nope")

		assert.False(t, ok)
		assert.Nil(t, book)
	})

	t.Run("provider failure", func(t *testing.T) {
		f := new(mockFetcher)
		f.On("Volume", mock.Anything, "x").Return(nil, &googlebooks.StatusError{StatusCode: 500})

		svc := NewService(f, DefaultConfig(), discardLogger)
		_, ok := svc.BookByID(context.Background(), "x")

		assert.False(t, ok)
	})

	t.Run("blank id", func(t *testing.T) {
		f := new(mockFetcher)
		svc := NewService(f, DefaultConfig(), discardLogger)

		_, ok := svc.BookByID(context.Background(), " ")

		assert.False(t, ok)
		f.AssertNotCalled(t, "Volume", mock.Anything, mock.Anything)
	})
}
