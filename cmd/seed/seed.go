package main

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"bookcrew/internal/catalog"
	"bookcrew/internal/shelf"
)

type seedStats struct {
	byStatus  map[shelf.Status]int
	favorites int
}

// seedShelves spreads books across every status in turn, starting from a
// random shelf, and favorites every nth book.
func seedShelves(ctx context.Context, svc *shelf.Service, uid string, books []shelf.BookRef, rnd *rand.Rand, every int) (seedStats, error) {
	stats := seedStats{byStatus: map[shelf.Status]int{}}
	offset := rnd.Intn(len(shelf.Statuses))
	for i, b := range books {
		status := shelf.Statuses[(offset+i)%len(shelf.Statuses)]
		if _, err := svc.SetStatus(ctx, uid, b, status); err != nil {
			return stats, fmt.Errorf("set %s on %q: %w", status, b.Title, err)
		}
		stats.byStatus[status]++

		if every > 0 && (i+1)%every == 0 {
			out, err := svc.ToggleFavorite(ctx, uid, b)
			if err != nil {
				return stats, fmt.Errorf("favorite %q: %w", b.Title, err)
			}
			if out.Selection.Favorite {
				stats.favorites++
			}
		}
	}
	return stats, nil
}

func syntheticBooks(rnd *rand.Rand, n int) []shelf.BookRef {
	books := make([]shelf.BookRef, 0, n)
	for i := 0; i < n; i++ {
		year := 1950 + rnd.Intn(75)
		books = append(books, shelf.BookRef{
			ID:            "seed-" + strconv.Itoa(i+1),
			Title:         fmt.Sprintf("The %s of %s", randomWord(rnd), randomWord(rnd)),
			Authors:       fmt.Sprintf("%s %s", randomWord(rnd), randomWord(rnd)),
			PublishedDate: strconv.Itoa(year),
		})
	}
	return books
}

func fromCatalog(found []catalog.BookSummary) []shelf.BookRef {
	books := make([]shelf.BookRef, 0, len(found))
	for _, b := range found {
		books = append(books, shelf.BookRef{
			ID:               b.ID,
			Title:            b.Title,
			Authors:          b.Authors,
			Thumbnail:        b.Thumbnail,
			PublishedDate:    b.PublishedDate,
			PublishedDateRaw: b.PublishedDateRaw,
		})
	}
	return books
}

func randomWord(rnd *rand.Rand) string {
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
	return words[rnd.Intn(len(words))]
}
