package library

import (
	"slices"

	"bookcrew/internal/profile"
	"bookcrew/internal/shelf"
)

// ShelfSource names one on-disk layout of a reader's status shelves.
type ShelfSource interface {
	Name() string
	Collection(uid string, status shelf.Status) string
}

type currentShape struct{}

func (currentShape) Name() string { return "current" }

func (currentShape) Collection(uid string, status shelf.Status) string {
	return shelf.StatusCollection(uid, status)
}

type legacyShape struct{}

func (legacyShape) Name() string { return "legacy" }

func (legacyShape) Collection(uid string, status shelf.Status) string {
	return shelf.LegacyStatusCollection(uid, status)
}

var (
	CurrentShape ShelfSource = currentShape{}
	LegacyShape  ShelfSource = legacyShape{}
)

// DefaultSources lists layouts in merge priority order.
func DefaultSources() []ShelfSource {
	return []ShelfSource{CurrentShape, LegacyShape}
}

type Shelves map[shelf.Status][]shelf.StoredBook

func emptyShelves() Shelves {
	s := make(Shelves, len(shelf.Statuses))
	for _, status := range shelf.Statuses {
		s[status] = []shelf.StoredBook{}
	}
	return s
}

// State is everything the app shows about the signed-in reader.
type State struct {
	Identity                *profile.Identity  `json:"identity"`
	Profile                 *profile.Profile   `json:"profile"`
	ProfilePermissionDenied bool               `json:"profilePermissionDenied"`
	Shelves                 Shelves            `json:"shelves"`
	Favorites               []shelf.StoredBook `json:"favorites"`
	ShelfPermissionDenied   bool               `json:"shelfPermissionDenied"`
}

func emptyState(id *profile.Identity) State {
	return State{
		Identity:  id,
		Shelves:   emptyShelves(),
		Favorites: []shelf.StoredBook{},
	}
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.Shelves = make(Shelves, len(s.Shelves))
	for k, v := range s.Shelves {
		out.Shelves[k] = slices.Clone(v)
	}
	out.Favorites = slices.Clone(s.Favorites)
	return out
}

// Merge concatenates sets in priority order and keeps the first entry seen
// for each book.
func Merge(sets ...[]shelf.StoredBook) []shelf.StoredBook {
	seen := make(map[string]bool)
	out := []shelf.StoredBook{}
	for _, set := range sets {
		for _, b := range set {
			key := b.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, b)
		}
	}
	return out
}
