package shelf

import (
	"errors"
	"fmt"
	"strings"

	"bookcrew/internal/bookref"
	"bookcrew/internal/platform/docstore"
)

type Status string

const (
	Want    Status = "want"
	Reading Status = "reading"
	Read    Status = "read"
	Dropped Status = "dropped"
	Paused  Status = "paused"
)

// Statuses lists every shelf in the order used to resolve a book's status.
var Statuses = []Status{Want, Reading, Read, Dropped, Paused}

var (
	ErrUnknownStatus = errors.New("unknown shelf status")
	// ErrInvalidBook rejects catalog ids that would escape their document path.
	ErrInvalidBook = errors.New("invalid book id")
)

var labels = map[Status]string{
	Want:    "Want to Read",
	Reading: "Reading",
	Read:    "Read",
	Dropped: "Dropped",
	Paused:  "Paused",
}

func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, v)
	}
	return s, nil
}

// BookRef is the slice of a catalog book that gets written to a shelf.
type BookRef struct {
	ID               string  `json:"id" validate:"required,notblank,excludesall=/"`
	Title            string  `json:"title" validate:"required,notblank"`
	Authors          string  `json:"authors"`
	Thumbnail        *string `json:"thumbnail"`
	PublishedDate    string  `json:"publishedDate"`
	PublishedDateRaw *string `json:"publishedDateRaw"`
}

func (b BookRef) DocID() string {
	return bookref.DocID(b.Title, b.ID)
}

func (b BookRef) fields() map[string]any {
	return map[string]any{
		"docId":            b.DocID(),
		"bookId":           b.ID,
		"title":            b.Title,
		"authors":          b.Authors,
		"thumbnail":        optional(b.Thumbnail),
		"publishedDate":    b.PublishedDate,
		"publishedDateRaw": optional(b.PublishedDateRaw),
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// StoredBook is a shelf or favorites entry as read back from the store.
type StoredBook struct {
	DocID            string  `json:"docId"`
	BookID           string  `json:"bookId"`
	Title            string  `json:"title"`
	Authors          string  `json:"authors"`
	PublishedDate    string  `json:"publishedDate"`
	PublishedDateRaw *string `json:"publishedDateRaw"`
	Thumbnail        *string `json:"thumbnail"`
	StatusID         string  `json:"statusId,omitempty"`
}

// Key identifies the book across document shapes.
func (b StoredBook) Key() string {
	if b.BookID != "" {
		return b.BookID
	}
	return b.DocID
}

// FromDocument maps stored data leniently. Missing fields get placeholders
// and non-string optional fields read as absent.
func FromDocument(doc docstore.Document) StoredBook {
	b := StoredBook{
		DocID:         doc.ID,
		BookID:        text(doc.Data["bookId"], doc.ID),
		Title:         text(doc.Data["title"], "Untitled"),
		Authors:       text(doc.Data["authors"], "Unknown author"),
		PublishedDate: text(doc.Data["publishedDate"], "Unknown"),
	}
	if s, ok := docstore.String(doc.Data, "publishedDateRaw"); ok {
		b.PublishedDateRaw = &s
	}
	if s, ok := docstore.String(doc.Data, "thumbnail"); ok {
		b.Thumbnail = &s
	}
	if s, ok := docstore.String(doc.Data, "statusId"); ok {
		b.StatusID = s
	}
	return b
}

func FromDocuments(docs []docstore.Document) []StoredBook {
	out := make([]StoredBook, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out
}

func text(v any, fallback string) string {
	switch t := v.(type) {
	case nil:
		return fallback
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

const favoritesShelf = "favorites"

func StatusCollection(uid string, s Status) string {
	return docstore.Join("users", uid, "books", string(s), "items")
}

// LegacyStatusCollection is the older users/{uid}/status/{status}/books layout.
// It is still read and cleaned up but never written.
func LegacyStatusCollection(uid string, s Status) string {
	return docstore.Join("users", uid, "status", string(s), "books")
}

func FavoritesCollection(uid string) string {
	return docstore.Join("users", uid, "books", favoritesShelf, "items")
}
