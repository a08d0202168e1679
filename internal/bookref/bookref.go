// Package bookref holds the small, stable helpers shared by the catalog and the
// shelf code: provider date parsing/formatting and the stored document key.
package bookref

import (
	"strconv"
	"strings"
	"time"
)

const (
	maxSlugLength = 70
	defaultSlug   = "book"
)

// DocID derives the document key a user's reference to a catalog book is stored
// under. The output for a given (title, catalogID) pair must never change:
// existing stored references depend on it.
func DocID(title, catalogID string) string {
	lowered := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lowered))
	pendingDash := false
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if slug == "" {
		slug = defaultSlug
	}
	return slug + "--" + catalogID
}

// ParsePublishedDate parses a provider date of year, year-month or
// year-month-day granularity. Partial dates resolve to the first instant of the
// implied period in UTC.
func ParsePublishedDate(raw string) (time.Time, bool) {
	parts, ok := splitDate(raw)
	if !ok {
		return time.Time{}, false
	}

	switch len(parts) {
	case 1:
		return time.Date(parts[0], time.January, 1, 0, 0, 0, 0, time.UTC), true
	case 2:
		return time.Date(parts[0], time.Month(parts[1]), 1, 0, 0, 0, 0, time.UTC), true
	case 3:
		return time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// Timestamp is ParsePublishedDate in Unix milliseconds.
func Timestamp(raw string) (int64, bool) {
	t, ok := ParsePublishedDate(raw)
	if !ok {
		return 0, false
	}
	return t.UnixMilli(), true
}

// FormatPublishedDate renders a provider date for display. Values it cannot
// improve on (year only, malformed, out of range) are returned unchanged.
func FormatPublishedDate(raw string) string {
	if raw == "" {
		return "Unknown"
	}

	parts, ok := splitDate(raw)
	if !ok {
		return raw
	}

	switch len(parts) {
	case 3:
		year, month, day := parts[0], parts[1], parts[2]
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return raw
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("January 2, 2006")
	case 2:
		year, month := parts[0], parts[1]
		if month < 1 || month > 12 {
			return raw
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	default:
		return raw
	}
}

func splitDate(raw string) ([]int, bool) {
	if raw == "" {
		return nil, false
	}
	fields := strings.Split(raw, "-")
	if len(fields) > 3 {
		return nil, false
	}
	parts := make([]int, len(fields))
	for i, f := range fields {
		if f == "" || strings.TrimLeft(f, "0123456789") != "" {
			return nil, false
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		parts[i] = n
	}
	return parts, true
}
