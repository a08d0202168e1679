package catalog

import (
	"strings"

	"bookcrew/internal/bookref"
	"bookcrew/internal/platform/googlebooks"
)

const (
	unknownAuthor    = "Unknown author"
	unknownDate      = "Unknown"
	defaultCategory  = "Book"
	noDescription    = "No description available."
	unknownPublisher = "Unknown publisher"
)

// mapSummary returns false for volumes without a title.
func mapSummary(v googlebooks.Volume) (BookSummary, bool) {
	info := v.VolumeInfo
	if info == nil || info.Title == "" {
		return BookSummary{}, false
	}

	b := BookSummary{
		ID:            v.ID,
		Title:         info.Title,
		Authors:       unknownAuthor,
		PublishedDate: bookref.FormatPublishedDate(info.PublishedDate),
		Category:      defaultCategory,
	}
	if len(info.Authors) > 0 {
		b.Authors = strings.Join(info.Authors, ", ")
	}
	if info.PublishedDate != "" {
		raw := info.PublishedDate
		b.PublishedDateRaw = &raw
	}
	if len(info.Categories) > 0 {
		b.Category = info.Categories[0]
	}
	if info.ImageLinks != nil {
		b.Thumbnail = normalizeThumbnail(info.ImageLinks.Thumbnail, info.ImageLinks.SmallThumbnail)
	}
	return b, true
}

func mapDetail(v googlebooks.Volume) (BookDetail, bool) {
	summary, ok := mapSummary(v)
	if !ok {
		return BookDetail{}, false
	}

	info := v.VolumeInfo
	d := BookDetail{
		BookSummary: summary,
		Description: noDescription,
		PageCount:   info.PageCount,
		Publisher:   unknownPublisher,
	}
	if info.Description != "" {
		d.Description = info.Description
	}
	if info.Publisher != "" {
		d.Publisher = info.Publisher
	}
	if info.PreviewLink != "" {
		link := info.PreviewLink
		d.PreviewLink = &link
	}
	return d, true
}

func mapSummaries(volumes []googlebooks.Volume, keep func(BookSummary) bool) []BookSummary {
	out := make([]BookSummary, 0, len(volumes))
	for _, v := range volumes {
		b, ok := mapSummary(v)
		if !ok || (keep != nil && !keep(b)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func normalizeThumbnail(thumbnail, fallback string) *string {
	image := thumbnail
	if image == "" {
		image = fallback
	}
	if image == "" {
		return nil
	}
	if strings.HasPrefix(image, "http://") {
		image = "https://" + strings.TrimPrefix(image, "http://")
	}
	return &image
}

func hasKnownAuthor(b BookSummary) bool {
	return strings.ToLower(strings.TrimSpace(b.Authors)) != strings.ToLower(unknownAuthor)
}

func hasKnownDate(b BookSummary) bool {
	return strings.ToLower(strings.TrimSpace(b.PublishedDate)) != strings.ToLower(unknownDate)
}

// isDisplayable gates the home page lists.
func isDisplayable(b BookSummary) bool {
	return b.Thumbnail != nil && hasKnownAuthor(b) && b.RawDate() != "" && hasKnownDate(b)
}

// isExploreEligible is stricter than isDisplayable: the date must parse.
func isExploreEligible(b BookSummary) bool {
	_, parsed := bookref.ParsePublishedDate(b.RawDate())
	return b.Thumbnail != nil && hasKnownAuthor(b) && parsed && hasKnownDate(b)
}

// mergeByID concatenates result sets keeping the first occurrence of each ID.
func mergeByID(sets ...[]BookSummary) []BookSummary {
	seen := make(map[string]struct{})
	var out []BookSummary
	for _, set := range sets {
		for _, b := range set {
			if _, dup := seen[b.ID]; dup {
				continue
			}
			seen[b.ID] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

// publishedMillis is the sort key for date ordering; unparseable dates sort as 0.
func publishedMillis(b BookSummary) int64 {
	ms, _ := bookref.Timestamp(b.RawDate())
	return ms
}
