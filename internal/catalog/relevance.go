package catalog

import (
	"strings"
)

// Titles or categories containing any of these are study aids, fan works and
// similar rather than the book itself.
var nonOfficialSignals = []string{
	"fan fiction",
	"fanfict",
	"guide",
	"study guide",
	"summary",
	"analysis",
	"review",
	"companion",
	"workbook",
	"quiz",
	"coloring book",
	"leading man",
	"book notes",
}

// Relevance weights.
const (
	scoreExactTitle     = 220
	scoreTitleBoundary  = 150
	scoreTitleContains  = 100
	scorePerWord        = 22
	scoreMissingWords   = -60
	scoreAuthorMatch    = 25
	scoreFiction        = 10
	scoreLongTitle      = -20
	longTitleWords      = 7
	shortQueryWordLimit = 2
)

// normalizeText lowercases and collapses every run of characters outside
// [a-z0-9] into a single space.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

func countMatched(words []string, title string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(title, w) {
			n++
		}
	}
	return n
}

func looksLikeOfficialEdition(b BookSummary, rawQuery string) bool {
	query := normalizeText(rawQuery)
	title := normalizeText(b.Title)
	haystack := title + " " + normalizeText(b.Category)

	for _, signal := range nonOfficialSignals {
		if strings.Contains(haystack, signal) {
			return false
		}
	}

	words := strings.Fields(query)
	if len(words) == 0 {
		return true
	}
	need := max(1, (len(words)+1)/2)
	return countMatched(words, title) >= need
}

func scoreMatch(b BookSummary, rawQuery string) int {
	query := normalizeText(rawQuery)
	if query == "" {
		return 0
	}
	title := normalizeText(b.Title)
	words := strings.Fields(query)

	score := 0
	if title == query {
		score += scoreExactTitle
	}
	if strings.HasPrefix(title, query+" ") || strings.HasSuffix(title, " "+query) {
		score += scoreTitleBoundary
	}
	if strings.Contains(title, query) {
		score += scoreTitleContains
	}

	matched := countMatched(words, title)
	score += matched * scorePerWord
	if matched != len(words) {
		score += scoreMissingWords
	}

	if strings.Contains(normalizeText(b.Authors), query) {
		score += scoreAuthorMatch
	}
	if strings.Contains(normalizeText(b.Category), "fiction") {
		score += scoreFiction
	}
	if len(words) <= shortQueryWordLimit && len(strings.Fields(title)) > longTitleWords {
		score += scoreLongTitle
	}
	return score
}
