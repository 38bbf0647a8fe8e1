// Package filter implements keyword validation and the search term matching
// used by feed previews.
package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Keyword length bounds in runes.
const (
	MinKeywordLen = 2
	MaxKeywordLen = 20
)

// rejectKeyword matches short lowercase tokens, pure digits, strings without
// any CJK, Latin letter or digit, and dot runs.
var rejectKeyword = regexp.MustCompile(`^[a-z]{1,2}$|^[0-9]+$|^[^\x{4e00}-\x{9fa5}a-zA-Z0-9]+$|^\.+$`)

// ValidKeyword reports whether s is worth counting as a topic keyword.
func ValidKeyword(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < MinKeywordLen || n > MaxKeywordLen {
		return false
	}
	return !rejectKeyword.MatchString(s)
}

// SearchTerms splits a search string the way the backend does: on spaces,
// dashes and pipes. Empty terms are dropped.
func SearchTerms(kw string) []string {
	return strings.FieldsFunc(kw, func(r rune) bool {
		return r == ' ' || r == '-' || r == '|'
	})
}

// FeedItem represents an RSS item to be matched against search terms.
type FeedItem struct {
	Title       string
	Description string
}

// Match reports whether any term occurs in the item's title or description,
// ignoring case. With no terms every item matches.
func Match(item FeedItem, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, t := range terms {
		if strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
