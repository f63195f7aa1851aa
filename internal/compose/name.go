// Package compose turns pipeline decisions into publishable threads.
package compose

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JakeFAU/dropscout/internal/drops"
)

const (
	maxNameRunes  = 18
	minNameRunes  = 3
	nameScanWords = 10
	// PlaceholderName is used when a post has no words at all.
	PlaceholderName = "PROJECT"
)

// ProjectName derives a project name from post text: the first all-caps word
// of 3 to 18 characters among the first ten words, else the first word, else
// PlaceholderName. The result is at most 18 characters.
func ProjectName(text string) string {
	words := strings.Fields(text)
	limit := min(len(words), nameScanWords)
	for _, w := range words[:limit] {
		n := utf8.RuneCountInString(w)
		if n >= minNameRunes && n <= maxNameRunes && isUpper(w) {
			return w
		}
	}
	if len(words) == 0 {
		return PlaceholderName
	}
	return drops.Truncate(words[0], maxNameRunes)
}

// isUpper reports whether w has at least one cased letter and no lower-case
// letters.
func isUpper(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}
