// Package score rates candidate posts and screens them for scam phrasing.
package score

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JakeFAU/dropscout/internal/link"
)

const (
	baseline      = 50
	verifiedBonus = 20
	hintBonus     = 6
	secureBonus   = 5
	lengthBonus   = 8
	dmBaitPenalty = 8
	lengthCutoff  = 220
	minScore      = 0
	maxScore      = 100
)

var blockPatterns = []string{
	"seed phrase",
	"private key",
	"send usdt",
	"send eth",
	"activation fee",
	"processing fee",
	"gift card",
	"guaranteed profit",
}

var qualityHints = []string{"docs", "official", "blog", "github", "mirror", "snapshot", "quest", "points"}

// HardBlock reports whether text contains a known scam phrase in any casing.
func HardBlock(text string) bool {
	t := strings.ToLower(text)
	for _, p := range blockPatterns {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// Score rates a candidate between 0 and 100.
func Score(text, officialURL string, verified bool) int {
	t := strings.ToLower(text)
	s := baseline
	if verified {
		s += verifiedBonus
	}
	for _, h := range qualityHints {
		if strings.Contains(t, h) {
			s += hintBonus
		}
	}
	if officialURL != "" && link.IsSecure(officialURL) {
		s += secureBonus
	}
	if utf8.RuneCountInString(collapseSpace(t)) > lengthCutoff {
		s += lengthBonus
	}
	if strings.Contains(t, "dm") && !strings.Contains(t, "link") {
		s -= dmBaitPenalty
	}
	return clamp(s)
}

// collapseSpace joins whitespace runs into single spaces, keeping a leading or
// trailing space when present.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func clamp(s int) int {
	if s < minScore {
		return minScore
	}
	if s > maxScore {
		return maxScore
	}
	return s
}
