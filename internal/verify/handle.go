package verify

import (
	"regexp"
	"strings"
)

// Scanned in order; the first pattern with a usable match wins.
var handlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://(?:www\.)?x\.com/([a-z0-9_]{2,15})`),
	regexp.MustCompile(`(?i)https?://(?:www\.)?twitter\.com/([a-z0-9_]{2,15})`),
}

const statusSuffix = "/status"

// ExtractHandle returns the first profile handle linked from body. Links to
// individual posts (handle followed by /status) are skipped.
func ExtractHandle(body string) string {
	for _, re := range handlePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
			if followedByStatus(body, m[1]) {
				continue
			}
			return body[m[2]:m[3]]
		}
	}
	return ""
}

func followedByStatus(body string, end int) bool {
	rest := body[end:]
	if len(rest) < len(statusSuffix) {
		return false
	}
	return strings.EqualFold(rest[:len(statusSuffix)], statusSuffix)
}
