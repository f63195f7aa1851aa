package link

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/dropscout/internal/drops"
)

var inlineURL = regexp.MustCompile(`https?://\S+`)

const trailingPunct = ").,!?"

// ExtractURL returns the best absolute URL carried by a candidate. Structured
// entity URLs win over URLs found in the text.
func ExtractURL(c drops.RawCandidate) string {
	if strings.HasPrefix(c.URL, "http") {
		return strings.TrimRight(c.URL, trailingPunct)
	}
	for _, u := range c.EntityURLs {
		if strings.HasPrefix(u, "http") {
			return strings.TrimRight(u, trailingPunct)
		}
	}
	if m := inlineURL.FindString(c.Text); m != "" {
		return strings.TrimRight(m, trailingPunct)
	}
	return ""
}
