// Package detector decides when a probed landing page needs a headless render
// before its social links can be read.
package detector

import (
	"bytes"
	"strings"

	"github.com/JakeFAU/dropscout/internal/fetcher"
)

const (
	defaultThinBodyBytes = 2048
	scriptCoveragePct    = 25
)

// Heuristic flags client-rendered pages with a few rule-based checks.
type Heuristic struct {
	ThinBodyBytes int
}

// NewHeuristic creates a detector. A zero threshold uses the default.
func NewHeuristic(thinBodyBytes int) *Heuristic {
	if thinBodyBytes <= 0 {
		thinBodyBytes = defaultThinBodyBytes
	}
	return &Heuristic{ThinBodyBytes: thinBodyBytes}
}

var appShellMarkers = [][]byte{
	[]byte(`id="__next"`),
	[]byte(`id="__nuxt"`),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
	[]byte("enable javascript to run this app"),
}

// NeedsRender reports whether resp looks like an app shell whose content is
// injected by scripts.
func (h *Heuristic) NeedsRender(resp fetcher.Response) bool {
	if !resp.OK() || resp.UsedHeadless {
		return false
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return true
	}
	lower := bytes.ToLower(resp.Body)
	if len(lower) < h.ThinBodyBytes && scriptHeavy(string(lower)) {
		return true
	}
	for _, marker := range appShellMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// scriptHeavy reports whether <script> elements cover at least a quarter of
// the document. An unterminated tag counts to the end of the body.
func scriptHeavy(lower string) bool {
	total := len(lower)
	covered := 0
	for pos := 0; pos < total; {
		start := strings.Index(lower[pos:], "<script")
		if start < 0 {
			break
		}
		start += pos
		end := strings.Index(lower[start:], "</script>")
		if end < 0 {
			covered += total - start
			break
		}
		end += start + len("</script>")
		covered += end - start
		pos = end
	}
	return total > 0 && covered*100/total >= scriptCoveragePct
}
