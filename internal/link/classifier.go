// Package link classifies candidate URLs and their hosts.
package link

import (
	"net/url"
	"strings"
)

var shorteners = map[string]struct{}{
	"bit.ly":      {},
	"t.co":        {},
	"tinyurl.com": {},
	"goo.gl":      {},
	"ow.ly":       {},
	"buff.ly":     {},
	"cutt.ly":     {},
	"is.gd":       {},
	"rebrand.ly":  {},
	"linktr.ee":   {},
}

var socialOnly = map[string]struct{}{
	"t.me":        {},
	"telegram.me": {},
	"discord.gg":  {},
	"discord.com": {},
}

// CanonicalHost returns the lower-cased network location of raw with a leading
// "www." removed. It reports false for empty input, unparsable URLs and URLs
// without a host.
func CanonicalHost(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	return host, true
}

// IsSecure reports whether raw uses the https scheme.
func IsSecure(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https")
}

// IsShortener reports whether host is a known link shortener.
func IsShortener(host string) bool {
	_, ok := shorteners[host]
	return ok
}

// IsSocialOnly reports whether host only serves community or chat links.
func IsSocialOnly(host string) bool {
	_, ok := socialOnly[host]
	return ok
}

// IsAllowed reports whether host matches the allowlist. An empty allowlist
// allows everything; an empty host never matches a non-empty allowlist.
func IsAllowed(allowlist []string, host string) bool {
	if len(allowlist) == 0 {
		return true
	}
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	for _, entry := range allowlist {
		a := strings.ToLower(strings.TrimSpace(entry))
		if a == "" {
			continue
		}
		if h == a || strings.HasSuffix(h, "."+a) {
			return true
		}
	}
	return false
}
