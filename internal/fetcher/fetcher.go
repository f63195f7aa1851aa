// Package fetcher defines the page fetch contract used by ownership
// verification. Implementations live in the colly and headless subpackages.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request describes a single page fetch.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is the bounded result of a fetch.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// OK reports whether the response carries a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves a page body.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}
