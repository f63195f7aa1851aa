package xapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// The recent search endpoint accepts between 10 and 100 results per page.
const (
	minSearchResults = 10
	maxSearchResults = 100
)

type urlEntity struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
}

type searchResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		AuthorID string `json:"author_id"`
		Entities struct {
			URLs []urlEntity `json:"urls"`
		} `json:"entities"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// BuildQuery OR-joins the keywords, quoting multi-word phrases, and excludes
// retweets and replies.
func BuildQuery(keywords []string, lang string) string {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.Contains(k, " ") {
			k = strconv.Quote(k)
		}
		terms = append(terms, k)
	}
	q := fmt.Sprintf("(%s) -is:retweet -is:reply", strings.Join(terms, " OR "))
	if lang != "" {
		q += " lang:" + lang
	}
	return q
}

// Search implements drops.Source against the recent search endpoint.
func (c *Client) Search(ctx context.Context, q drops.Query) ([]drops.RawCandidate, error) {
	if len(q.Keywords) == 0 {
		return nil, fmt.Errorf("xapi: search needs at least one keyword")
	}
	want := min(max(q.MaxResults, 1), maxSearchResults)
	params := url.Values{}
	params.Set("query", BuildQuery(q.Keywords, q.Lang))
	params.Set("max_results", strconv.Itoa(max(want, minSearchResults)))
	params.Set("tweet.fields", "created_at,entities,author_id")
	params.Set("expansions", "author_id")

	var resp searchResponse
	if err := c.do(ctx, "search", http.MethodGet, "/2/tweets/search/recent", params, c.cfg.BearerToken, nil, &resp); err != nil {
		return nil, err
	}

	authors := make(map[string]string, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		authors[u.ID] = u.Username
	}
	out := make([]drops.RawCandidate, 0, len(resp.Data))
	for _, t := range resp.Data {
		if len(out) == want {
			break
		}
		cand := drops.RawCandidate{
			SourceID:     t.ID,
			Text:         t.Text,
			AuthorHandle: authors[t.AuthorID],
		}
		for _, e := range t.Entities.URLs {
			if u := firstNonEmpty(e.ExpandedURL, e.URL); u != "" {
				cand.EntityURLs = append(cand.EntityURLs, u)
			}
		}
		out = append(out, cand)
	}
	c.logger.Debug("search complete", zap.Int("results", len(out)))
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
