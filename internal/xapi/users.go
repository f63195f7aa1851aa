package xapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/JakeFAU/dropscout/internal/drops"
)

type userResponse struct {
	Data *struct {
		Username    string `json:"username"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Entities    struct {
			URL struct {
				URLs []urlEntity `json:"urls"`
			} `json:"url"`
		} `json:"entities"`
	} `json:"data"`
}

// LookupProfile implements drops.ProfileLookup. Only the profile URL entity is
// expanded; links inside the bio are matched through the description text.
func (c *Client) LookupProfile(ctx context.Context, handle string) (drops.Profile, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return drops.Profile{}, ErrNotFound
	}
	params := url.Values{}
	params.Set("user.fields", "description,url,entities")

	var resp userResponse
	path := "/2/users/by/username/" + url.PathEscape(handle)
	if err := c.do(ctx, "users", http.MethodGet, path, params, c.cfg.BearerToken, nil, &resp); err != nil {
		return drops.Profile{}, err
	}
	if resp.Data == nil {
		return drops.Profile{}, ErrNotFound
	}
	p := drops.Profile{
		Username:    resp.Data.Username,
		Description: resp.Data.Description,
		URL:         resp.Data.URL,
	}
	for _, e := range resp.Data.Entities.URL.URLs {
		if e.ExpandedURL != "" {
			p.EntityURLs = append(p.EntityURLs, e.ExpandedURL)
		}
	}
	return p, nil
}
