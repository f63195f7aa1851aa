package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dropscout/internal/drops"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, BearerToken: "app", UserToken: "user"}, nil)
	require.NoError(t, err)
	return c
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	got := BuildQuery([]string{"airdrop", "points program", " ", "testnet"}, "en")
	assert.Equal(t, `(airdrop OR "points program" OR testnet) -is:retweet -is:reply lang:en`, got)
	assert.Equal(t, `(airdrop) -is:retweet -is:reply`, BuildQuery([]string{"airdrop"}, ""))
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseURL: "/relative"}, nil)
	require.ErrorContains(t, err, "x.base_url")
}

func TestSearch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/tweets/search/recent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer app", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "(airdrop) -is:retweet -is:reply lang:en", q.Get("query"))
		assert.Equal(t, "10", q.Get("max_results"))
		assert.Equal(t, "author_id", q.Get("expansions"))
		fmt.Fprint(w, `{
			"data": [
				{"id": "1", "text": "ZORA quest live", "author_id": "u1",
				 "entities": {"urls": [{"url": "https://t.co/x", "expanded_url": "https://zora.co"}]}},
				{"id": "2", "text": "no links", "author_id": "u2"},
				{"id": "3", "text": "over the cap", "author_id": "u1"}
			],
			"includes": {"users": [{"id": "u1", "username": "zora"}]}
		}`)
	})
	c := newTestClient(t, mux)

	got, err := c.Search(context.Background(), drops.Query{Keywords: []string{"airdrop"}, Lang: "en", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, drops.RawCandidate{
		SourceID:     "1",
		Text:         "ZORA quest live",
		AuthorHandle: "zora",
		EntityURLs:   []string{"https://zora.co"},
	}, got[0])
	assert.Empty(t, got[1].AuthorHandle)
}

func TestSearchCapsMaxResults(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/tweets/search/recent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("max_results"))
		fmt.Fprint(w, `{}`)
	})
	c := newTestClient(t, mux)

	got, err := c.Search(context.Background(), drops.Query{Keywords: []string{"airdrop"}, MaxResults: 500})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearchAPIError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/tweets/search/recent", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"title":"Too Many Requests"}`, http.StatusTooManyRequests)
	})
	c := newTestClient(t, mux)

	_, err := c.Search(context.Background(), drops.Query{Keywords: []string{"airdrop"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestLookupProfile(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/users/by/username/{handle}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "description,url,entities", r.URL.Query().Get("user.fields"))
		if r.PathValue("handle") != "zora" {
			fmt.Fprint(w, `{"errors":[{"title":"Not Found Error"}]}`)
			return
		}
		fmt.Fprint(w, `{"data": {
			"username": "zora", "description": "Build onchain", "url": "https://t.co/abc",
			"entities": {"url": {"urls": [{"url": "https://t.co/abc", "expanded_url": "https://zora.co"}]}}
		}}`)
	})
	c := newTestClient(t, mux)

	p, err := c.LookupProfile(context.Background(), "@zora")
	require.NoError(t, err)
	assert.Equal(t, drops.Profile{
		Username:    "zora",
		Description: "Build onchain",
		URL:         "https://t.co/abc",
		EntityURLs:  []string{"https://zora.co"},
	}, p)

	_, err = c.LookupProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPublishThreadChainsReplies(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		created []createRequest
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user", r.Header.Get("Authorization"))
		var req createRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		created = append(created, req)
		id := len(created)
		mu.Unlock()
		fmt.Fprintf(w, `{"data":{"id":"%d"}}`, 100+id)
	})
	c := newTestClient(t, mux)

	root, err := c.PublishThread(context.Background(), drops.Thread{
		Segments:  []string{"head", "steps", "safety"},
		SelfReply: "follow for more",
		Card:      &drops.Card{Title: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "101", root)

	require.Len(t, created, 4)
	assert.Nil(t, created[0].Reply)
	assert.Equal(t, "101", created[1].Reply.InReplyTo)
	assert.Equal(t, "102", created[2].Reply.InReplyTo)
	assert.Equal(t, "follow for more", created[3].Text)
	assert.Equal(t, "101", created[3].Reply.InReplyTo)
}

func TestPublishThreadRootFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	c := newTestClient(t, mux)

	_, err := c.PublishThread(context.Background(), drops.Thread{Segments: []string{"head"}})
	require.ErrorIs(t, err, drops.ErrPublish)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))

	_, err = c.PublishThread(context.Background(), drops.Thread{})
	require.ErrorIs(t, err, drops.ErrPublish)
}

func TestPublishThreadRequiresUserToken(t *testing.T) {
	t.Parallel()

	c, err := New(Config{BearerToken: "app"}, nil)
	require.NoError(t, err)
	_, err = c.PublishThread(context.Background(), drops.Thread{Segments: []string{"head"}})
	require.ErrorContains(t, err, "x.user_token")
}
