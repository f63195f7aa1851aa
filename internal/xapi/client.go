// Package xapi is a small client for the X v2 REST API covering recent
// search, profile lookup and threaded posting.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/policy/ratelimit"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.twitter.com"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrNotFound is returned when a user lookup resolves to no account.
var ErrNotFound = errors.New("xapi: not found")

// APIError describes a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xapi: status %d: %s", e.Status, e.Body)
}

// Config configures the client. BearerToken is the app-only token used for
// reads; UserToken is the user-context token required for posting.
type Config struct {
	BaseURL     string
	BearerToken string
	UserToken   string
	Timeout     time.Duration
	RPS         float64
}

// Client talks to the X API.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New builds a client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("x.base_url must be an absolute URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		base:    base,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.New(ratelimit.Config{RPS: cfg.RPS, Burst: 1}),
		logger:  logger.Named("xapi"),
	}, nil
}

func (c *Client) do(ctx context.Context, bucket, method, path string, query url.Values, token string, in, out any) error {
	if token == "" {
		return fmt.Errorf("xapi: %s %s: missing token", method, path)
	}
	if err := c.limiter.Wait(ctx, bucket); err != nil {
		return err
	}

	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("xapi: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("xapi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("xapi: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("xapi: decode %s: %w", path, err)
	}
	return nil
}
