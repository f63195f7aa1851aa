// Package verify checks that an official project URL is controlled by the
// social account it links to.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/fetcher"
	"github.com/JakeFAU/dropscout/internal/link"
	"github.com/JakeFAU/dropscout/internal/metrics"
)

const defaultProfileTTL = 6 * time.Hour

// RenderDetector decides whether a probed page needs a headless render.
type RenderDetector interface {
	NeedsRender(resp fetcher.Response) bool
}

// Config tunes profile caching.
type Config struct {
	ProfileCacheTTL time.Duration
}

// Dependencies wires the verifier's collaborators. Renderer and Detector are
// optional; without both the verifier never renders pages.
type Dependencies struct {
	Probe    fetcher.Fetcher
	Renderer fetcher.Fetcher
	Detector RenderDetector
	Profiles drops.ProfileLookup
	Logger   *zap.Logger
}

// Verifier implements drops.Verifier.
type Verifier struct {
	probe    fetcher.Fetcher
	renderer fetcher.Fetcher
	detector RenderDetector
	profiles drops.ProfileLookup
	cache    *gocache.Cache
	logger   *zap.Logger
}

var _ drops.Verifier = (*Verifier)(nil)

// New builds a Verifier.
func New(cfg Config, deps Dependencies) *Verifier {
	ttl := cfg.ProfileCacheTTL
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		probe:    deps.Probe,
		renderer: deps.Renderer,
		detector: deps.Detector,
		profiles: deps.Profiles,
		cache:    gocache.New(ttl, 2*ttl),
		logger:   logger.Named("verify"),
	}
}

// Verify never fails; every problem degrades to an unverified result with a
// reason code.
func (v *Verifier) Verify(ctx context.Context, officialURL string) drops.Verification {
	res := v.verify(ctx, officialURL)
	metrics.ObserveVerification(string(res.Reason))
	return res
}

func (v *Verifier) verify(ctx context.Context, officialURL string) drops.Verification {
	domain, ok := link.CanonicalHost(officialURL)
	if !ok {
		return drops.Verification{Reason: drops.ReasonNoDomain}
	}
	res := drops.Verification{Domain: domain}

	resp, err := v.fetch(ctx, v.probe, officialURL)
	if err != nil {
		v.logger.Debug("probe fetch failed", zap.String("url", officialURL), zap.Error(err))
		res.Reason = drops.ReasonFetchFailed
		return res
	}

	res.Handle = ExtractHandle(string(resp.Body))
	if res.Handle == "" && v.shouldRender(resp) {
		rendered, err := v.fetch(ctx, v.renderer, officialURL)
		if err != nil {
			v.logger.Debug("headless render failed", zap.String("url", officialURL), zap.Error(err))
		} else {
			res.Handle = ExtractHandle(string(rendered.Body))
		}
	}
	if res.Handle == "" {
		res.Reason = drops.ReasonNoHandle
		return res
	}

	profile, err := v.lookup(ctx, res.Handle)
	if err != nil {
		v.logger.Debug("profile lookup failed", zap.String("handle", res.Handle), zap.Error(err))
		res.Reason = drops.ReasonLookupFailed
		return res
	}
	if !ProfileMatches(profile, domain) {
		res.Reason = drops.ReasonProfileMismatch
		return res
	}
	res.Verified = true
	res.Reason = drops.ReasonVerified
	return res
}

func (v *Verifier) fetch(ctx context.Context, f fetcher.Fetcher, url string) (fetcher.Response, error) {
	resp, err := f.Fetch(ctx, fetcher.Request{URL: url})
	if err != nil {
		return fetcher.Response{}, err
	}
	metrics.ObserveFetch(resp.UsedHeadless, resp.Duration)
	if !resp.OK() {
		return fetcher.Response{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

func (v *Verifier) shouldRender(resp fetcher.Response) bool {
	return v.renderer != nil && v.detector != nil && v.detector.NeedsRender(resp)
}

func (v *Verifier) lookup(ctx context.Context, handle string) (drops.Profile, error) {
	key := strings.ToLower(handle)
	if cached, ok := v.cache.Get(key); ok {
		metrics.ObserveProfileCache(true)
		return cached.(drops.Profile), nil
	}
	metrics.ObserveProfileCache(false)
	profile, err := v.profiles.LookupProfile(ctx, handle)
	if err != nil {
		return drops.Profile{}, err
	}
	v.cache.SetDefault(key, profile)
	return profile, nil
}

// ProfileMatches reports whether the profile references domain, either as a
// substring of any linked URL's host or of the lower-cased bio.
func ProfileMatches(p drops.Profile, domain string) bool {
	if domain == "" {
		return false
	}
	urls := make([]string, 0, len(p.EntityURLs)+1)
	if p.URL != "" {
		urls = append(urls, p.URL)
	}
	urls = append(urls, p.EntityURLs...)
	for _, u := range urls {
		if host, ok := link.CanonicalHost(u); ok && strings.Contains(host, domain) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(p.Description), domain)
}
