package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
)

type sourceStub struct {
	candidates []drops.RawCandidate
	err        error
	queries    []drops.Query
}

func (s *sourceStub) Search(_ context.Context, q drops.Query) ([]drops.RawCandidate, error) {
	s.queries = append(s.queries, q)
	return s.candidates, s.err
}

func (h *harness) runner(t *testing.T, src drops.Source, sponsored SponsoredConfig, dryRun bool, cadence CadenceConfig) *Runner {
	t.Helper()
	c := h.cadence(t, cadence)
	cfg := defaultEvaluatorConfig()
	cfg.DryRun = dryRun
	e, err := NewEvaluator(cfg, knownProjects, nil, c, h.deps)
	require.NoError(t, err)
	r, err := NewRunner(src, sponsored, dryRun, c, e, h.deps)
	require.NoError(t, err)
	return r
}

var sponsoredAcme = SponsoredConfig{
	Enabled: true,
	Sponsored: compose.Sponsored{
		Title:       "Featured",
		Project:     "ACME",
		OfficialURL: "https://acme.io",
		Note:        "Audited testnet with points.",
		Tag:         "#ad",
	},
}

func TestRunEvaluatesSearchResults(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	src := &sourceStub{candidates: []drops.RawCandidate{cand("1", zoraText), cand("2", acmeText)}}
	q := drops.Query{Keywords: []string{"airdrop"}, Lang: "en", MaxResults: 25}

	res, err := h.runner(t, src, SponsoredConfig{}, false, CadenceConfig{}).Run(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Candidates: 2, Summary: Summary{Published: 1, Queued: 1}}, res)
	assert.Equal(t, []drops.Query{q}, src.queries)
}

func TestRunDigestGoesFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishStamped(t, "LAYER", "layer.xyz", 90, monday.Add(-time.Hour))
	src := &sourceStub{candidates: []drops.RawCandidate{cand("1", zoraText)}}

	res, err := h.runner(t, src, SponsoredConfig{}, false, CadenceConfig{WeeklyDigest: true, DigestDay: time.Monday}).
		Run(context.Background(), drops.Query{})
	require.NoError(t, err)
	assert.True(t, res.Digest)
	assert.Equal(t, 1, res.Summary.Published)

	threads := h.publisher.Threads()
	require.Len(t, threads, 2)
	require.NotNil(t, threads[0].Card)
	assert.Equal(t, "WEEKLY DIGEST", threads[0].Card.Subtitle)
	assert.Equal(t, []string{drops.EventDigestPosted, drops.EventPosted}, h.events())
}

func TestRunSponsoredReplacesEvaluation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	src := &sourceStub{candidates: []drops.RawCandidate{cand("1", zoraText)}}

	res, err := h.runner(t, src, sponsoredAcme, false, CadenceConfig{}).Run(context.Background(), drops.Query{})
	require.NoError(t, err)
	assert.True(t, res.Sponsored)
	assert.Empty(t, src.queries)

	threads := h.publisher.Threads()
	require.Len(t, threads, 1)
	assert.Contains(t, threads[0].Segments[0], "Featured | ACME")
	assert.Equal(t, "ACME | SPONSORED", threads[0].Card.Subtitle)
	assert.Equal(t, int64(1), h.counter(t))
	assert.Equal(t, []string{drops.EventSponsoredPosted}, h.events())
}

func TestRunSponsoredDryRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	res, err := h.runner(t, &sourceStub{}, sponsoredAcme, true, CadenceConfig{}).Run(context.Background(), drops.Query{})
	require.NoError(t, err)
	assert.True(t, res.Sponsored)
	assert.Zero(t, h.publisher.Attempts())
	assert.Equal(t, []string{drops.KindSponsored}, h.previews.kinds)
	assert.Equal(t, int64(1), h.counter(t))
	assert.Equal(t, []string{drops.EventSponsoredDryRun}, h.events())
}

func TestSponsoredConfigActive(t *testing.T) {
	t.Parallel()

	assert.True(t, sponsoredAcme.Active())
	missing := sponsoredAcme
	missing.OfficialURL = ""
	assert.False(t, missing.Active())
	off := sponsoredAcme
	off.Enabled = false
	assert.False(t, off.Active())
}

func TestRunSearchError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.runner(t, &sourceStub{err: errors.New("401")}, SponsoredConfig{}, false, CadenceConfig{}).
		Run(context.Background(), drops.Query{})
	require.ErrorContains(t, err, "search candidates")
}
