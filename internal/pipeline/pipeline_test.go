package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dropscout/internal/clock/system"
	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/link"
	pubmem "github.com/JakeFAU/dropscout/internal/publisher/memory"
	"github.com/JakeFAU/dropscout/internal/report"
	"github.com/JakeFAU/dropscout/internal/storage/memory"
)

// monday is a Monday in UTC.
var monday = time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

// verifierStub verifies the URLs it knows and reports everything else as
// unverified with the canonical host as domain.
type verifierStub map[string]drops.Verification

func (v verifierStub) Verify(_ context.Context, officialURL string) drops.Verification {
	if res, ok := v[officialURL]; ok {
		return res
	}
	host, _ := link.CanonicalHost(officialURL)
	return drops.Verification{Domain: host, Reason: drops.ReasonNoHandle}
}

var knownProjects = verifierStub{
	"https://zora.co":   {Verified: true, Domain: "zora.co", Handle: "zora", Reason: drops.ReasonVerified},
	"https://layer.xyz": {Verified: true, Domain: "layer.xyz", Handle: "layer", Reason: drops.ReasonVerified},
	"https://orbit.fi":  {Verified: true, Domain: "orbit.fi", Handle: "orbit", Reason: drops.ReasonVerified},
}

type previewRecorder struct {
	mu    sync.Mutex
	kinds []string
	all   []drops.Thread
}

func (p *previewRecorder) Preview(_ context.Context, kind string, thread drops.Thread) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	p.all = append(p.all, thread)
	return nil
}

type harness struct {
	store     *memory.Store
	publisher *pubmem.Publisher
	previews  *previewRecorder
	clock     *system.Fixed
	deps      Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.NewStore(),
		publisher: pubmem.New(),
		previews:  &previewRecorder{},
		clock:     system.NewFixed(monday),
	}
	h.deps = Dependencies{
		Store:     h.store,
		Composer:  compose.New(compose.Config{AccountTag: "@dropscout", CardTitle: "DROPSCOUT"}),
		Publisher: h.publisher,
		Previewer: h.previews,
		Reporter:  report.New("run-test", h.clock, report.NewStoreSink(h.store)),
		Clock:     h.clock,
	}
	return h
}

func (h *harness) cadence(t *testing.T, cfg CadenceConfig) *Cadence {
	t.Helper()
	c, err := NewCadence(cfg, h.deps)
	require.NoError(t, err)
	return c
}

func (h *harness) evaluator(t *testing.T, cfg EvaluatorConfig, cadence CadenceConfig) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(cfg, knownProjects, nil, h.cadence(t, cadence), h.deps)
	require.NoError(t, err)
	return e
}

func (h *harness) events() []string {
	evts := h.store.Metrics()
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Event
	}
	return out
}

func (h *harness) counter(t *testing.T) int64 {
	t.Helper()
	n, err := h.store.Counter(context.Background(), drops.MetaPostCounter)
	require.NoError(t, err)
	return n
}

func (h *harness) publishStamped(t *testing.T, name, domain string, score int, at time.Time) {
	t.Helper()
	ctx := context.Background()
	id, err := h.store.ReservePublished(ctx, drops.PublishedRecord{
		DupeKey:        drops.DupeKey(name, domain),
		Name:           name,
		OfficialURL:    "https://" + domain,
		OfficialDomain: domain,
		Verified:       true,
		Score:          score,
		CreatedAt:      at,
	})
	require.NoError(t, err)
	require.NoError(t, h.store.MarkPublished(ctx, id, "root-"+name, at))
}

func defaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Policy: Policy{
			RequireHTTPS:     true,
			BlockShorteners:  true,
			RejectSocialOnly: true,
			AutoPost:         true,
		},
		Thresholds: Thresholds{
			MinVerified:   70,
			MinUnverified: 85,
			QueueMin:      55,
		},
		MaxPostsPerRun: 5,
	}
}

func cand(id, text string) drops.RawCandidate {
	return drops.RawCandidate{SourceID: id, Text: text}
}

func TestDependenciesValidate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	deps := h.deps
	deps.Publisher = nil
	_, err := NewCadence(CadenceConfig{}, deps)
	require.ErrorContains(t, err, "publisher is required")

	_, err = NewEvaluator(defaultEvaluatorConfig(), nil, nil, h.cadence(t, CadenceConfig{}), h.deps)
	require.ErrorContains(t, err, "verifier is required")
}
