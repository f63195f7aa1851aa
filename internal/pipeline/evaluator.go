package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/link"
	"github.com/JakeFAU/dropscout/internal/score"
)

// Policy toggles the candidate filters and routing rules.
type Policy struct {
	RequireHTTPS     bool
	BlockShorteners  bool
	RejectSocialOnly bool
	Allowlist        []string
	OnlyVerified     bool
	AutoPost         bool
}

// Thresholds are the score cut-offs used for routing.
type Thresholds struct {
	MinVerified   int
	MinUnverified int
	QueueMin      int
}

// EvaluatorConfig controls a single evaluation run.
type EvaluatorConfig struct {
	Policy     Policy
	Thresholds Thresholds
	// MaxPostsPerRun stops the run once this many posts went out. Zero
	// disables the cap.
	MaxPostsPerRun int
	DryRun         bool
}

// Summary counts the outcome of an evaluation run.
type Summary struct {
	Published     int `json:"published"`
	Queued        int `json:"queued"`
	Rejected      int `json:"rejected"`
	Skipped       int `json:"skipped"`
	PublishFailed int `json:"publish_failed"`
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRejected
	outcomeQueued
	outcomePublished
	outcomePublishFailed
)

func (s *Summary) add(o outcome) {
	switch o {
	case outcomeSkipped:
		s.Skipped++
	case outcomeRejected:
		s.Rejected++
	case outcomeQueued:
		s.Queued++
	case outcomePublished:
		s.Published++
	case outcomePublishFailed:
		s.PublishFailed++
	}
}

// Evaluator routes raw candidates to publication, the review queue or
// rejection.
type Evaluator struct {
	cfg      EvaluatorConfig
	deps     Dependencies
	verifier drops.Verifier
	extract  drops.URLExtractor
	cadence  *Cadence
	logger   *zap.Logger
}

// NewEvaluator builds an Evaluator. A nil extractor defaults to
// link.ExtractURL.
func NewEvaluator(
	cfg EvaluatorConfig,
	verifier drops.Verifier,
	extract drops.URLExtractor,
	cadence *Cadence,
	deps Dependencies,
) (*Evaluator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, fmt.Errorf("pipeline: verifier is required")
	}
	if cadence == nil {
		return nil, fmt.Errorf("pipeline: cadence is required")
	}
	if extract == nil {
		extract = link.ExtractURL
	}
	return &Evaluator{
		cfg:      cfg,
		deps:     deps,
		verifier: verifier,
		extract:  extract,
		cadence:  cadence,
		logger:   deps.logger("evaluator"),
	}, nil
}

// Evaluate processes candidates in order. Store failures abort the run and
// are returned with the partial summary. Once the per-run cap is reached the
// remaining candidates are left untouched, so a later run still sees them.
func (e *Evaluator) Evaluate(ctx context.Context, candidates []drops.RawCandidate) (Summary, error) {
	var sum Summary
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if e.capReached(sum.Published) {
			e.logger.Info("per-run cap reached", zap.Int("published", sum.Published))
			break
		}
		o, err := e.evaluate(ctx, c)
		if err != nil {
			return sum, fmt.Errorf("evaluate %s: %w", c.SourceID, err)
		}
		sum.add(o)
	}
	return sum, nil
}

func (e *Evaluator) capReached(published int) bool {
	return e.cfg.MaxPostsPerRun > 0 && published >= e.cfg.MaxPostsPerRun
}

func (e *Evaluator) evaluate(ctx context.Context, c drops.RawCandidate) (outcome, error) {
	if strings.TrimSpace(c.SourceID) == "" {
		e.logger.Warn("candidate without source id skipped", zap.Int("text_len", len(c.Text)))
		return outcomeSkipped, e.deps.record(ctx, drops.EventSkipNoSourceID, "")
	}
	fresh, err := e.deps.Store.MarkSeen(ctx, c.SourceID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("mark seen: %w", err)
	}
	if !fresh {
		return outcomeSkipped, nil
	}

	if score.HardBlock(c.Text) {
		return e.reject(ctx, drops.EventRejectHardBlock, c.SourceID)
	}

	officialURL := e.extract(c)
	if officialURL == "" {
		return e.reject(ctx, drops.EventRejectNoURL, c.SourceID)
	}

	host, _ := link.CanonicalHost(officialURL)
	p := e.cfg.Policy
	switch {
	case p.RequireHTTPS && !link.IsSecure(officialURL):
		return e.reject(ctx, drops.EventRejectNotHTTPS, officialURL)
	case p.BlockShorteners && link.IsShortener(host):
		return e.reject(ctx, drops.EventRejectShortener, host)
	case p.RejectSocialOnly && link.IsSocialOnly(host):
		return e.reject(ctx, drops.EventRejectSocialOnly, host)
	case !link.IsAllowed(p.Allowlist, host):
		return e.reject(ctx, drops.EventRejectAllowlist, host)
	}

	v := e.verifier.Verify(ctx, officialURL)
	name := compose.ProjectName(c.Text)
	key := drops.DupeKey(name, v.Domain)

	dupe, err := e.deps.Store.HasDupe(ctx, key)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("check dupe: %w", err)
	}
	if dupe {
		return e.reject(ctx, drops.EventRejectDupe, key)
	}

	sc := score.Score(c.Text, officialURL, v.Verified)
	cand := candidate{
		raw:          c,
		name:         name,
		key:          key,
		officialURL:  officialURL,
		verification: v,
		score:        sc,
	}
	return e.route(ctx, cand)
}

type candidate struct {
	raw          drops.RawCandidate
	name         string
	key          string
	officialURL  string
	verification drops.Verification
	score        int
}

func (e *Evaluator) route(ctx context.Context, c candidate) (outcome, error) {
	th := e.cfg.Thresholds
	detail := scoreDetail(c.name, c.score)

	if e.cfg.Policy.OnlyVerified && !c.verification.Verified {
		if c.score >= th.QueueMin {
			return e.enqueue(ctx, c, drops.ReasonQueueNotVerified, drops.EventQueuedUnverified)
		}
		return e.reject(ctx, drops.EventRejectUnverified, detail)
	}

	minNeeded := th.MinUnverified
	if c.verification.Verified {
		minNeeded = th.MinVerified
	}
	if c.score < minNeeded {
		if c.score >= th.QueueMin {
			return e.enqueue(ctx, c, fmt.Sprintf("below_threshold(%d)", minNeeded), drops.EventQueuedBelow)
		}
		return e.reject(ctx, drops.EventRejectLowScore, detail)
	}

	if !e.cfg.Policy.AutoPost {
		return e.enqueue(ctx, c, drops.ReasonQueueAutoOff, drops.EventQueuedAutoOff)
	}
	return e.publish(ctx, c)
}

func (e *Evaluator) reject(ctx context.Context, event, detail string) (outcome, error) {
	e.logger.Debug("candidate rejected", zap.String("event", event), zap.String("detail", detail))
	return outcomeRejected, e.deps.record(ctx, event, detail)
}

func (e *Evaluator) enqueue(ctx context.Context, c candidate, reason, event string) (outcome, error) {
	ok, err := e.deps.Store.Enqueue(ctx, drops.QueueEntry{
		DupeKey:        c.key,
		Name:           c.name,
		OfficialURL:    c.officialURL,
		OfficialDomain: c.verification.Domain,
		Verified:       c.verification.Verified,
		Score:          c.score,
		Reason:         reason,
		SourceID:       c.raw.SourceID,
		SourceText:     c.raw.Text,
		CreatedAt:      e.deps.Clock.Now(),
	})
	if err != nil {
		return outcomeSkipped, fmt.Errorf("enqueue: %w", err)
	}
	if !ok {
		return e.reject(ctx, drops.EventRejectDupe, c.key)
	}
	return outcomeQueued, e.deps.record(ctx, event, scoreDetail(c.name, c.score))
}

func (e *Evaluator) publish(ctx context.Context, c candidate) (outcome, error) {
	id, err := e.deps.Store.ReservePublished(ctx, drops.PublishedRecord{
		DupeKey:        c.key,
		Name:           c.name,
		OfficialURL:    c.officialURL,
		OfficialDomain: c.verification.Domain,
		Verified:       c.verification.Verified,
		Score:          c.score,
		CreatedAt:      e.deps.Clock.Now(),
	})
	if errors.Is(err, drops.ErrDuplicate) {
		return e.reject(ctx, drops.EventRejectDupe, c.key)
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("reserve published: %w", err)
	}

	cta, err := e.cadence.NextCTA(ctx)
	if err != nil {
		return outcomeSkipped, err
	}
	thread := e.deps.Composer.Drop(compose.Drop{
		Name:        c.name,
		OfficialURL: c.officialURL,
		Score:       c.score,
		Verified:    c.verification.Verified,
		Handle:      c.verification.Handle,
	}, cta)

	if e.cfg.DryRun {
		e.deps.preview(ctx, e.logger, drops.KindDrop, thread)
		if err := e.deps.bumpCounter(ctx); err != nil {
			return outcomeSkipped, err
		}
		return outcomePublished, e.deps.record(ctx, drops.EventDryRunPost, scoreDetail(c.name, c.score))
	}

	rootID, err := e.deps.publish(ctx, drops.KindDrop, thread)
	if err != nil {
		e.logger.Error("publish failed",
			zap.String("dupe_key", c.key),
			zap.Int64("record_id", id),
			zap.Error(err),
		)
		return outcomePublishFailed, e.deps.record(ctx, drops.EventPublishFailed, c.key)
	}
	if err := e.deps.Store.MarkPublished(ctx, id, rootID, e.deps.Clock.Now()); err != nil {
		e.logger.Error("posted but not stamped; stamp the record by hand instead of reconciling",
			zap.Int64("record_id", id),
			zap.String("root_id", rootID),
			zap.String("dupe_key", c.key),
			zap.Error(err),
		)
		return outcomeSkipped, fmt.Errorf("mark published %d as %s: %w", id, rootID, err)
	}
	if err := e.deps.bumpCounter(ctx); err != nil {
		return outcomeSkipped, err
	}
	e.logger.Info("posted drop", zap.String("name", c.name), zap.String("root_id", rootID))
	return outcomePublished, e.deps.record(ctx, drops.EventPosted, postedDetail(c.name, rootID, c.score))
}
