package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
)

// SponsoredConfig describes a paid placement posted instead of evaluating
// candidates.
type SponsoredConfig struct {
	Enabled bool
	compose.Sponsored
}

// Active reports whether sponsored mode is on and fully configured.
func (s SponsoredConfig) Active() bool {
	return s.Enabled && s.Project != "" && s.OfficialURL != ""
}

// RunResult reports what a run did.
type RunResult struct {
	Digest     bool    `json:"digest"`
	Sponsored  bool    `json:"sponsored"`
	Candidates int     `json:"candidates"`
	Summary    Summary `json:"summary"`
}

// Runner sequences one invocation: the weekly digest first, then either the
// sponsored placement or candidate evaluation.
type Runner struct {
	source    drops.Source
	sponsored SponsoredConfig
	dryRun    bool
	cadence   *Cadence
	evaluator *Evaluator
	deps      Dependencies
	logger    *zap.Logger
}

// NewRunner builds a Runner.
func NewRunner(
	source drops.Source,
	sponsored SponsoredConfig,
	dryRun bool,
	cadence *Cadence,
	evaluator *Evaluator,
	deps Dependencies,
) (*Runner, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if source == nil || cadence == nil || evaluator == nil {
		return nil, fmt.Errorf("pipeline: source, cadence and evaluator are required")
	}
	return &Runner{
		source:    source,
		sponsored: sponsored,
		dryRun:    dryRun,
		cadence:   cadence,
		evaluator: evaluator,
		deps:      deps,
		logger:    deps.logger("runner"),
	}, nil
}

// Run executes one invocation against query.
func (r *Runner) Run(ctx context.Context, query drops.Query) (RunResult, error) {
	var res RunResult
	digest, err := r.cadence.MaybeDigest(ctx)
	if err != nil {
		return res, fmt.Errorf("weekly digest: %w", err)
	}
	res.Digest = digest

	if r.sponsored.Active() {
		res.Sponsored = true
		if err := r.postSponsored(ctx); err != nil {
			return res, fmt.Errorf("sponsored: %w", err)
		}
		return res, nil
	}

	candidates, err := r.source.Search(ctx, query)
	if err != nil {
		return res, fmt.Errorf("search candidates: %w", err)
	}
	res.Candidates = len(candidates)
	r.logger.Info("found candidates", zap.Int("count", len(candidates)))

	sum, err := r.evaluator.Evaluate(ctx, candidates)
	res.Summary = sum
	if err != nil {
		return res, err
	}
	r.logger.Info("run done",
		zap.Int("published", sum.Published),
		zap.Int("queued", sum.Queued),
		zap.Int("rejected", sum.Rejected),
		zap.Int("skipped", sum.Skipped),
		zap.Int("publish_failed", sum.PublishFailed),
	)
	return res, nil
}

func (r *Runner) postSponsored(ctx context.Context) error {
	cta, err := r.cadence.NextCTA(ctx)
	if err != nil {
		return err
	}
	thread := r.deps.Composer.Sponsored(r.sponsored.Sponsored, cta)
	if r.dryRun {
		r.deps.preview(ctx, r.logger, drops.KindSponsored, thread)
		if err := r.deps.bumpCounter(ctx); err != nil {
			return err
		}
		return r.deps.record(ctx, drops.EventSponsoredDryRun, r.sponsored.Project)
	}
	rootID, err := r.deps.publish(ctx, drops.KindSponsored, thread)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := r.deps.bumpCounter(ctx); err != nil {
		return err
	}
	r.logger.Info("posted sponsored thread", zap.String("root_id", rootID))
	return r.deps.record(ctx, drops.EventSponsoredPosted, rootID)
}
