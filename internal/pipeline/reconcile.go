package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
)

// ReconcileSummary counts the outcome of a reconcile pass.
type ReconcileSummary struct {
	Pending   int `json:"pending"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// ReconcileConfig controls a reconcile pass.
type ReconcileConfig struct {
	DryRun bool
	// Grace is the minimum age of a reservation before it counts as
	// stranded. Younger records may still be publishing in a concurrent run.
	Grace time.Duration
}

// Reconciler re-publishes records that were reserved but never stamped
// because the outbound publish failed or the process died mid-run.
type Reconciler struct {
	cfg     ReconcileConfig
	deps    Dependencies
	cadence *Cadence
	logger  *zap.Logger
}

// NewReconciler builds a Reconciler. In dry-run mode Reconcile only reports
// the pending records.
func NewReconciler(cfg ReconcileConfig, cadence *Cadence, deps Dependencies) (*Reconciler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cadence == nil {
		return nil, fmt.Errorf("pipeline: cadence is required")
	}
	if cfg.Grace < 0 {
		return nil, fmt.Errorf("pipeline: reconcile grace must not be negative")
	}
	return &Reconciler{cfg: cfg, deps: deps, cadence: cadence, logger: deps.logger("reconcile")}, nil
}

// Pending lists unstamped records older than the grace period, oldest first.
func (r *Reconciler) Pending(ctx context.Context, limit int) ([]drops.PublishedRecord, error) {
	before := r.deps.Clock.Now().Add(-r.cfg.Grace)
	recs, err := r.deps.Store.ListUnpublished(ctx, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished: %w", err)
	}
	return recs, nil
}

// Reconcile re-attempts the publish of up to limit unstamped records.
func (r *Reconciler) Reconcile(ctx context.Context, limit int) (ReconcileSummary, error) {
	var sum ReconcileSummary
	recs, err := r.Pending(ctx, limit)
	if err != nil {
		return sum, err
	}
	sum.Pending = len(recs)
	if r.cfg.DryRun {
		for _, rec := range recs {
			r.logger.Info("pending publish",
				zap.Int64("id", rec.ID),
				zap.String("dupe_key", rec.DupeKey),
				zap.Time("created_at", rec.CreatedAt),
			)
		}
		return sum, nil
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		cta, err := r.cadence.NextCTA(ctx)
		if err != nil {
			return sum, err
		}
		thread := r.deps.Composer.Drop(compose.Drop{
			Name:        rec.Name,
			OfficialURL: rec.OfficialURL,
			Score:       rec.Score,
			Verified:    rec.Verified,
		}, cta)
		rootID, err := r.deps.publish(ctx, drops.KindDrop, thread)
		if err != nil {
			r.logger.Error("reconcile publish failed", zap.String("dupe_key", rec.DupeKey), zap.Error(err))
			sum.Failed++
			if err := r.deps.record(ctx, drops.EventReconcileFailed, rec.DupeKey); err != nil {
				return sum, err
			}
			continue
		}
		if err := r.deps.Store.MarkPublished(ctx, rec.ID, rootID, r.deps.Clock.Now()); err != nil {
			return sum, fmt.Errorf("mark published %d: %w", rec.ID, err)
		}
		if err := r.deps.bumpCounter(ctx); err != nil {
			return sum, err
		}
		sum.Published++
		if err := r.deps.record(ctx, drops.EventReconcilePosted, postedDetail(rec.Name, rootID, rec.Score)); err != nil {
			return sum, err
		}
	}
	return sum, nil
}
