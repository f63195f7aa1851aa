package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
)

// ReviewConfig controls the approval flow.
type ReviewConfig struct {
	// BatchSize bounds how many entries a single approval pass handles.
	BatchSize    int
	OnlyVerified bool
	DryRun       bool
}

// ApproveSummary counts the outcome of an approval pass.
type ApproveSummary struct {
	Published int `json:"published"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ReviewQueue manages held candidates: operator decisions and publishing of
// approved entries.
type ReviewQueue struct {
	cfg     ReviewConfig
	deps    Dependencies
	cadence *Cadence
	logger  *zap.Logger
}

// NewReviewQueue builds a ReviewQueue.
func NewReviewQueue(cfg ReviewConfig, cadence *Cadence, deps Dependencies) (*ReviewQueue, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cadence == nil {
		return nil, fmt.Errorf("pipeline: cadence is required")
	}
	return &ReviewQueue{cfg: cfg, deps: deps, cadence: cadence, logger: deps.logger("review")}, nil
}

// List returns queued entries, highest score first.
func (q *ReviewQueue) List(ctx context.Context, limit int) ([]drops.QueueEntry, error) {
	entries, err := q.deps.Store.ListQueue(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return entries, nil
}

// Promote approves up to limit pending entries, highest score first.
func (q *ReviewQueue) Promote(ctx context.Context, limit int) (int, error) {
	n, err := q.deps.Store.ApproveTop(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("promote: %w", err)
	}
	return n, nil
}

// Drain returns up to limit approved entries without removing them.
func (q *ReviewQueue) Drain(ctx context.Context, limit int) ([]drops.QueueEntry, error) {
	entries, err := q.deps.Store.ListApproved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("drain: %w", err)
	}
	return entries, nil
}

// Approve marks a single entry approved.
func (q *ReviewQueue) Approve(ctx context.Context, id int64) (drops.QueueEntry, error) {
	entry, err := q.deps.Store.GetQueueEntry(ctx, id)
	if err != nil {
		return drops.QueueEntry{}, fmt.Errorf("get queue entry %d: %w", id, err)
	}
	if err := q.deps.Store.ApproveEntry(ctx, id); err != nil {
		return drops.QueueEntry{}, fmt.Errorf("approve entry %d: %w", id, err)
	}
	entry.Approved = true
	return entry, q.deps.record(ctx, drops.EventReviewApproved, entry.DupeKey)
}

// Dismiss removes an entry without publishing it.
func (q *ReviewQueue) Dismiss(ctx context.Context, id int64) error {
	entry, err := q.deps.Store.GetQueueEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("get queue entry %d: %w", id, err)
	}
	if err := q.deps.Store.RemoveFromQueue(ctx, id); err != nil {
		return fmt.Errorf("remove entry %d: %w", id, err)
	}
	return q.deps.record(ctx, drops.EventReviewDismissed, entry.DupeKey)
}

// ApproveAndPublish promotes the top of the queue and publishes every
// approved entry in the batch. Entries whose publish fails stay approved for
// the next pass.
func (q *ReviewQueue) ApproveAndPublish(ctx context.Context) (ApproveSummary, error) {
	var sum ApproveSummary
	if _, err := q.Promote(ctx, q.cfg.BatchSize); err != nil {
		return sum, err
	}
	entries, err := q.Drain(ctx, q.cfg.BatchSize)
	if err != nil {
		return sum, err
	}
	if len(entries) == 0 {
		q.logger.Info("no approved items to post")
		return sum, nil
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := q.publishEntry(ctx, entry, &sum); err != nil {
			return sum, fmt.Errorf("approve %s: %w", entry.DupeKey, err)
		}
	}
	return sum, nil
}

func (q *ReviewQueue) publishEntry(ctx context.Context, entry drops.QueueEntry, sum *ApproveSummary) error {
	if q.cfg.OnlyVerified && !entry.Verified {
		if err := q.deps.Store.RemoveFromQueue(ctx, entry.ID); err != nil && !errors.Is(err, drops.ErrNotFound) {
			return fmt.Errorf("remove entry: %w", err)
		}
		sum.Skipped++
		return q.deps.record(ctx, drops.EventApproveSkip, entry.Name)
	}

	cta, err := q.cadence.NextCTA(ctx)
	if err != nil {
		return err
	}
	thread := q.deps.Composer.Drop(compose.Drop{
		Name:        entry.Name,
		OfficialURL: entry.OfficialURL,
		Score:       entry.Score,
		Verified:    entry.Verified,
	}, cta)

	if q.cfg.DryRun {
		q.deps.preview(ctx, q.logger, drops.KindApproved, thread)
		if _, err := q.deps.Store.PromoteToPublished(ctx, entry, "", q.deps.Clock.Now()); err != nil {
			return fmt.Errorf("promote entry: %w", err)
		}
		if err := q.deps.bumpCounter(ctx); err != nil {
			return err
		}
		sum.Published++
		return q.deps.record(ctx, drops.EventApproveDryRun, scoreDetail(entry.Name, entry.Score))
	}

	rootID, err := q.deps.publish(ctx, drops.KindApproved, thread)
	if err != nil {
		q.logger.Error("approved publish failed", zap.String("dupe_key", entry.DupeKey), zap.Error(err))
		sum.Failed++
		return q.deps.record(ctx, drops.EventApproveFailed, entry.DupeKey)
	}
	if _, err := q.deps.Store.PromoteToPublished(ctx, entry, rootID, q.deps.Clock.Now()); err != nil {
		return fmt.Errorf("promote entry: %w", err)
	}
	if err := q.deps.bumpCounter(ctx); err != nil {
		return err
	}
	sum.Published++
	q.logger.Info("posted approved drop", zap.String("name", entry.Name), zap.String("root_id", rootID))
	return q.deps.record(ctx, drops.EventApprovePosted, postedDetail(entry.Name, rootID, entry.Score))
}
