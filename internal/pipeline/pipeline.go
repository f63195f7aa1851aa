// Package pipeline runs the dropscout decision flow: candidate evaluation,
// the review queue, the post cadence and reconciliation of interrupted
// publishes. Every component reads and writes through drops.Store, so a run
// can be repeated against overlapping input without surfacing a project twice.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/metrics"
	"github.com/JakeFAU/dropscout/internal/report"
)

// Dependencies wires the collaborators shared by the pipeline components.
// Previewer and Logger are optional.
type Dependencies struct {
	Store     drops.Store
	Composer  *compose.Composer
	Publisher drops.Publisher
	Previewer drops.Previewer
	Reporter  *report.Reporter
	Clock     drops.Clock
	Logger    *zap.Logger
}

func (d Dependencies) validate() error {
	switch {
	case d.Store == nil:
		return fmt.Errorf("pipeline: store is required")
	case d.Composer == nil:
		return fmt.Errorf("pipeline: composer is required")
	case d.Publisher == nil:
		return fmt.Errorf("pipeline: publisher is required")
	case d.Reporter == nil:
		return fmt.Errorf("pipeline: reporter is required")
	case d.Clock == nil:
		return fmt.Errorf("pipeline: clock is required")
	}
	return nil
}

func (d Dependencies) logger(name string) *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger.Named(name)
}

// preview hands a dry-run thread to the previewer. Preview failures are
// logged and never fail the run.
func (d Dependencies) preview(ctx context.Context, logger *zap.Logger, kind string, thread drops.Thread) {
	if d.Previewer == nil {
		return
	}
	if err := d.Previewer.Preview(ctx, kind, thread); err != nil {
		logger.Warn("preview failed", zap.String("kind", kind), zap.Error(err))
	}
}

// publish sends thread and counts the attempt.
func (d Dependencies) publish(ctx context.Context, kind string, thread drops.Thread) (string, error) {
	rootID, err := d.Publisher.PublishThread(ctx, thread)
	metrics.ObservePublish(kind, err)
	if err != nil {
		return "", err
	}
	return rootID, nil
}

func (d Dependencies) bumpCounter(ctx context.Context) error {
	if _, err := d.Store.IncrementCounter(ctx, drops.MetaPostCounter); err != nil {
		return fmt.Errorf("increment post counter: %w", err)
	}
	return nil
}

func (d Dependencies) record(ctx context.Context, event, detail string) error {
	if err := d.Reporter.Record(ctx, event, detail); err != nil {
		return fmt.Errorf("log metric: %w", err)
	}
	return nil
}

func scoreDetail(name string, score int) string {
	return fmt.Sprintf("%s|%d", name, score)
}

func postedDetail(name, rootID string, score int) string {
	return fmt.Sprintf("%s|%s|%d", name, rootID, score)
}
