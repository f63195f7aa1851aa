// Package report fans pipeline decision events out to sinks: the state
// store's metric log, structured logs and Prometheus.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// Sink consumes batches of decision events.
type Sink interface {
	Consume(ctx context.Context, batch []drops.MetricEvent) error
	Close(ctx context.Context) error
}

// Reporter stamps events with the run id and current time before handing
// them to every sink.
type Reporter struct {
	runID string
	clock drops.Clock
	sinks []Sink
}

// New builds a Reporter.
func New(runID string, clock drops.Clock, sinks ...Sink) *Reporter {
	return &Reporter{runID: runID, clock: clock, sinks: sinks}
}

// NewRunID returns a UUIDv7 string, so run ids sort by start time.
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// RunID returns the id stamped on every event.
func (r *Reporter) RunID() string {
	return r.runID
}

// Record emits one event. Sink errors are joined and returned.
func (r *Reporter) Record(ctx context.Context, event, detail string) error {
	evt := drops.MetricEvent{
		TS:     r.clock.Now(),
		RunID:  r.runID,
		Event:  event,
		Detail: detail,
	}
	var errs []error
	for _, s := range r.sinks {
		if err := s.Consume(ctx, []drops.MetricEvent{evt}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("record %s: %w", event, err)
	}
	return nil
}

// Close closes every sink.
func (r *Reporter) Close(ctx context.Context) error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
