package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// LogMetric appends a decision event.
func (s *Store) LogMetric(ctx context.Context, evt drops.MetricEvent) error {
	q, args, err := psql.Insert("metrics").
		Columns("ts", "run_id", "event", "detail").
		Values(evt.TS, nullable(evt.RunID), evt.Event, nullable(evt.Detail)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build metric insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}
