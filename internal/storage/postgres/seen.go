package postgres

import (
	"context"
	"fmt"
)

// MarkSeen records sourceID and reports whether this call created the marker.
func (s *Store) MarkSeen(ctx context.Context, sourceID string) (bool, error) {
	if sourceID == "" {
		return false, fmt.Errorf("source id is required")
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO seen (source_id) VALUES ($1) ON CONFLICT (source_id) DO NOTHING`,
		sourceID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert seen: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
