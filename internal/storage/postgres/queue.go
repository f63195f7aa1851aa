package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/dropscout/internal/drops"
)

var queueColumns = []string{
	"id",
	"dupe_key",
	"name",
	"official_url",
	"official_domain",
	"verified",
	"score",
	"reason",
	"source_id",
	"source_text",
	"created_at",
	"approved",
}

var queueOrder = []string{"score DESC", "created_at ASC", "id ASC"}

const insertQueueSQL = `
INSERT INTO review_queue (
	dupe_key,
	name,
	official_url,
	official_domain,
	verified,
	score,
	reason,
	source_id,
	source_text,
	created_at,
	approved
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,FALSE
)
ON CONFLICT (dupe_key) DO NOTHING`

const approveTopSQL = `
UPDATE review_queue SET approved = TRUE
WHERE id IN (
	SELECT id FROM review_queue
	WHERE approved = FALSE
	ORDER BY score DESC, created_at ASC, id ASC
	LIMIT $1
)`

// Enqueue holds a candidate for review. It returns false when the dupe key is
// already queued or published.
func (s *Store) Enqueue(ctx context.Context, entry drops.QueueEntry) (bool, error) {
	inserted := false
	err := s.withDupeLock(ctx, entry.DupeKey, func(tx pgx.Tx) error {
		dupe, err := dupeExists(ctx, tx, entry.DupeKey)
		if err != nil || dupe {
			return err
		}
		tag, err := tx.Exec(ctx, insertQueueSQL,
			entry.DupeKey,
			entry.Name,
			entry.OfficialURL,
			nullable(entry.OfficialDomain),
			entry.Verified,
			entry.Score,
			nullable(entry.Reason),
			nullable(entry.SourceID),
			drops.Truncate(entry.SourceText, drops.MaxSourceTextRunes),
			entry.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("insert queue entry: %w", err)
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ApproveTop approves up to limit pending entries in priority order.
func (s *Store) ApproveTop(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, approveTopSQL, limit)
	if err != nil {
		return 0, fmt.Errorf("approve top: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListApproved returns up to limit approved entries in priority order.
func (s *Store) ListApproved(ctx context.Context, limit int) ([]drops.QueueEntry, error) {
	b := psql.Select(queueColumns...).
		From("review_queue").
		Where(sq.Eq{"approved": true}).
		OrderBy(queueOrder...)
	return s.selectQueue(ctx, limitBuilder(b, limit))
}

// ListQueue returns every entry in priority order.
func (s *Store) ListQueue(ctx context.Context, limit int) ([]drops.QueueEntry, error) {
	b := psql.Select(queueColumns...).
		From("review_queue").
		OrderBy(queueOrder...)
	return s.selectQueue(ctx, limitBuilder(b, limit))
}

// GetQueueEntry fetches one entry by id.
func (s *Store) GetQueueEntry(ctx context.Context, id int64) (drops.QueueEntry, error) {
	entries, err := s.selectQueue(ctx, psql.Select(queueColumns...).
		From("review_queue").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return drops.QueueEntry{}, err
	}
	if len(entries) == 0 {
		return drops.QueueEntry{}, drops.ErrNotFound
	}
	return entries[0], nil
}

// ApproveEntry approves a single entry.
func (s *Store) ApproveEntry(ctx context.Context, id int64) error {
	q, args, err := psql.Update("review_queue").
		Set("approved", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build approve: %w", err)
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("approve entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drops.ErrNotFound
	}
	return nil
}

// RemoveFromQueue deletes an entry.
func (s *Store) RemoveFromQueue(ctx context.Context, id int64) error {
	q, args, err := psql.Delete("review_queue").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drops.ErrNotFound
	}
	return nil
}

// PromoteToPublished deletes the queue entry and inserts the matching
// published record in one transaction.
func (s *Store) PromoteToPublished(
	ctx context.Context,
	entry drops.QueueEntry,
	rootMessageID string,
	at time.Time,
) (int64, error) {
	rec := drops.PublishedRecord{
		DupeKey:        entry.DupeKey,
		Name:           entry.Name,
		OfficialURL:    entry.OfficialURL,
		OfficialDomain: entry.OfficialDomain,
		Verified:       entry.Verified,
		Score:          entry.Score,
		CreatedAt:      at,
	}
	if rootMessageID != "" {
		rec.RootMessageID = rootMessageID
		rec.PublishedAt = &at
	}
	var id int64
	err := s.withDupeLock(ctx, entry.DupeKey, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM review_queue WHERE id = $1`, entry.ID)
		if err != nil {
			return fmt.Errorf("delete queue entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return drops.ErrNotFound
		}
		id, err = insertDrop(ctx, tx, rec)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) selectQueue(ctx context.Context, b sq.SelectBuilder) ([]drops.QueueEntry, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build queue select: %w", err)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []drops.QueueEntry
	for rows.Next() {
		var e drops.QueueEntry
		var domain, reason, srcID, srcText *string
		if err := rows.Scan(
			&e.ID,
			&e.DupeKey,
			&e.Name,
			&e.OfficialURL,
			&domain,
			&e.Verified,
			&e.Score,
			&reason,
			&srcID,
			&srcText,
			&e.CreatedAt,
			&e.Approved,
		); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		e.OfficialDomain = deref(domain)
		e.Reason = deref(reason)
		e.SourceID = deref(srcID)
		e.SourceText = deref(srcText)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue: %w", err)
	}
	return out, nil
}
