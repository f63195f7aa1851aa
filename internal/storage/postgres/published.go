package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/dropscout/internal/drops"
)

var dropColumns = []string{
	"id",
	"dupe_key",
	"name",
	"official_url",
	"official_domain",
	"verified",
	"score",
	"root_message_id",
	"published_at",
	"created_at",
}

const insertDropSQL = `
INSERT INTO drops (
	dupe_key,
	name,
	official_url,
	official_domain,
	verified,
	score,
	root_message_id,
	published_at,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)
ON CONFLICT (dupe_key) DO NOTHING
RETURNING id`

type querier interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}

// HasDupe reports whether dupeKey is held by a published or queued row.
func (s *Store) HasDupe(ctx context.Context, dupeKey string) (bool, error) {
	return dupeExists(ctx, s.pool, dupeKey)
}

func dupeExists(ctx context.Context, q querier, dupeKey string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM drops WHERE dupe_key = $1)
    OR EXISTS (SELECT 1 FROM review_queue WHERE dupe_key = $1)`, dupeKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check dupe: %w", err)
	}
	return exists, nil
}

// ReservePublished claims the record's dupe key before the outbound publish.
func (s *Store) ReservePublished(ctx context.Context, rec drops.PublishedRecord) (int64, error) {
	var id int64
	err := s.withDupeLock(ctx, rec.DupeKey, func(tx pgx.Tx) error {
		dupe, err := dupeExists(ctx, tx, rec.DupeKey)
		if err != nil {
			return err
		}
		if dupe {
			return drops.ErrDuplicate
		}
		id, err = insertDrop(ctx, tx, rec)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertDrop(ctx context.Context, q querier, rec drops.PublishedRecord) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, insertDropSQL,
		rec.DupeKey,
		rec.Name,
		rec.OfficialURL,
		nullable(rec.OfficialDomain),
		rec.Verified,
		rec.Score,
		nullable(rec.RootMessageID),
		rec.PublishedAt,
		rec.CreatedAt,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		return 0, drops.ErrDuplicate
	case err != nil:
		return 0, fmt.Errorf("insert drop: %w", err)
	}
	return id, nil
}

// MarkPublished stamps a reserved record with its root message id.
func (s *Store) MarkPublished(ctx context.Context, id int64, rootMessageID string, at time.Time) error {
	if rootMessageID == "" {
		return fmt.Errorf("root message id is required")
	}
	q, args, err := psql.Update("drops").
		Set("root_message_id", rootMessageID).
		Set("published_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build drop update: %w", err)
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drops.ErrNotFound
	}
	return nil
}

// ListUnpublished returns reserved records that were never stamped and were
// created no later than before, oldest first.
func (s *Store) ListUnpublished(ctx context.Context, before time.Time, limit int) ([]drops.PublishedRecord, error) {
	b := psql.Select(dropColumns...).
		From("drops").
		Where(sq.Eq{"root_message_id": nil}).
		Where(sq.LtOrEq{"created_at": before}).
		OrderBy("created_at ASC", "id ASC")
	return s.selectDrops(ctx, limitBuilder(b, limit))
}

// RecentPublished returns stamped records, most recently published first.
func (s *Store) RecentPublished(ctx context.Context, limit int) ([]drops.PublishedRecord, error) {
	b := psql.Select(dropColumns...).
		From("drops").
		Where(sq.NotEq{"published_at": nil}).
		OrderBy("published_at DESC", "id DESC")
	return s.selectDrops(ctx, limitBuilder(b, limit))
}

func (s *Store) selectDrops(ctx context.Context, b sq.SelectBuilder) ([]drops.PublishedRecord, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build drop select: %w", err)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list drops: %w", err)
	}
	defer rows.Close()

	var out []drops.PublishedRecord
	for rows.Next() {
		var (
			rec    drops.PublishedRecord
			domain *string
			rootID *string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.DupeKey,
			&rec.Name,
			&rec.OfficialURL,
			&domain,
			&rec.Verified,
			&rec.Score,
			&rootID,
			&rec.PublishedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan drop row: %w", err)
		}
		rec.OfficialDomain = deref(domain)
		rec.RootMessageID = deref(rootID)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drops: %w", err)
	}
	return out, nil
}

func limitBuilder(b sq.SelectBuilder, limit int) sq.SelectBuilder {
	if limit > 0 {
		return b.Limit(uint64(limit))
	}
	return b
}
