package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// IncrementCounter atomically adds one to the integer stored under key.
func (s *Store) IncrementCounter(ctx context.Context, key string) (int64, error) {
	var v string
	err := s.pool.QueryRow(ctx, `
INSERT INTO meta (k, v) VALUES ($1, '1')
ON CONFLICT (k) DO UPDATE SET v = (meta.v::bigint + 1)::text
RETURNING v`, key).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

// Counter returns the integer stored under key, or zero when unset.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	v, ok, err := s.GetMeta(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

// GetMeta returns the value stored under key.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT v FROM meta WHERE k = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return v, true, nil
}

// SetMeta upserts a scalar value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO meta (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}
