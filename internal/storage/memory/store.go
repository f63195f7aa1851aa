// Package memory provides in-memory implementations of the dropscout state
// store and blob store for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// Store implements drops.Store with the same uniqueness rules as Postgres.
type Store struct {
	mu sync.RWMutex

	seen map[string]struct{}

	published  map[int64]drops.PublishedRecord
	dropByKey  map[string]int64
	nextDropID int64

	queue       map[int64]drops.QueueEntry
	queueByKey  map[string]int64
	nextQueueID int64

	meta    map[string]string
	metrics []drops.MetricEvent
}

var _ drops.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		seen:       make(map[string]struct{}),
		published:  make(map[int64]drops.PublishedRecord),
		dropByKey:  make(map[string]int64),
		queue:      make(map[int64]drops.QueueEntry),
		queueByKey: make(map[string]int64),
		meta:       make(map[string]string),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// MarkSeen records sourceID and reports whether it was new.
func (s *Store) MarkSeen(_ context.Context, sourceID string) (bool, error) {
	if sourceID == "" {
		return false, fmt.Errorf("source id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[sourceID]; ok {
		return false, nil
	}
	s.seen[sourceID] = struct{}{}
	return true, nil
}

// HasDupe reports whether dupeKey is published or queued.
func (s *Store) HasDupe(_ context.Context, dupeKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasDupeLocked(dupeKey), nil
}

func (s *Store) hasDupeLocked(dupeKey string) bool {
	_, published := s.dropByKey[dupeKey]
	_, queued := s.queueByKey[dupeKey]
	return published || queued
}

// ReservePublished inserts an unstamped record unless the key is taken.
func (s *Store) ReservePublished(_ context.Context, rec drops.PublishedRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasDupeLocked(rec.DupeKey) {
		return 0, drops.ErrDuplicate
	}
	return s.insertDropLocked(rec), nil
}

func (s *Store) insertDropLocked(rec drops.PublishedRecord) int64 {
	s.nextDropID++
	rec.ID = s.nextDropID
	if rec.PublishedAt != nil {
		at := *rec.PublishedAt
		rec.PublishedAt = &at
	}
	s.published[rec.ID] = rec
	s.dropByKey[rec.DupeKey] = rec.ID
	return rec.ID
}

// MarkPublished stamps root id and publish time together.
func (s *Store) MarkPublished(_ context.Context, id int64, rootMessageID string, at time.Time) error {
	if rootMessageID == "" {
		return fmt.Errorf("root message id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.published[id]
	if !ok {
		return drops.ErrNotFound
	}
	rec.RootMessageID = rootMessageID
	rec.PublishedAt = &at
	s.published[id] = rec
	return nil
}

// ListUnpublished returns unstamped records created no later than before,
// oldest first.
func (s *Store) ListUnpublished(_ context.Context, before time.Time, limit int) ([]drops.PublishedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []drops.PublishedRecord
	for _, rec := range s.published {
		if !rec.Stamped() && !rec.CreatedAt.After(before) {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b drops.PublishedRecord) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return capLen(out, limit), nil
}

// RecentPublished returns stamped records, newest first.
func (s *Store) RecentPublished(_ context.Context, limit int) ([]drops.PublishedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []drops.PublishedRecord
	for _, rec := range s.published {
		if rec.Stamped() {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b drops.PublishedRecord) int {
		return cmp.Or(b.PublishedAt.Compare(*a.PublishedAt), cmp.Compare(b.ID, a.ID))
	})
	return capLen(out, limit), nil
}

// Enqueue stores entry unless its dupe key is taken.
func (s *Store) Enqueue(_ context.Context, entry drops.QueueEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasDupeLocked(entry.DupeKey) {
		return false, nil
	}
	s.nextQueueID++
	entry.ID = s.nextQueueID
	entry.Approved = false
	entry.SourceText = drops.Truncate(entry.SourceText, drops.MaxSourceTextRunes)
	s.queue[entry.ID] = entry
	s.queueByKey[entry.DupeKey] = entry.ID
	return true, nil
}

// ApproveTop approves up to limit pending entries in priority order.
func (s *Store) ApproveTop(_ context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.sortedQueueLocked(func(e drops.QueueEntry) bool { return !e.Approved })
	pending = capLen(pending, limit)
	for _, e := range pending {
		e.Approved = true
		s.queue[e.ID] = e
	}
	return len(pending), nil
}

// ListApproved returns approved entries in priority order.
func (s *Store) ListApproved(_ context.Context, limit int) ([]drops.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return capLen(s.sortedQueueLocked(func(e drops.QueueEntry) bool { return e.Approved }), limit), nil
}

// ListQueue returns every entry in priority order.
func (s *Store) ListQueue(_ context.Context, limit int) ([]drops.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return capLen(s.sortedQueueLocked(nil), limit), nil
}

// GetQueueEntry fetches one entry by id.
func (s *Store) GetQueueEntry(_ context.Context, id int64) (drops.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.queue[id]
	if !ok {
		return drops.QueueEntry{}, drops.ErrNotFound
	}
	return e, nil
}

// ApproveEntry approves a single entry.
func (s *Store) ApproveEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[id]
	if !ok {
		return drops.ErrNotFound
	}
	e.Approved = true
	s.queue[id] = e
	return nil
}

// RemoveFromQueue deletes an entry.
func (s *Store) RemoveFromQueue(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Store) removeLocked(id int64) error {
	e, ok := s.queue[id]
	if !ok {
		return drops.ErrNotFound
	}
	delete(s.queue, id)
	delete(s.queueByKey, e.DupeKey)
	return nil
}

// PromoteToPublished moves an entry into the published set atomically.
func (s *Store) PromoteToPublished(
	_ context.Context,
	entry drops.QueueEntry,
	rootMessageID string,
	at time.Time,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[entry.ID]; !ok {
		return 0, drops.ErrNotFound
	}
	if _, taken := s.dropByKey[entry.DupeKey]; taken {
		return 0, drops.ErrDuplicate
	}
	if err := s.removeLocked(entry.ID); err != nil {
		return 0, err
	}
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
	return s.insertDropLocked(rec), nil
}

// IncrementCounter adds one to the integer stored under key.
func (s *Store) IncrementCounter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := parseCounter(key, s.meta[key])
	if err != nil {
		return 0, err
	}
	n++
	s.meta[key] = strconv.FormatInt(n, 10)
	return n, nil
}

// Counter returns the integer stored under key, or zero when unset.
func (s *Store) Counter(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return parseCounter(key, s.meta[key])
}

// GetMeta returns the value stored under key.
func (s *Store) GetMeta(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[key]
	return v, ok, nil
}

// SetMeta stores a scalar value.
func (s *Store) SetMeta(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}

// LogMetric appends a decision event.
func (s *Store) LogMetric(_ context.Context, evt drops.MetricEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, evt)
	return nil
}

// Metrics returns a copy of the logged events.
func (s *Store) Metrics() []drops.MetricEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.metrics)
}

// Published returns every published record ordered by id.
func (s *Store) Published() []drops.PublishedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]drops.PublishedRecord, 0, len(s.published))
	for _, rec := range s.published {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b drops.PublishedRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) sortedQueueLocked(keep func(drops.QueueEntry) bool) []drops.QueueEntry {
	out := make([]drops.QueueEntry, 0, len(s.queue))
	for _, e := range s.queue {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b drops.QueueEntry) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

func parseCounter(key, v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func capLen[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
