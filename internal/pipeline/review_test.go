package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dropscout/internal/drops"
)

func (h *harness) review(t *testing.T, cfg ReviewConfig) *ReviewQueue {
	t.Helper()
	q, err := NewReviewQueue(cfg, h.cadence(t, CadenceConfig{}), h.deps)
	require.NoError(t, err)
	return q
}

func (h *harness) enqueue(t *testing.T, name string, score int, verified bool, at time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	domain := name + ".io"
	ok, err := h.store.Enqueue(ctx, drops.QueueEntry{
		DupeKey:        drops.DupeKey(name, domain),
		Name:           name,
		OfficialURL:    "https://" + domain,
		OfficialDomain: domain,
		Verified:       verified,
		Score:          score,
		Reason:         "below_threshold(85)",
		CreatedAt:      at,
	})
	require.NoError(t, err)
	require.True(t, ok)
	entries, err := h.store.ListQueue(ctx, 0)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name == name {
			return e.ID
		}
	}
	t.Fatalf("entry %s not queued", name)
	return 0
}

func TestApproveAndPublishFollowsQueueOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "EARLY", 70, true, monday)
	h.enqueue(t, "LATE", 70, true, monday.Add(time.Minute))
	h.enqueue(t, "TOP", 90, true, monday.Add(2*time.Minute))

	sum, err := h.review(t, ReviewConfig{BatchSize: 2}).ApproveAndPublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, ApproveSummary{Published: 2}, sum)

	threads := h.publisher.Threads()
	require.Len(t, threads, 2)
	assert.Contains(t, threads[0].Segments[0], "TOP")
	assert.Contains(t, threads[1].Segments[0], "EARLY")
	assert.NotContains(t, threads[0].Segments[0], "via @")

	remaining, err := h.store.ListQueue(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "LATE", remaining[0].Name)
	assert.False(t, remaining[0].Approved)

	published := h.store.Published()
	require.Len(t, published, 2)
	for _, rec := range published {
		assert.True(t, rec.Stamped())
	}
	assert.Equal(t, int64(2), h.counter(t))
	assert.Equal(t, []string{drops.EventApprovePosted, drops.EventApprovePosted}, h.events())
	assert.Equal(t, "TOP|memory-1|90", h.store.Metrics()[0].Detail)
}

func TestApproveAndPublishSkipsUnverified(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "SHADY", 80, false, monday)

	sum, err := h.review(t, ReviewConfig{BatchSize: 5, OnlyVerified: true}).ApproveAndPublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, ApproveSummary{Skipped: 1}, sum)
	assert.Zero(t, h.publisher.Attempts())
	assert.Equal(t, []string{drops.EventApproveSkip}, h.events())

	remaining, err := h.store.ListQueue(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestApproveAndPublishDryRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "TOP", 90, true, monday)

	sum, err := h.review(t, ReviewConfig{BatchSize: 5, DryRun: true}).ApproveAndPublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, ApproveSummary{Published: 1}, sum)
	assert.Zero(t, h.publisher.Attempts())
	assert.Equal(t, []string{drops.KindApproved}, h.previews.kinds)
	assert.Equal(t, int64(1), h.counter(t))

	remaining, err := h.store.ListQueue(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	published := h.store.Published()
	require.Len(t, published, 1)
	assert.False(t, published[0].Stamped())
}

func TestApproveAndPublishFailureKeepsEntry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "TOP", 90, true, monday)
	h.publisher.FailOn(1, errors.New("forbidden"))
	q := h.review(t, ReviewConfig{BatchSize: 5})

	sum, err := q.ApproveAndPublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, ApproveSummary{Failed: 1}, sum)

	approved, err := q.Drain(ctx, 5)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.True(t, approved[0].Approved)
	assert.Zero(t, h.counter(t))

	sum, err = q.ApproveAndPublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, ApproveSummary{Published: 1}, sum)
	assert.Equal(t, []string{drops.EventApproveFailed, drops.EventApprovePosted}, h.events())
}

func TestApproveAndPublishEmptyQueue(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sum, err := h.review(t, ReviewConfig{BatchSize: 5}).ApproveAndPublish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ApproveSummary{}, sum)
}

func TestPromoteAndDrain(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "LOW", 60, true, monday)
	h.enqueue(t, "HIGH", 95, true, monday.Add(time.Minute))
	q := h.review(t, ReviewConfig{})

	n, err := q.Promote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	drained, err := q.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, "HIGH", drained[0].Name)

	again, err := q.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, drained, again)
}

func TestApproveAndDismiss(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	keep := h.enqueue(t, "KEEP", 80, true, monday)
	drop := h.enqueue(t, "DROP", 75, true, monday)
	q := h.review(t, ReviewConfig{})

	entry, err := q.Approve(ctx, keep)
	require.NoError(t, err)
	assert.True(t, entry.Approved)
	require.NoError(t, q.Dismiss(ctx, drop))

	entries, err := q.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "KEEP", entries[0].Name)
	assert.True(t, entries[0].Approved)
	assert.Equal(t, []string{drops.EventReviewApproved, drops.EventReviewDismissed}, h.events())

	_, err = q.Approve(ctx, 999)
	require.ErrorIs(t, err, drops.ErrNotFound)
	require.ErrorIs(t, q.Dismiss(ctx, drop), drops.ErrNotFound)
}
