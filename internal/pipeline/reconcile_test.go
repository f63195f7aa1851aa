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

func (h *harness) reserve(t *testing.T, name string, at time.Time) {
	t.Helper()
	domain := name + ".io"
	_, err := h.store.ReservePublished(context.Background(), drops.PublishedRecord{
		DupeKey:        drops.DupeKey(name, domain),
		Name:           name,
		OfficialURL:    "https://" + domain,
		OfficialDomain: domain,
		Verified:       true,
		Score:          90,
		CreatedAt:      at,
	})
	require.NoError(t, err)
}

func TestReconcileRepublishesOldestFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.reserve(t, "NEWER", monday)
	h.reserve(t, "OLDER", monday.Add(-time.Hour))
	h.publisher.FailOn(2, errors.New("boom"))

	r, err := NewReconciler(ReconcileConfig{}, h.cadence(t, CadenceConfig{}), h.deps)
	require.NoError(t, err)

	sum, err := r.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{Pending: 2, Published: 1, Failed: 1}, sum)

	threads := h.publisher.Threads()
	require.Len(t, threads, 1)
	assert.Contains(t, threads[0].Segments[0], "OLDER")

	pending, err := r.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "NEWER", pending[0].Name)
	assert.Equal(t, int64(1), h.counter(t))
	assert.Equal(t, []string{drops.EventReconcilePosted, drops.EventReconcileFailed}, h.events())
}

func TestReconcileDryRunOnlyLists(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.reserve(t, "STUCK", monday)

	r, err := NewReconciler(ReconcileConfig{DryRun: true}, h.cadence(t, CadenceConfig{}), h.deps)
	require.NoError(t, err)

	sum, err := r.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{Pending: 1}, sum)
	assert.Zero(t, h.publisher.Attempts())
	assert.Empty(t, h.events())
}

func TestReconcileSkipsReservationsInsideGrace(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.reserve(t, "INFLIGHT", monday.Add(-time.Minute))
	h.reserve(t, "STRANDED", monday.Add(-time.Hour))

	r, err := NewReconciler(ReconcileConfig{Grace: 15 * time.Minute}, h.cadence(t, CadenceConfig{}), h.deps)
	require.NoError(t, err)

	sum, err := r.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{Pending: 1, Published: 1}, sum)

	threads := h.publisher.Threads()
	require.Len(t, threads, 1)
	assert.Contains(t, threads[0].Segments[0], "STRANDED")

	pending, err := h.store.ListUnpublished(context.Background(), monday, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "INFLIGHT", pending[0].Name)
}

func TestNewReconcilerRejectsNegativeGrace(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := NewReconciler(ReconcileConfig{Grace: -time.Second}, h.cadence(t, CadenceConfig{}), h.deps)
	require.ErrorContains(t, err, "grace")
}
