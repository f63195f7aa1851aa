package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/dropscout/internal/clock/system"
	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/storage/memory"
)

type failingLog struct{}

func (failingLog) LogMetric(context.Context, drops.MetricEvent) error {
	return errors.New("connection reset")
}

func TestReporterFansOut(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	core, logs := observer.New(zap.InfoLevel)
	reg := prometheus.NewRegistry()
	promSink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	r := New("run-1", system.NewFixed(now),
		NewStoreSink(store),
		NewLogSink(zap.New(core)),
		promSink,
	)
	ctx := context.Background()
	require.NoError(t, r.Record(ctx, drops.EventPosted, "ZORA|memory-1|87"))
	require.NoError(t, r.Record(ctx, drops.EventRejectDupe, "zora::zora.co"))
	require.NoError(t, r.Record(ctx, drops.EventRejectDupe, "acme::acme.io"))

	events := store.Metrics()
	require.Len(t, events, 3)
	require.Equal(t, drops.MetricEvent{TS: now, RunID: "run-1", Event: drops.EventPosted, Detail: "ZORA|memory-1|87"}, events[0])

	require.Equal(t, 3, logs.Len())
	require.Equal(t, "decision", logs.All()[0].Message)

	require.Equal(t, 2.0, testutil.ToFloat64(promSink.decisions.WithLabelValues(drops.EventRejectDupe)))
	require.Equal(t, "run-1", r.RunID())
	require.NoError(t, r.Close(ctx))
}

func TestReporterReturnsSinkErrors(t *testing.T) {
	t.Parallel()

	r := New("run-2", system.New(), NewStoreSink(failingLog{}), NewLogSink(nil))
	err := r.Record(context.Background(), drops.EventPosted, "x")
	require.ErrorContains(t, err, "connection reset")
}

func TestPrometheusSinkReusesCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	second, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	require.Same(t, first.decisions, second.decisions)
}

func TestNewRunIDIsTimeOrdered(t *testing.T) {
	t.Parallel()

	first, err := NewRunID()
	require.NoError(t, err)
	second, err := NewRunID()
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())
	require.Less(t, first, second)
}
