package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// StoreSink appends events to the state store's metric log.
type StoreSink struct {
	log drops.MetricLog
}

// NewStoreSink wraps a metric log.
func NewStoreSink(log drops.MetricLog) *StoreSink {
	return &StoreSink{log: log}
}

// Consume persists each event in order.
func (s *StoreSink) Consume(ctx context.Context, batch []drops.MetricEvent) error {
	for _, evt := range batch {
		if err := s.log.LogMetric(ctx, evt); err != nil {
			return fmt.Errorf("log metric: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the store is closed by its owner.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("decisions")}
}

// Consume logs each event.
func (s *LogSink) Consume(_ context.Context, batch []drops.MetricEvent) error {
	for _, evt := range batch {
		s.logger.Info("decision",
			zap.String("event", evt.Event),
			zap.String("detail", evt.Detail),
			zap.String("run_id", evt.RunID),
		)
	}
	return nil
}

// Close flushes buffered log entries.
func (s *LogSink) Close(context.Context) error {
	_ = s.logger.Sync()
	return nil
}

// PrometheusSink counts events per name.
type PrometheusSink struct {
	decisions *prometheus.CounterVec
}

// NewPrometheusSink registers the collector against reg, or the default
// registerer when reg is nil. A collector already registered by an earlier
// sink is reused.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dropscout_decisions_total",
		Help: "Pipeline decision events, labeled by event name.",
	}, []string{"event"})
	if err := reg.Register(decisions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register decision collector: %w", err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("register decision collector: %w", err)
		}
		decisions = existing
	}
	return &PrometheusSink{decisions: decisions}, nil
}

// Consume increments the per-event counter.
func (s *PrometheusSink) Consume(_ context.Context, batch []drops.MetricEvent) error {
	for _, evt := range batch {
		s.decisions.WithLabelValues(evt.Event).Inc()
	}
	return nil
}

// Close implements Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
