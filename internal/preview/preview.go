// Package preview receives the threads a dry run would have published.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/storage"
)

// Log writes previews to a zap logger.
type Log struct {
	logger *zap.Logger
}

var _ drops.Previewer = (*Log)(nil)

// NewLog builds a log previewer.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("preview")}
}

// Preview logs every segment of the thread.
func (l *Log) Preview(_ context.Context, kind string, thread drops.Thread) error {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.Strings("segments", thread.Segments),
	}
	if thread.Card != nil {
		fields = append(fields, zap.String("card", thread.Card.Subtitle))
	}
	if thread.SelfReply != "" {
		fields = append(fields, zap.String("self_reply", thread.SelfReply))
	}
	l.logger.Info("dry run preview", fields...)
	return nil
}

// Document is the JSON form of a stored preview.
type Document struct {
	Kind      string       `json:"kind"`
	RunID     string       `json:"run_id"`
	CreatedAt time.Time    `json:"created_at"`
	Thread    drops.Thread `json:"thread"`
}

// Blob writes each preview as a JSON document named
// <run id>/<sequence>-<kind>.json.
type Blob struct {
	store storage.BlobStore
	runID string
	clock drops.Clock
	seq   atomic.Int64
}

var _ drops.Previewer = (*Blob)(nil)

// NewBlob builds a blob previewer.
func NewBlob(store storage.BlobStore, runID string, clock drops.Clock) *Blob {
	return &Blob{store: store, runID: runID, clock: clock}
}

// Preview stores the thread.
func (b *Blob) Preview(ctx context.Context, kind string, thread drops.Thread) error {
	doc := Document{Kind: kind, RunID: b.runID, CreatedAt: b.clock.Now(), Thread: thread}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	path := fmt.Sprintf("%s/%03d-%s.json", b.runID, b.seq.Add(1), kind)
	if _, err := b.store.PutObject(ctx, path, "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	return nil
}

// Multi sends previews to several previewers in order.
type Multi []drops.Previewer

// Preview stops at the first error.
func (m Multi) Preview(ctx context.Context, kind string, thread drops.Thread) error {
	for _, p := range m {
		if err := p.Preview(ctx, kind, thread); err != nil {
			return err
		}
	}
	return nil
}
