package drops

import (
	"context"
	"time"
)

// SeenStore records which source items were already evaluated.
type SeenStore interface {
	// MarkSeen returns false when the source id was recorded by an earlier call.
	MarkSeen(ctx context.Context, sourceID string) (bool, error)
}

// PublishedStore persists published project records.
type PublishedStore interface {
	HasDupe(ctx context.Context, dupeKey string) (bool, error)
	// ReservePublished claims the record's dupe key and returns the new row id.
	// It returns ErrDuplicate when the key is held by a published or queued row.
	ReservePublished(ctx context.Context, rec PublishedRecord) (int64, error)
	MarkPublished(ctx context.Context, id int64, rootMessageID string, at time.Time) error
	ListUnpublished(ctx context.Context, before time.Time, limit int) ([]PublishedRecord, error)
	RecentPublished(ctx context.Context, limit int) ([]PublishedRecord, error)
}

// QueueStore persists the manual review queue. Every listing is ordered by
// score descending, then creation time ascending.
type QueueStore interface {
	// Enqueue returns false when the dupe key is already queued or published.
	Enqueue(ctx context.Context, entry QueueEntry) (bool, error)
	ApproveTop(ctx context.Context, limit int) (int, error)
	ListApproved(ctx context.Context, limit int) ([]QueueEntry, error)
	ListQueue(ctx context.Context, limit int) ([]QueueEntry, error)
	GetQueueEntry(ctx context.Context, id int64) (QueueEntry, error)
	ApproveEntry(ctx context.Context, id int64) error
	RemoveFromQueue(ctx context.Context, id int64) error
	// PromoteToPublished moves a queue entry into the published table in one
	// step. An empty rootMessageID leaves the new record unstamped.
	PromoteToPublished(ctx context.Context, entry QueueEntry, rootMessageID string, at time.Time) (int64, error)
}

// MetaStore holds scalar counters and flags.
type MetaStore interface {
	IncrementCounter(ctx context.Context, key string) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
}

// MetricLog appends decision events.
type MetricLog interface {
	LogMetric(ctx context.Context, evt MetricEvent) error
}

// Store is the durable state shared by every pipeline component.
type Store interface {
	SeenStore
	PublishedStore
	QueueStore
	MetaStore
	MetricLog
	Close()
}

// Source supplies raw candidates.
type Source interface {
	Search(ctx context.Context, q Query) ([]RawCandidate, error)
}

// URLExtractor picks the best absolute URL from a candidate, or "".
type URLExtractor func(c RawCandidate) string

// Verifier checks that an official URL belongs to the account promoting it.
type Verifier interface {
	Verify(ctx context.Context, officialURL string) Verification
}

// ProfileLookup resolves a social handle to its public profile.
type ProfileLookup interface {
	LookupProfile(ctx context.Context, handle string) (Profile, error)
}

// Publisher sends a thread and returns the root message id.
type Publisher interface {
	PublishThread(ctx context.Context, thread Thread) (string, error)
}

// Previewer receives threads that would have been published in dry-run mode.
type Previewer interface {
	Preview(ctx context.Context, kind string, thread Thread) error
}

// Clock abstracts wall time.
type Clock interface {
	Now() time.Time
}
