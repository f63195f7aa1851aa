package drops

import (
	"fmt"
	"strings"
	"time"
)

// UnknownDomain stands in for the domain half of a dupe key when the official
// URL has no usable host.
const UnknownDomain = "unknown"

// MaxSourceTextRunes bounds the source text copied onto queue entries.
const MaxSourceTextRunes = 2000

// Meta keys persisted in the scalar table.
const (
	MetaPostCounter   = "post_counter"
	MetaLastDigestDay = "last_digest_day"
)

// RawCandidate is one post supplied by the ingestion source. Only SourceID is
// ever persisted.
type RawCandidate struct {
	SourceID     string   `json:"source_id"`
	Text         string   `json:"text"`
	URL          string   `json:"url,omitempty"`
	AuthorHandle string   `json:"author_handle,omitempty"`
	EntityURLs   []string `json:"entity_urls,omitempty"`
}

// PublishedRecord is a project that was published or reserved for publication.
// RootMessageID and PublishedAt are either both set or both empty.
type PublishedRecord struct {
	ID             int64      `json:"id"`
	DupeKey        string     `json:"dupe_key"`
	Name           string     `json:"name"`
	OfficialURL    string     `json:"official_url"`
	OfficialDomain string     `json:"official_domain,omitempty"`
	Verified       bool       `json:"verified"`
	Score          int        `json:"score"`
	RootMessageID  string     `json:"root_message_id,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Stamped reports whether the outbound publish for the record completed.
func (r PublishedRecord) Stamped() bool {
	return r.RootMessageID != "" && r.PublishedAt != nil
}

// QueueEntry is a candidate held for manual review.
type QueueEntry struct {
	ID             int64     `json:"id"`
	DupeKey        string    `json:"dupe_key"`
	Name           string    `json:"name"`
	OfficialURL    string    `json:"official_url"`
	OfficialDomain string    `json:"official_domain,omitempty"`
	Verified       bool      `json:"verified"`
	Score          int       `json:"score"`
	Reason         string    `json:"reason"`
	SourceID       string    `json:"source_id,omitempty"`
	SourceText     string    `json:"source_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Approved       bool      `json:"approved"`
}

// MetricEvent is one append-only decision log row.
type MetricEvent struct {
	TS     time.Time `json:"ts"`
	RunID  string    `json:"run_id,omitempty"`
	Event  string    `json:"event"`
	Detail string    `json:"detail,omitempty"`
}

// Card describes the image card attached to a thread's root segment.
type Card struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Footer   string `json:"footer"`
}

// Thread is an ordered set of message segments handed to a publisher.
type Thread struct {
	Segments  []string `json:"segments"`
	Card      *Card    `json:"card,omitempty"`
	SelfReply string   `json:"self_reply,omitempty"`
}

// Query selects candidates from the ingestion source.
type Query struct {
	Keywords   []string
	Lang       string
	MaxResults int
}

// Profile is the public profile of a social account.
type Profile struct {
	Username    string
	Description string
	URL         string
	EntityURLs  []string
}

// DupeKey builds the cross-table uniqueness key for a project name and domain.
func DupeKey(name, domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		d = UnknownDomain
	}
	return fmt.Sprintf("%s::%s", strings.ToLower(strings.TrimSpace(name)), d)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
