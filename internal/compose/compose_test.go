package compose

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dropscout/internal/drops"
)

func TestProjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "first all caps word", text: "New drop from ZORA is live", want: "ZORA"},
		{name: "too short caps skipped", text: "GM ZORA quests", want: "ZORA"},
		{name: "caps with symbols", text: "claim $ZORA now", want: "$ZORA"},
		{name: "fallback first word", text: "hello world drop", want: "hello"},
		{name: "first word truncated", text: "supercalifragilisticexpialidocious is long", want: "supercalifragilist"},
		{name: "caps beyond tenth word ignored", text: "a b c d e f g h i j ZORA", want: "a"},
		{name: "too long caps skipped", text: "ABCDEFGHIJKLMNOPQRSTUVWXYZ tokens", want: "ABCDEFGHIJKLMNOPQR"},
		{name: "empty", text: "   ", want: PlaceholderName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ProjectName(tt.text))
		})
	}
}

func TestDropThreadShape(t *testing.T) {
	t.Parallel()

	c := New(Config{AccountTag: "@intel", CardTitle: "AIRDROP INTEL", CardFooter: "not advice"})
	thread := c.Drop(Drop{Name: "ZORA", OfficialURL: "https://zora.co", Score: 87, Verified: true, Handle: "zora"}, "")

	require.Len(t, thread.Segments, 4)
	require.Contains(t, thread.Segments[0], "ZORA | VERIFIED ✅ (via @zora)")
	require.Contains(t, thread.Segments[0], "Score: 87/100")
	require.Contains(t, thread.Segments[3], "@intel")
	require.NotNil(t, thread.Card)
	require.Equal(t, "ZORA | VERIFIED", thread.Card.Subtitle)
	require.Empty(t, thread.SelfReply)
}

func TestDropThreadAppendsCTA(t *testing.T) {
	t.Parallel()

	c := New(Config{AccountTag: "@intel"})
	cta := CTALine("All links:", "https://hub.example.com")
	thread := c.Drop(Drop{Name: "ZORA", OfficialURL: "https://zora.co", Score: 60}, cta)

	require.True(t, strings.HasSuffix(thread.Segments[3], "\n\nAll links: https://hub.example.com"))
	require.Contains(t, thread.Segments[0], "UNVERIFIED")
	require.Equal(t, "ZORA | WATCH", thread.Card.Subtitle)
}

func TestSegmentsAreCapped(t *testing.T) {
	t.Parallel()

	c := New(Config{AccountTag: strings.Repeat("é", 400), SelfReplyEnabled: true, SelfReplyText: strings.Repeat("x", 500)})
	thread := c.Drop(Drop{Name: "ZORA", OfficialURL: "https://zora.co/" + strings.Repeat("a", 400)}, "")
	for _, seg := range thread.Segments {
		require.LessOrEqual(t, utf8.RuneCountInString(seg), MaxSegmentRunes)
	}
	require.Equal(t, MaxSegmentRunes, utf8.RuneCountInString(thread.SelfReply))
}

func TestTemplateRotationUsesPicker(t *testing.T) {
	t.Parallel()

	c := New(Config{TemplateRotation: true}).WithPicker(func(n int) int { return n - 1 })
	thread := c.Drop(Drop{Name: "ZORA"}, "")
	require.Equal(t, templates[len(templates)-1].steps, thread.Segments[1])

	fixed := New(Config{TemplateRotation: false}).WithPicker(func(n int) int { return n - 1 })
	require.Equal(t, templates[0].steps, fixed.Drop(Drop{Name: "ZORA"}, "").Segments[1])
}

func TestSponsoredThread(t *testing.T) {
	t.Parallel()

	c := New(Config{AccountTag: "@intel"})
	thread := c.Sponsored(Sponsored{
		Title:       "FEATURED",
		Project:     "Acme",
		OfficialURL: "https://acme.io",
		Note:        strings.Repeat("n", 300),
		Tag:         "#ad",
	}, "Links: https://hub")

	require.Len(t, thread.Segments, 4)
	require.Contains(t, thread.Segments[0], "FEATURED | Acme")
	require.Equal(t, len("Why featured: ")+180, utf8.RuneCountInString(thread.Segments[1]))
	require.True(t, strings.HasSuffix(thread.Segments[3], "Links: https://hub"))
	require.Equal(t, "Acme | SPONSORED", thread.Card.Subtitle)
}

func TestDigestThread(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	records := []drops.PublishedRecord{
		{Name: "ZORA", Score: 90, Verified: true, OfficialURL: "https://zora.co", PublishedAt: &now},
		{Name: "Acme", Score: 70, Verified: false, OfficialURL: "https://acme.io", PublishedAt: &now},
	}
	c := New(Config{AccountTag: "@intel"})
	thread := c.Digest(records, "")

	require.Len(t, thread.Segments, 2)
	require.Contains(t, thread.Segments[0], "Follow @intel.")
	require.Equal(t, "✅ ZORA (90/100) https://zora.co\n⚠️ Acme (70/100) https://acme.io", thread.Segments[1])
	require.Empty(t, thread.SelfReply)

	withCTA := c.Digest(records, "Links: https://hub")
	require.True(t, strings.HasSuffix(withCTA.Segments[1], "\n\nLinks: https://hub"))
}

func TestCTALine(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", CTALine("All links:", ""))
	require.Equal(t, "All links: https://hub", CTALine("All links:", "https://hub"))
	require.Equal(t, "https://hub", CTALine("", "https://hub"))
}
