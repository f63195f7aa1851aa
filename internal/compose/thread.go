package compose

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/JakeFAU/dropscout/internal/drops"
)

const (
	// MaxSegmentRunes caps every thread segment.
	MaxSegmentRunes  = 275
	digestBodyRunes  = 270
	sponsorNoteRunes = 180
)

// Config controls thread wording and attachments.
type Config struct {
	AccountTag       string
	TemplateRotation bool
	SelfReplyEnabled bool
	SelfReplyText    string
	CardTitle        string
	CardFooter       string
}

// Drop describes a project about to be published.
type Drop struct {
	Name        string
	OfficialURL string
	Score       int
	Verified    bool
	Handle      string
}

// Sponsored describes a paid placement.
type Sponsored struct {
	Title       string
	Project     string
	OfficialURL string
	Note        string
	Tag         string
}

// Composer builds threads.
type Composer struct {
	cfg  Config
	pick func(n int) int
}

// New returns a Composer. Template rotation draws uniformly at random.
func New(cfg Config) *Composer {
	return &Composer{cfg: cfg, pick: rand.IntN}
}

// WithPicker overrides the template picker, mainly for tests.
func (c *Composer) WithPicker(pick func(n int) int) *Composer {
	c.pick = pick
	return c
}

// Drop renders the four-segment announcement thread. cta is appended to the
// last segment when non-empty.
func (c *Composer) Drop(d Drop, cta string) drops.Thread {
	badge := "UNVERIFIED ⚠️"
	status := "WATCH"
	if d.Verified {
		badge = "VERIFIED ✅"
		status = "VERIFIED"
	}
	via := ""
	if d.Handle != "" {
		via = fmt.Sprintf(" (via @%s)", d.Handle)
	}
	t := c.template()

	head := fmt.Sprintf("🪂 %s | %s%s\nScore: %d/100\nOfficial: %s", d.Name, badge, via, d.Score, d.OfficialURL)
	outro := withCTA(fmt.Sprintf(t.outro, c.cfg.AccountTag), cta)

	return drops.Thread{
		Segments:  capSegments(head, t.steps, t.safety, outro),
		Card:      c.card(fmt.Sprintf("%s | %s", d.Name, status)),
		SelfReply: c.selfReply(),
	}
}

// Sponsored renders a sponsored placement thread.
func (c *Composer) Sponsored(s Sponsored, cta string) drops.Thread {
	head := fmt.Sprintf("⭐ %s | %s\n%s\nOfficial: %s", s.Title, s.Project, s.Tag, s.OfficialURL)
	why := "Why featured: " + drops.Truncate(s.Note, sponsorNoteRunes)
	safety := "🛡️ Safety:\n• Never share seed/private key\n• Never pay 'fees'\n• Use only official links"
	outro := withCTA(fmt.Sprintf("Follow %s for VERIFIED drops + weekly digests.", c.cfg.AccountTag), cta)

	return drops.Thread{
		Segments:  capSegments(head, why, safety, outro),
		Card:      c.card(fmt.Sprintf("%s | SPONSORED", s.Project)),
		SelfReply: c.selfReply(),
	}
}

// Digest renders the weekly digest from the most recent published records.
func (c *Composer) Digest(records []drops.PublishedRecord, cta string) drops.Thread {
	root := fmt.Sprintf("🗓️ Weekly Airdrop Intel Digest\nTop recent VERIFIED threads & links.\nFollow %s.", c.cfg.AccountTag)
	lines := make([]string, 0, len(records))
	for _, r := range records {
		badge := "⚠️"
		if r.Verified {
			badge = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s (%d/100) %s", badge, r.Name, r.Score, r.OfficialURL))
	}
	body := drops.Truncate(strings.Join(lines, "\n"), digestBodyRunes)
	if cta != "" {
		body = drops.Truncate(body+"\n\n"+cta, MaxSegmentRunes)
	}
	return drops.Thread{
		Segments: []string{drops.Truncate(root, MaxSegmentRunes), body},
		Card:     c.card("WEEKLY DIGEST"),
	}
}

func (c *Composer) template() template {
	if !c.cfg.TemplateRotation || c.pick == nil {
		return templates[0]
	}
	return templates[c.pick(len(templates))]
}

func (c *Composer) card(subtitle string) *drops.Card {
	return &drops.Card{Title: c.cfg.CardTitle, Subtitle: subtitle, Footer: c.cfg.CardFooter}
}

func (c *Composer) selfReply() string {
	if !c.cfg.SelfReplyEnabled {
		return ""
	}
	return drops.Truncate(c.cfg.SelfReplyText, MaxSegmentRunes)
}

func withCTA(segment, cta string) string {
	if cta == "" {
		return segment
	}
	return strings.TrimSpace(segment + "\n\n" + cta)
}

func capSegments(segments ...string) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = drops.Truncate(s, MaxSegmentRunes)
	}
	return out
}

// CTALine joins the call-to-action text with the link hub URL. It returns ""
// when no hub URL is configured.
func CTALine(text, hubURL string) string {
	if strings.TrimSpace(hubURL) == "" {
		return ""
	}
	return strings.TrimSpace(text + " " + hubURL)
}
