package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/drops"
)

const (
	digestRecords   = 8
	digestDayLayout = "2006-01-02"
)

var weekdays = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// ParseWeekday maps a three-letter day name (MON..SUN) to a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

// CadenceConfig controls call-to-action frequency and the weekly digest.
type CadenceConfig struct {
	CTAEveryN    int
	CTAText      string
	LinkHubURL   string
	WeeklyDigest bool
	DigestDay    time.Weekday
	DryRun       bool
}

// Cadence decides when posts carry a call to action and when the weekly
// digest goes out.
type Cadence struct {
	cfg    CadenceConfig
	deps   Dependencies
	logger *zap.Logger
}

// NewCadence builds a Cadence.
func NewCadence(cfg CadenceConfig, deps Dependencies) (*Cadence, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Cadence{cfg: cfg, deps: deps, logger: deps.logger("cadence")}, nil
}

// ShouldAddCTA reports whether the next post is due a call to action.
func (c *Cadence) ShouldAddCTA(ctx context.Context) (bool, error) {
	if strings.TrimSpace(c.cfg.LinkHubURL) == "" || c.cfg.CTAEveryN <= 0 {
		return false, nil
	}
	n, err := c.deps.Store.Counter(ctx, drops.MetaPostCounter)
	if err != nil {
		return false, fmt.Errorf("read post counter: %w", err)
	}
	return (n+1)%int64(c.cfg.CTAEveryN) == 0, nil
}

// CTALine returns the call-to-action text, or "" without a link hub.
func (c *Cadence) CTALine() string {
	return compose.CTALine(c.cfg.CTAText, c.cfg.LinkHubURL)
}

// NextCTA returns the call to action for the next post, or "" when the post
// is not due one.
func (c *Cadence) NextCTA(ctx context.Context) (string, error) {
	due, err := c.ShouldAddCTA(ctx)
	if err != nil || !due {
		return "", err
	}
	return c.CTALine(), nil
}

// MaybeDigest publishes the weekly digest when it is enabled, today is the
// configured UTC weekday, no digest went out today and at least one record
// has been published. It reports whether a digest was produced.
func (c *Cadence) MaybeDigest(ctx context.Context) (bool, error) {
	if !c.cfg.WeeklyDigest {
		return false, nil
	}
	now := c.deps.Clock.Now().UTC()
	if now.Weekday() != c.cfg.DigestDay {
		return false, nil
	}
	today := now.Format(digestDayLayout)
	last, _, err := c.deps.Store.GetMeta(ctx, drops.MetaLastDigestDay)
	if err != nil {
		return false, fmt.Errorf("read last digest day: %w", err)
	}
	if last == today {
		return false, nil
	}
	records, err := c.deps.Store.RecentPublished(ctx, digestRecords)
	if err != nil {
		return false, fmt.Errorf("load recent published: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}

	thread := c.deps.Composer.Digest(records, c.CTALine())
	if c.cfg.DryRun {
		c.deps.preview(ctx, c.logger, drops.KindDigest, thread)
		if err := c.markDigest(ctx, today); err != nil {
			return false, err
		}
		if err := c.deps.bumpCounter(ctx); err != nil {
			return false, err
		}
		return true, c.deps.record(ctx, drops.EventDigestDryRun, today)
	}

	rootID, err := c.deps.publish(ctx, drops.KindDigest, thread)
	if err != nil {
		c.logger.Error("digest publish failed", zap.String("day", today), zap.Error(err))
		return false, c.deps.record(ctx, drops.EventPublishFailed, drops.KindDigest)
	}
	if err := c.markDigest(ctx, today); err != nil {
		return false, err
	}
	if err := c.deps.bumpCounter(ctx); err != nil {
		return false, err
	}
	c.logger.Info("posted weekly digest", zap.String("root_id", rootID))
	return true, c.deps.record(ctx, drops.EventDigestPosted, rootID)
}

func (c *Cadence) markDigest(ctx context.Context, day string) error {
	if err := c.deps.Store.SetMeta(ctx, drops.MetaLastDigestDay, day); err != nil {
		return fmt.Errorf("set last digest day: %w", err)
	}
	return nil
}
