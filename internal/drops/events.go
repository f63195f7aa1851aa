package drops

// Decision event names written to the metric log.
const (
	EventSkipNoSourceID   = "skip_no_source_id"
	EventRejectHardBlock  = "reject_hard_block"
	EventRejectNoURL      = "reject_no_url"
	EventRejectNotHTTPS   = "reject_not_https"
	EventRejectShortener  = "reject_shortener"
	EventRejectSocialOnly = "reject_social_only"
	EventRejectAllowlist  = "reject_allowlist"
	EventRejectDupe       = "reject_dupe"
	EventRejectUnverified = "reject_not_verified_low"
	EventRejectLowScore   = "reject_low_score"
	EventQueuedUnverified = "queued_not_verified"
	EventQueuedBelow      = "queued_below_threshold"
	EventQueuedAutoOff    = "queued_auto_disabled"
	EventDryRunPost       = "dry_run_post"
	EventPosted           = "posted"
	EventPublishFailed    = "publish_failed"
	EventDigestPosted     = "weekly_digest_posted"
	EventDigestDryRun     = "weekly_digest_dry_run"
	EventSponsoredDryRun  = "sponsored_dry_run"
	EventSponsoredPosted  = "sponsored_posted"
	EventApproveSkip      = "approve_skip_not_verified"
	EventApproveDryRun    = "approve_dry_run_post"
	EventApprovePosted    = "approve_posted"
	EventApproveFailed    = "approve_publish_failed"
	EventReconcilePosted  = "reconcile_posted"
	EventReconcileFailed  = "reconcile_failed"
	EventReviewApproved   = "review_approved"
	EventReviewDismissed  = "review_dismissed"
)

// Queue reasons recorded on review entries.
const (
	ReasonQueueNotVerified = "not_verified"
	ReasonQueueAutoOff     = "auto_post_disabled"
)

// Preview kinds passed to a Previewer.
const (
	KindDrop      = "drop"
	KindApproved  = "approved"
	KindDigest    = "digest"
	KindSponsored = "sponsored"
)
