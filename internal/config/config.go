// Package config loads and validates dropscout configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Modes selected by the mode key when no subcommand is given.
const (
	ModeRun     = "run"
	ModeApprove = "approve"
)

// Backend names.
const (
	StorePostgres    = "postgres"
	StoreMemory      = "memory"
	PublisherX       = "x"
	PublisherPubSub  = "pubsub"
	PublisherMemory  = "memory"
	PreviewLog       = "log"
	PreviewLocal     = "local"
	PreviewGCS       = "gcs"
	redactedSecret   = "********"
	envPrefix        = "DROPSCOUT"
	defaultUserAgent = "Mozilla/5.0 (compatible; dropscout/1.0)"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Mode       string          `mapstructure:"mode" yaml:"mode" validate:"oneof=run approve"`
	DryRun     bool            `mapstructure:"dry_run" yaml:"dry_run"`
	Run        RunConfig       `mapstructure:"run" yaml:"run"`
	Search     SearchConfig    `mapstructure:"search" yaml:"search"`
	Thresholds ThresholdConfig `mapstructure:"thresholds" yaml:"thresholds"`
	Policy     PolicyConfig    `mapstructure:"policy" yaml:"policy"`
	Cadence    CadenceConfig   `mapstructure:"cadence" yaml:"cadence"`
	Compose    ComposeConfig   `mapstructure:"compose" yaml:"compose"`
	Sponsored  SponsoredConfig `mapstructure:"sponsored" yaml:"sponsored"`
	Verify     VerifyConfig    `mapstructure:"verify" yaml:"verify"`
	X          XConfig         `mapstructure:"x" yaml:"x"`
	Database   DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Store      StoreConfig     `mapstructure:"store" yaml:"store"`
	Publisher  PublisherConfig `mapstructure:"publisher" yaml:"publisher"`
	Preview    PreviewConfig   `mapstructure:"preview" yaml:"preview"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Server     ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// RunConfig bounds a single invocation.
type RunConfig struct {
	MaxPostsPerRun   int           `mapstructure:"max_posts_per_run" yaml:"max_posts_per_run" validate:"gte=1"`
	ApprovePostLimit int           `mapstructure:"approve_post_limit" yaml:"approve_post_limit" validate:"gte=1"`
	ReconcileLimit   int           `mapstructure:"reconcile_limit" yaml:"reconcile_limit" validate:"gte=1"`
	ReconcileGrace   time.Duration `mapstructure:"reconcile_grace" yaml:"reconcile_grace" validate:"gte=0"`
}

// SearchConfig builds the upstream search query.
type SearchConfig struct {
	Keywords      []string `mapstructure:"keywords" yaml:"keywords" validate:"min=1,dive,required"`
	Lang          string   `mapstructure:"lang" yaml:"lang" validate:"required"`
	ResultsPerRun int      `mapstructure:"results_per_run" yaml:"results_per_run" validate:"gte=10,lte=100"`
}

// ThresholdConfig holds the routing score cut-offs.
type ThresholdConfig struct {
	MinScoreVerified   int `mapstructure:"min_score_verified" yaml:"min_score_verified" validate:"gte=0,lte=100"`
	MinScoreUnverified int `mapstructure:"min_score_unverified" yaml:"min_score_unverified" validate:"gte=0,lte=100"`
	QueueMinScore      int `mapstructure:"queue_min_score" yaml:"queue_min_score" validate:"gte=0,lte=100"`
}

// PolicyConfig toggles candidate filters and routing.
type PolicyConfig struct {
	RequireHTTPS     bool     `mapstructure:"require_https" yaml:"require_https"`
	BlockShorteners  bool     `mapstructure:"block_shorteners" yaml:"block_shorteners"`
	RejectSocialOnly bool     `mapstructure:"reject_social_only" yaml:"reject_social_only"`
	AllowlistDomains []string `mapstructure:"allowlist_domains" yaml:"allowlist_domains"`
	OnlyVerified     bool     `mapstructure:"only_verified" yaml:"only_verified"`
	AutoPost         bool     `mapstructure:"auto_post" yaml:"auto_post"`
}

// CadenceConfig controls the call to action and the weekly digest.
type CadenceConfig struct {
	CTAEveryNPosts  int    `mapstructure:"cta_every_n_posts" yaml:"cta_every_n_posts" validate:"gte=1"`
	CTAText         string `mapstructure:"cta_text" yaml:"cta_text"`
	LinkHubURL      string `mapstructure:"link_hub_url" yaml:"link_hub_url" validate:"omitempty,url"`
	WeeklyDigest    bool   `mapstructure:"weekly_digest" yaml:"weekly_digest"`
	WeeklyDigestDay string `mapstructure:"weekly_digest_day" yaml:"weekly_digest_day" validate:"oneof=MON TUE WED THU FRI SAT SUN"`
}

// ComposeConfig controls thread wording.
type ComposeConfig struct {
	AccountTag       string `mapstructure:"account_tag" yaml:"account_tag" validate:"required"`
	TemplateRotation bool   `mapstructure:"template_rotation" yaml:"template_rotation"`
	SelfReplyEnabled bool   `mapstructure:"self_reply_enabled" yaml:"self_reply_enabled"`
	SelfReplyText    string `mapstructure:"self_reply_text" yaml:"self_reply_text"`
	CardTitle        string `mapstructure:"card_title" yaml:"card_title"`
	CardFooter       string `mapstructure:"card_footer" yaml:"card_footer"`
}

// SponsoredConfig describes a paid placement.
type SponsoredConfig struct {
	Mode        bool   `mapstructure:"mode" yaml:"mode"`
	Title       string `mapstructure:"title" yaml:"title"`
	Project     string `mapstructure:"project" yaml:"project"`
	OfficialURL string `mapstructure:"official_url" yaml:"official_url" validate:"omitempty,url"`
	Note        string `mapstructure:"note" yaml:"note"`
	Tag         string `mapstructure:"tag" yaml:"tag"`
}

// VerifyConfig controls the ownership verifier.
type VerifyConfig struct {
	Timeout         time.Duration  `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	MaxBodyBytes    int            `mapstructure:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	RespectRobots   bool           `mapstructure:"respect_robots" yaml:"respect_robots"`
	ProfileCacheTTL time.Duration  `mapstructure:"profile_cache_ttl" yaml:"profile_cache_ttl" validate:"gte=0"`
	Headless        HeadlessConfig `mapstructure:"headless" yaml:"headless"`
}

// HeadlessConfig configures the JS-render fallback.
type HeadlessConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxParallel   int           `mapstructure:"max_parallel" yaml:"max_parallel" validate:"gte=1"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout" yaml:"nav_timeout" validate:"gt=0"`
	ThinBodyBytes int           `mapstructure:"thin_body_bytes" yaml:"thin_body_bytes" validate:"gte=0"`
}

// XConfig holds X API credentials.
type XConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	BearerToken string        `mapstructure:"bearer_token" yaml:"bearer_token"`
	UserToken   string        `mapstructure:"user_token" yaml:"user_token"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	LookupRPS   float64       `mapstructure:"lookup_rps" yaml:"lookup_rps" validate:"gte=0"`
}

// DatabaseConfig controls access to Postgres.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns" validate:"gte=0"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime" validate:"gte=0"`
}

// StoreConfig selects the state store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=postgres memory"`
}

// PublisherConfig selects where threads are sent.
type PublisherConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend" validate:"oneof=x pubsub memory"`
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`
	TopicName string `mapstructure:"topic_name" yaml:"topic_name"`
}

// PreviewConfig selects where dry-run threads are written.
type PreviewConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=log local gcs"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Bucket  string `mapstructure:"bucket" yaml:"bucket"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
}

// MetricsConfig controls Prometheus reporting.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job" yaml:"job"`
}

// ServerConfig controls the admin HTTP server.
type ServerConfig struct {
	Port   int    `mapstructure:"port" yaml:"port" validate:"gt=0,lte=65535"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development" yaml:"development"`
	Level       string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// legacyEnv maps keys to the unprefixed variables older deployments set.
var legacyEnv = map[string]string{
	"mode":           "MODE",
	"dry_run":        "DRY_RUN",
	"x.bearer_token": "X_BEARER_TOKEN",
	"x.user_token":   "X_USER_TOKEN",
	"database.dsn":   "DATABASE_URL",
}

// Load builds a Config from disk and environment. An empty path skips the
// config file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeRun)
	v.SetDefault("dry_run", true)
	v.SetDefault("run.max_posts_per_run", 2)
	v.SetDefault("run.approve_post_limit", 2)
	v.SetDefault("run.reconcile_limit", 10)
	v.SetDefault("run.reconcile_grace", 15*time.Minute)
	v.SetDefault("search.keywords", []string{"airdrop", "testnet", "points program", "quest"})
	v.SetDefault("search.lang", "en")
	v.SetDefault("search.results_per_run", 25)
	v.SetDefault("thresholds.min_score_verified", 70)
	v.SetDefault("thresholds.min_score_unverified", 85)
	v.SetDefault("thresholds.queue_min_score", 60)
	v.SetDefault("policy.require_https", true)
	v.SetDefault("policy.block_shorteners", true)
	v.SetDefault("policy.reject_social_only", true)
	v.SetDefault("policy.allowlist_domains", []string{})
	v.SetDefault("policy.only_verified", false)
	v.SetDefault("policy.auto_post", true)
	v.SetDefault("cadence.cta_every_n_posts", 3)
	v.SetDefault("cadence.cta_text", "All verified links:")
	v.SetDefault("cadence.weekly_digest", true)
	v.SetDefault("cadence.weekly_digest_day", "SUN")
	v.SetDefault("compose.account_tag", "@dropscout")
	v.SetDefault("compose.template_rotation", true)
	v.SetDefault("compose.self_reply_enabled", false)
	v.SetDefault("compose.card_title", "AIRDROP INTEL")
	v.SetDefault("compose.card_footer", "Verified links only")
	v.SetDefault("sponsored.title", "SPONSORED")
	v.SetDefault("sponsored.tag", "#ad")
	v.SetDefault("verify.timeout", 12*time.Second)
	v.SetDefault("verify.max_body_bytes", 400_000)
	v.SetDefault("verify.user_agent", defaultUserAgent)
	v.SetDefault("verify.respect_robots", false)
	v.SetDefault("verify.profile_cache_ttl", 6*time.Hour)
	v.SetDefault("verify.headless.enabled", false)
	v.SetDefault("verify.headless.max_parallel", 1)
	v.SetDefault("verify.headless.nav_timeout", 20*time.Second)
	v.SetDefault("verify.headless.thin_body_bytes", 2048)
	v.SetDefault("x.base_url", "https://api.twitter.com")
	v.SetDefault("x.timeout", 15*time.Second)
	v.SetDefault("x.lookup_rps", 1.0)
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("store.backend", StorePostgres)
	v.SetDefault("publisher.backend", PublisherX)
	v.SetDefault("preview.backend", PreviewLog)
	v.SetDefault("preview.dir", "previews")
	v.SetDefault("preview.prefix", "previews")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.job", "dropscout")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

func (c *Config) normalize() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Cadence.WeeklyDigestDay = strings.ToUpper(strings.TrimSpace(c.Cadence.WeeklyDigestDay))
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Publisher.Backend = strings.ToLower(strings.TrimSpace(c.Publisher.Backend))
	c.Preview.Backend = strings.ToLower(strings.TrimSpace(c.Preview.Backend))
	c.Search.Keywords = cleanList(c.Search.Keywords, false)
	c.Policy.AllowlistDomains = cleanList(c.Policy.AllowlistDomains, true)
}

func cleanList(in []string, lower bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate enforces struct tag constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Backend == StorePostgres && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres store")
	}
	if c.Publisher.Backend == PublisherPubSub && (c.Publisher.ProjectID == "" || c.Publisher.TopicName == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic_name are required for the pubsub publisher")
	}
	if c.Preview.Backend == PreviewLocal && c.Preview.Dir == "" {
		return fmt.Errorf("preview.dir is required for the local preview backend")
	}
	if c.Preview.Backend == PreviewGCS && c.Preview.Bucket == "" {
		return fmt.Errorf("preview.bucket is required for the gcs preview backend")
	}
	if c.Thresholds.QueueMinScore > c.Thresholds.MinScoreVerified {
		return fmt.Errorf("thresholds.queue_min_score must not exceed thresholds.min_score_verified")
	}
	return nil
}

// RequireSearch checks the credentials needed to search and verify.
func (c Config) RequireSearch() error {
	if c.X.BearerToken == "" {
		return fmt.Errorf("x.bearer_token is required")
	}
	return nil
}

// RequirePublish checks the credentials needed for live publishing.
func (c Config) RequirePublish() error {
	if c.DryRun || c.Publisher.Backend != PublisherX {
		return nil
	}
	if c.X.UserToken == "" {
		return fmt.Errorf("x.user_token is required to publish with the x backend")
	}
	return nil
}

// Redacted returns a copy with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedSecret
	}
	c.X.BearerToken = mask(c.X.BearerToken)
	c.X.UserToken = mask(c.X.UserToken)
	c.Database.DSN = mask(c.Database.DSN)
	c.Server.APIKey = mask(c.Server.APIKey)
	return c
}

// YAML renders the redacted config.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
